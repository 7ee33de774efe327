package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielorbach/go-component"
)

const shutdownGracePeriod = 5 * time.Second

// Serve returns a component.Proc that runs an HTTP server for the given
// handler on addr until the component winds down, then drains in-flight
// requests before returning.
func Serve(addr string, handler http.Handler) component.Proc {
	return func(l *component.L) {
		server := &http.Server{
			Addr:    addr,
			Handler: handler,
		}

		done := make(chan error, 1)
		go func() {
			done <- server.ListenAndServe()
		}()

		logger := component.Logger(l.Context())
		logger.Info("Serving HTTP", slog.String("addr", addr))

		select {
		case err := <-done:
			// ListenAndServe never returns nil; reaching here means the listener
			// failed before any shutdown was requested.
			l.Fatal(err)
		case <-l.Context().Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			l.Errorf("shutdown http server on %s: %v", addr, err)
		}
		if err := <-done; !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("http server on %s: %v", addr, err)
		}
	}
}
