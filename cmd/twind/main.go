// The twind command runs the twin service: it consumes traffic events from
// the bus, maintains the in-memory road-state mapping, and serves the state
// and metrics views over HTTP.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielorbach/go-component"
	_ "gocloud.dev/pubsub/mempubsub"
	_ "gocloud.dev/pubsub/rabbitpubsub"

	"github.com/roadtwin/roadtwin"
	"github.com/roadtwin/roadtwin/config"
	"github.com/roadtwin/roadtwin/httpapi"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "twind:", err)
		os.Exit(1)
	}

	component.RunProc(func(l *component.L) {
		source, err := roadtwin.OpenSubscription(l.GraceContext(), conf.Bus.SubscriptionURL)
		if err != nil {
			l.Fatal(err)
		}
		l.CleanupBackground(source.Shutdown)

		store := roadtwin.NewStore()
		l.Fork("consume", store.Consume(source))
		l.Fork("http", httpapi.Serve(conf.HTTP.Addr, httpapi.TwinRouter(store, roadtwin.NewAggregator(store))))
	})
}
