package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/roadtwin/roadtwin"
)

// The twin is consulted on the synchronous path of a routing request, so a
// slow twin must fail fast rather than hold the caller.
const twinRequestTimeout = 2 * time.Second

// A TwinClient consults a remote twin service over its HTTP state surface.
// It implements roadtwin.StateReader, so a routing service can swap between
// an in-process store and a remote twin without changing the estimator.
type TwinClient struct {
	baseURL string
	client  *http.Client
}

// NewTwinClient returns a client for the twin service rooted at baseURL, for
// example "http://localhost:8003".
func NewTwinClient(baseURL string) *TwinClient {
	return &TwinClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   twinRequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Road looks up one road's state on the remote twin. Any transport or
// decoding failure wraps roadtwin.ErrTwinUnavailable: from the caller's point
// of view the twin simply could not answer, whatever the mechanism.
func (t *TwinClient) Road(ctx context.Context, roadID string) (roadtwin.RoadState, bool, error) {
	u := t.baseURL + "/state/" + url.PathEscape(roadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return roadtwin.RoadState{}, false, fmt.Errorf("build twin request: %w: %w", roadtwin.ErrTwinUnavailable, err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return roadtwin.RoadState{}, false, fmt.Errorf("query twin: %w: %w", roadtwin.ErrTwinUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return roadtwin.RoadState{}, false, fmt.Errorf("query twin: %w: unexpected status %s", roadtwin.ErrTwinUnavailable, resp.Status)
	}

	var view roadStateView
	// The twin answers an unknown road with an empty object. Decode into the
	// view and treat an absent sensor as the unknown marker, because every
	// recorded state carries one.
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return roadtwin.RoadState{}, false, fmt.Errorf("decode twin response: %w: %w", roadtwin.ErrTwinUnavailable, err)
	}
	if view.LastSensor == "" {
		return roadtwin.RoadState{}, false, nil
	}

	state := roadtwin.RoadState{
		Congestion: view.Congestion,
		LastSensor: view.LastSensor,
	}
	if view.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, view.Timestamp); err == nil {
			state.UpdatedAt = ts.UTC()
		}
	}
	if view.LatencySeconds != nil {
		state.Latency = time.Duration(*view.LatencySeconds * float64(time.Second))
		state.LatencyKnown = true
	}
	return state, true, nil
}
