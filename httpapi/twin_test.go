package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/roadtwin/roadtwin"
)

func getJSON(t *testing.T, handler http.Handler, path string, into any) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("Failed to decode GET %s response %q: %v", path, rec.Body, err)
	}
	return rec.Code
}

func TestTwinEndpoints(t *testing.T) {
	stamp := time.Date(2026, time.September, 1, 9, 30, 0, 0, time.UTC)

	store := roadtwin.NewStore()
	store.Apply(roadtwin.StampedEvent{SensorID: "S1", RoadID: "R42", Congestion: 40, Timestamp: stamp})
	store.Apply(roadtwin.StampedEvent{SensorID: "S2", RoadID: "R7", Congestion: 15})

	handler := TwinRouter(store, roadtwin.NewAggregator(store))

	t.Run("single road", func(t *testing.T) {
		var body map[string]any
		if code := getJSON(t, handler, "/state/R42", &body); code != http.StatusOK {
			t.Errorf("GET /state/R42 status = %d, expected 200", code)
		}
		if got := body["congestion"]; got != float64(40) {
			t.Errorf("GET /state/R42 congestion = %v, expected 40", got)
		}
		if got := body["last_sensor"]; got != "S1" {
			t.Errorf("GET /state/R42 last_sensor = %v, expected S1", got)
		}
		if got := body["timestamp"]; got != "2026-09-01T09:30:00Z" {
			t.Errorf("GET /state/R42 timestamp = %v, expected the producer stamp", got)
		}
		if _, ok := body["latency_seconds"]; !ok {
			t.Errorf("GET /state/R42 body = %v, expected a latency_seconds field", body)
		}
	})

	t.Run("road without a usable stamp", func(t *testing.T) {
		var body map[string]any
		if code := getJSON(t, handler, "/state/R7", &body); code != http.StatusOK {
			t.Errorf("GET /state/R7 status = %d, expected 200", code)
		}
		if _, ok := body["latency_seconds"]; ok {
			t.Errorf("GET /state/R7 body = %v, expected latency_seconds to be omitted", body)
		}
	})

	t.Run("unknown road", func(t *testing.T) {
		var body map[string]any
		if code := getJSON(t, handler, "/state/R404", &body); code != http.StatusOK {
			t.Errorf("GET /state/R404 status = %d, expected 200", code)
		}
		if diff := cmp.Diff(map[string]any{}, body); diff != "" {
			t.Errorf("GET /state/R404 body mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("full state", func(t *testing.T) {
		var body map[string]map[string]any
		if code := getJSON(t, handler, "/state", &body); code != http.StatusOK {
			t.Errorf("GET /state status = %d, expected 200", code)
		}
		if len(body) != 2 {
			t.Errorf("GET /state returned %d roads, expected 2", len(body))
		}
		if got := body["R7"]["congestion"]; got != float64(15) {
			t.Errorf("GET /state R7 congestion = %v, expected 15", got)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		var body roadtwin.MetricsSnapshot
		if code := getJSON(t, handler, "/metrics", &body); code != http.StatusOK {
			t.Errorf("GET /metrics status = %d, expected 200", code)
		}
		if body.ActiveRoads != 2 || body.ActiveSensors != 2 || body.EventsTotal != 2 {
			t.Errorf("GET /metrics = %+v, expected 2 roads, 2 sensors, 2 events", body)
		}
		if body.UptimeSeconds <= 0 {
			t.Errorf("GET /metrics uptime = %v, expected a positive value", body.UptimeSeconds)
		}
	})
}
