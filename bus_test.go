package roadtwin_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	. "github.com/roadtwin/roadtwin"
	"github.com/roadtwin/roadtwin/internal/bustest"
)

// The same pipeline as TestPipeline, but over a real broker. Verifies that
// the envelope and the roadID metadata survive the rabbit driver intact.
func TestPipelineOverRabbit(t *testing.T) {
	conn := bustest.SetupRabbit(t)
	sink, source := bustest.OpenBus(t, conn, "traffic.events")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gateway := NewGateway(NewPublisher("traffic.events", sink))
	store := NewStore()

	published, err := gateway.Ingest(ctx, Reading{SensorID: "S1", RoadID: "R42", Congestion: 40})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	msg, err := source.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	msg.Ack()

	ev, err := DecodeEvent(msg.Body)
	if err != nil {
		t.Fatalf("DecodeEvent(%s) failed: %v", msg.Body, err)
	}
	if diff := cmp.Diff(published, ev); diff != "" {
		t.Errorf("Delivered event mismatch (-want +got):\n%s", diff)
	}

	store.Apply(ev)
	state, ok := store.Road("R42")
	if !ok {
		t.Fatal("Road(R42) not found after applying the delivered event")
	}
	if state.Congestion != 40 || state.LastSensor != "S1" {
		t.Errorf("Road(R42) = %+v, expected congestion 40 from S1", state)
	}
}
