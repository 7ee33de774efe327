package roadtwin

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gocloud.dev/pubsub"
	"golang.org/x/sync/errgroup"
)

func TestStoreApply(t *testing.T) {
	base := time.Date(2026, time.September, 1, 9, 30, 0, 0, time.UTC)

	t.Run("later delivery wins", func(t *testing.T) {
		s := NewStore()
		s.now = func() time.Time { return base.Add(time.Second) }

		// The second event carries an older producer stamp than the first. It
		// still wins, because conflicts resolve by processing order.
		s.Apply(StampedEvent{SensorID: "S1", RoadID: "R42", Congestion: 80, Timestamp: base})
		s.Apply(StampedEvent{SensorID: "S2", RoadID: "R42", Congestion: 20, Timestamp: base.Add(-time.Hour)})

		got, ok := s.Road("R42")
		if !ok {
			t.Fatal("Road(R42) not found after two applies")
		}
		want := RoadState{
			Congestion:   20,
			UpdatedAt:    base.Add(-time.Hour),
			LastSensor:   "S2",
			Latency:      time.Hour + time.Second,
			LatencyKnown: true,
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Road(R42) mismatch (-want +got):\n%s", diff)
		}
		if n := s.Processed(); n != 2 {
			t.Errorf("Processed() = %d, expected 2", n)
		}
	})

	t.Run("zero timestamp leaves latency unknown", func(t *testing.T) {
		s := NewStore()
		s.Apply(StampedEvent{SensorID: "S1", RoadID: "R7", Congestion: 5})

		got, ok := s.Road("R7")
		if !ok {
			t.Fatal("Road(R7) not found")
		}
		if got.LatencyKnown {
			t.Errorf("Road(R7).LatencyKnown = true, expected false for an unstamped event")
		}
		if got.Latency != 0 {
			t.Errorf("Road(R7).Latency = %v, expected 0", got.Latency)
		}
	})

	t.Run("unknown road", func(t *testing.T) {
		s := NewStore()
		if _, ok := s.Road("nowhere"); ok {
			t.Error("Road(nowhere) = true on an empty store, expected false")
		}
	})
}

func TestStoreSnapshot(t *testing.T) {
	s := NewStore()
	s.Apply(StampedEvent{SensorID: "S1", RoadID: "R1", Congestion: 10})

	snapshot := s.Snapshot()

	// A later write must not show through an already-taken snapshot.
	s.Apply(StampedEvent{SensorID: "S2", RoadID: "R1", Congestion: 99})
	s.Apply(StampedEvent{SensorID: "S2", RoadID: "R2", Congestion: 50})

	if len(snapshot) != 1 {
		t.Fatalf("Snapshot holds %d roads, expected 1", len(snapshot))
	}
	if got := snapshot["R1"].Congestion; got != 10 {
		t.Errorf("Snapshot[R1].Congestion = %d, expected 10", got)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	const (
		writes  = 2000
		readers = 8
	)

	s := NewStore()

	// Each write keeps congestion and sensor in lockstep, so any torn read
	// surfaces as a mismatch between the two.
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		for i := range writes {
			s.Apply(StampedEvent{
				SensorID:   "S" + strconv.Itoa(i),
				RoadID:     "R1",
				Congestion: i,
			})
		}
		return nil
	})
	for range readers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				state, ok := s.Road("R1")
				if !ok {
					continue
				}
				if want := "S" + strconv.Itoa(state.Congestion); state.LastSensor != want {
					return fmt.Errorf("torn read: congestion=%d sensor=%q", state.Congestion, state.LastSensor)
				}
				if state.Congestion == writes-1 {
					return nil
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if n := s.Processed(); n != writes {
		t.Errorf("Processed() = %d, expected %d", n, writes)
	}
}

func TestStoreHandleMessage(t *testing.T) {
	s := NewStore()
	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	encode := func(t *testing.T, ev StampedEvent) []byte {
		t.Helper()
		p, err := EncodeEvent(ev)
		if err != nil {
			t.Fatalf("EncodeEvent(%+v) failed: %v", ev, err)
		}
		return p
	}

	// A poison message delivered between two valid ones is dropped without
	// affecting either neighbour.
	first := encode(t, StampedEvent{SensorID: "S1", RoadID: "R1", Congestion: 10, Timestamp: time.Now().UTC()})
	poison := []byte(`{"schema":1,"sensor_id":"S1"}`)
	second := encode(t, StampedEvent{SensorID: "S2", RoadID: "R2", Congestion: 20, Timestamp: time.Now().UTC()})

	if err := s.handleMessage(ctx, logger, &pubsub.Message{Body: first}); err != nil {
		t.Errorf("handleMessage(first) failed: %v", err)
	}
	if err := s.handleMessage(ctx, logger, &pubsub.Message{Body: poison}); err == nil {
		t.Error("handleMessage(poison) succeeded, expected an error")
	}
	if err := s.handleMessage(ctx, logger, &pubsub.Message{Body: second}); err != nil {
		t.Errorf("handleMessage(second) failed: %v", err)
	}

	if n := s.Processed(); n != 2 {
		t.Errorf("Processed() = %d, expected 2 after dropping the poison message", n)
	}
	if _, ok := s.Road("R1"); !ok {
		t.Error("Road(R1) lost after a poison message")
	}
	if _, ok := s.Road("R2"); !ok {
		t.Error("Road(R2) missing after a poison message")
	}
}
