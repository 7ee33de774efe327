package roadtwin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/pubsub"
)

// A RoadState is the twin's current belief about one road. Entries are
// replaced wholesale on each processed update; there is no partial merge.
type RoadState struct {
	// Congestion and UpdatedAt reflect the most recently processed event for
	// the road, in delivery order. UpdatedAt is the producer stamp and is the
	// zero time when that stamp could not be parsed.
	Congestion int
	UpdatedAt  time.Time
	// LastSensor identifies the sensor that owns the road's current reading.
	LastSensor string
	// Latency is the ingestion-to-twin delay observed when the event was
	// processed. It is derived, not authoritative; LatencyKnown is false when
	// the producer stamp was unusable.
	Latency      time.Duration
	LatencyKnown bool
}

// The Store owns the authoritative mapping from road identifier to its latest
// known condition. Exactly one logical writer path exists (the bus
// subscription, see Consume), invoked serially by the transport; arbitrarily
// many readers run concurrently with it.
//
// Readers never block each other. A reader racing with a write observes
// either the pre- or post-update state, never a torn RoadState, because each
// replacement happens under the writer half of the lock.
//
// The mapping grows monotonically: roads are never removed for the lifetime
// of the process, and nothing is persisted across restarts.
type Store struct {
	mu    sync.RWMutex
	roads map[string]RoadState

	// The processed counter is an independent atomic cell, deliberately not
	// protected by the mapping's lock, so counter reads never add latency to
	// the write path.
	processed atomic.Int64
	started   time.Time
	now       func() time.Time
}

// NewStore returns an empty ready-to-use Store.
func NewStore() *Store {
	return &Store{
		roads:   make(map[string]RoadState),
		started: time.Now(),
		now:     time.Now,
	}
}

// Apply records one stamped event, replacing the road's prior state in full.
// The later-applied event always wins regardless of its embedded timestamp:
// conflict resolution is by processing order, deliberately, and must not be
// "fixed" to compare logical time.
func (s *Store) Apply(ev StampedEvent) RoadState {
	state := RoadState{
		Congestion: ev.Congestion,
		UpdatedAt:  ev.Timestamp,
		LastSensor: ev.SensorID,
	}
	if !ev.Timestamp.IsZero() {
		state.Latency = s.now().UTC().Sub(ev.Timestamp)
		state.LatencyKnown = true
	}

	s.mu.Lock()
	s.roads[ev.RoadID] = state
	s.mu.Unlock()

	s.processed.Add(1)
	return state
}

// Road returns the current state of the given road. An unknown road is an
// expected outcome, reported through ok, not an error.
func (s *Store) Road(roadID string) (state RoadState, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok = s.roads[roadID]
	return state, ok
}

// Snapshot returns a copy of the full mapping as it existed at some single
// instant. The copy is the caller's to keep; further store updates do not
// modify it.
func (s *Store) Snapshot() map[string]RoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.roads)
}

// Processed returns how many delivered events this store has applied. It is
// the store's own counter and may diverge from the gateway's under message
// loss.
func (s *Store) Processed() int64 {
	return s.processed.Load()
}

// Started returns when this store was created. Metrics derive uptime from it.
func (s *Store) Started() time.Time {
	return s.started
}

// Consume returns a component.Proc that continuously receives messages from
// the subscription and applies them to the store, one at a time in delivery
// order.
//
// Every message is acknowledged, decodable or not: the broker delivers
// at-least-once, and redelivering a poison message would only stall the
// subscription on the same failure. An undecodable message is logged,
// counted, and dropped; the store is left unchanged and processing
// continues.
func (s *Store) Consume(source *pubsub.Subscription) component.Proc {
	return func(l *component.L) {
		logger := component.Logger(l.Context())
		for l.Continue() {
			msg, err := source.Receive(l.GraceContext())
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					// we're shutting down
					return
				}
				// Based on the pubsub Receive function documentation, a non-nil
				// error here is non-retryable: the subscription must be recreated
				// or the process must exit. Recreation is handled by process
				// supervision, so terminate.
				l.Fatal(fmt.Errorf("receive: %w", err))
			}
			msg.Ack()

			if err := s.handleMessage(l.GraceContext(), logger, msg); err != nil {
				// One bad message must never crash or stall the subscription,
				// and it must not corrupt other roads' state. Absorb it here.
				logger.Error("Dropped an undecodable event message",
					slog.String("msg.id", msg.LoggableID),
					slog.Any("error", err),
				)
			}
		}
	}
}

// handleMessage handles one delivered message by decoding it into a
// StampedEvent and replacing the corresponding road's state. It returns an
// error only when the message cannot be decoded; the store is then left
// unchanged.
func (s *Store) handleMessage(ctx context.Context, logger *slog.Logger, msg *pubsub.Message) (err error) {
	ctx, span := tracer.Start(ctx, "store.handleMessage", trace.WithAttributes(
		attribute.String("msg.id", msg.LoggableID),
	))
	defer span.End()

	defer func(start time.Time) {
		success := err == nil
		elapsed := time.Since(start)
		measureApply(ctx, success, elapsed)
	}(time.Now())

	ev, err := DecodeEvent(msg.Body)
	if err != nil {
		err = fmt.Errorf("decode event: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	state := s.Apply(ev)
	if state.LatencyKnown {
		logger.Debug("Updated road state",
			slog.String("road", ev.RoadID),
			slog.Int("congestion", ev.Congestion),
			slog.String("sensor", ev.SensorID),
			slog.Float64("latency-seconds", state.Latency.Seconds()),
		)
	} else {
		logger.Debug("Updated road state",
			slog.String("road", ev.RoadID),
			slog.Int("congestion", ev.Congestion),
			slog.String("sensor", ev.SensorID),
		)
	}
	return nil
}
