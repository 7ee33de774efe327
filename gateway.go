package roadtwin

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/danielorbach/go-component"
)

// The gateway self-reports its throughput once per this many successfully
// published events. The counter exists only for that report; correctness
// never depends on it.
const throughputLogInterval = 1000

// The Gateway is the ingestion boundary of the pipeline: it validates each
// incoming reading, stamps it with the producer timestamp, and hands it to
// the bus.
//
// A Gateway is safe for concurrent use; one Ingest call runs per inbound
// request.
type Gateway struct {
	publisher *Publisher

	processed atomic.Int64
	started   time.Time
	now       func() time.Time
}

// NewGateway returns a ready-to-use Gateway publishing through the given
// Publisher.
func NewGateway(p *Publisher) *Gateway {
	return &Gateway{
		publisher: p,
		started:   time.Now(),
		now:       time.Now,
	}
}

// Ingest accepts one raw reading. An invalid reading fails with a
// *ValidationError and produces no publication. A valid reading is stamped
// with the current UTC instant and published; a failed hand-off to the bus
// fails with a *PublishError and is never retried here - retry policy, if
// any, belongs to the caller.
//
// On success, Ingest returns the event as it was published.
func (g *Gateway) Ingest(ctx context.Context, r Reading) (StampedEvent, error) {
	if err := r.Validate(); err != nil {
		return StampedEvent{}, err
	}

	ev := Stamp(r, g.now())
	if err := g.publisher.Publish(ctx, ev); err != nil {
		return StampedEvent{}, err
	}

	n := g.processed.Add(1)
	if n%throughputLogInterval == 0 {
		elapsed := time.Since(g.started).Seconds()
		var rate float64
		if elapsed > 0 {
			rate = float64(n) / elapsed
		}
		component.Logger(ctx).Info("Ingestion throughput",
			slog.Int64("events", n),
			slog.Float64("events-per-second", rate),
		)
	}
	return ev, nil
}

// Processed returns how many readings this gateway has successfully
// published since it was created. It counts hand-offs to the bus, not
// deliveries, so it may diverge from the twin's own counter under message
// loss.
func (g *Gateway) Processed() int64 {
	return g.processed.Load()
}
