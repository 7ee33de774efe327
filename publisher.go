package roadtwin

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/pubsub"
)

// A Publisher hands stamped events to the bus for delivery to all current
// subscribers. One fire-and-forget publish per event; delivery, persistence,
// and clustering are the broker's concern.
type Publisher struct {
	topicName string
	sink      *pubsub.Topic
}

// NewPublisher returns a Publisher that sends every event to the given sink.
// The topic name is only used to label telemetry records; the sink itself is
// already bound to a concrete topic.
func NewPublisher(topicName string, sink *pubsub.Topic) *Publisher {
	return &Publisher{
		topicName: topicName,
		sink:      sink,
	}
}

// Publish encodes the event into its bus envelope and submits it to the
// pubsub service. A rejected or failed hand-off returns a *PublishError; the
// event is then lost, as this path keeps no local queue.
func (p *Publisher) Publish(ctx context.Context, ev StampedEvent) (err error) {
	ctx, span := tracer.Start(ctx, "publisher.Publish", trace.WithAttributes(
		attribute.String("road.id", ev.RoadID),
	))
	defer span.End()

	defer func(start time.Time) {
		success := err == nil
		elapsed := time.Since(start)
		measurePublish(ctx, p.topicName, success, elapsed)
	}(time.Now())

	b, err := EncodeEvent(ev)
	if err != nil {
		err = fmt.Errorf("encode event: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// To ensure ordered message delivery with partitioned messaging brokers,
	// messages can be produced with a key. The road identifier is included as
	// metadata on the message so that a keyed broker keeps all events of one
	// road on the same partition, preserving per-road delivery order even if
	// the single consumer is ever split into several.
	msg := &pubsub.Message{Body: b, Metadata: map[string]string{"roadID": ev.RoadID}}
	if sendErr := p.sink.Send(ctx, msg); sendErr != nil {
		err = &PublishError{Cause: sendErr}
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
