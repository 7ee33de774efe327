package roadtwin

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/roadtwin/roadtwin")
var meter = otel.Meter("github.com/roadtwin/roadtwin")

// ---- publisher.go ----

const (
	// roadtwinTopicName is the attribute key used to associate each record with
	// the bus topic the event was published to. This enables both collective
	// examination across all topics and individual analysis per topic.
	roadtwinTopicName = "topic"
)

var (
	// publishDuration measures the duration of a single StampedEvent publish,
	// including serialisation and the hand-off to the pubsub service.
	//
	// Each record is associated with the roadtwinTopicName.
	publishDuration metric.Float64Histogram
	// publishFailures measures the number of publishes the bus rejected.
	//
	// Each record is associated with the roadtwinTopicName.
	publishFailures metric.Int64Counter
)

// ---- store.go ----

var (
	// applyDuration measures the duration of handling one delivered message,
	// from decoding the envelope through replacing the road's state.
	applyDuration metric.Float64Histogram
	// decodeFailures measures the number of delivered messages that were
	// dropped because they could not be decoded into a StampedEvent.
	decodeFailures metric.Int64Counter
)

func init() {
	var err error
	publishDuration, err = meter.Float64Histogram(
		"stampedEvent.publish.duration",
		metric.WithDescription("The duration of a single StampedEvent publish, including serialisation and the hand-off to the pubsub service."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("roadtwin: failed to init 'stampedEvent.publish.duration' instrument")
	}

	publishFailures, err = meter.Int64Counter(
		"stampedEvent.publish.failures",
		metric.WithDescription("The number of StampedEvent publishes that the pubsub service rejected."),
	)
	if err != nil {
		panic("roadtwin: failed to init 'stampedEvent.publish.failures' instrument")
	}

	applyDuration, err = meter.Float64Histogram(
		"twin.apply.duration",
		metric.WithDescription("The duration of handling one delivered message, from decoding the envelope through replacing the road's state."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("roadtwin: failed to init 'twin.apply.duration' instrument")
	}

	decodeFailures, err = meter.Int64Counter(
		"twin.decode.failures",
		metric.WithDescription("The number of delivered messages dropped because they could not be decoded into a StampedEvent."),
	)
	if err != nil {
		panic("roadtwin: failed to init 'twin.decode.failures' instrument")
	}
}

// measurePublish measures a single publish attempt using the measurements
// publishDuration and publishFailures. If the publish succeeded, we record
// its duration. If it failed, we increment the failure counter.
//
// Each record is labeled with the relevant topic name. According to [metric]
// documentation, [metric.WithAttributeSet] should be used instead of
// [metric.WithAttributes] for performance optimization.
func measurePublish(ctx context.Context, topic string, succeeded bool, d time.Duration) {
	attrs := attribute.NewSet(attribute.String(roadtwinTopicName, topic))
	if succeeded {
		// We use floating-point division here for higher precision (instead of the
		// Millisecond method).
		duration := float64(d) / float64(time.Millisecond)
		publishDuration.Record(ctx, duration, metric.WithAttributeSet(attrs))
	} else {
		publishFailures.Add(ctx, 1, metric.WithAttributeSet(attrs))
	}
}

// measureApply measures the handling of one delivered message. A succeeded
// handling records its duration; a failed one increments the decode-failure
// counter, because decoding is the only step of a handling that can fail.
func measureApply(ctx context.Context, succeeded bool, d time.Duration) {
	if succeeded {
		duration := float64(d) / float64(time.Millisecond)
		applyDuration.Record(ctx, duration)
	} else {
		decodeFailures.Add(ctx, 1)
	}
}
