package roadtwin

import (
	"time"
)

// A Reading is the raw congestion observation emitted by a single sensor, as
// received at the ingestion boundary. It carries no timestamp; time is
// assigned by the gateway when the reading is accepted.
type Reading struct {
	SensorID   string `json:"sensor_id"`
	RoadID     string `json:"road_id"`
	Congestion int    `json:"congestion"`
}

// Validate reports the first constraint the reading violates, if any.
//
// Congestion is a percentage-like load value. Domain producers emit 0-100,
// but only non-negativity is enforced here so that a future sensor class with
// a wider scale does not get rejected at the boundary.
func (r Reading) Validate() error {
	if r.SensorID == "" {
		return &ValidationError{Field: "sensor_id", Reason: "must not be empty"}
	}
	if r.RoadID == "" {
		return &ValidationError{Field: "road_id", Reason: "must not be empty"}
	}
	if r.Congestion < 0 {
		return &ValidationError{Field: "congestion", Reason: "must not be negative"}
	}
	return nil
}

// A StampedEvent is a Reading plus the single producer-assigned timestamp, as
// published on the bus. The bus delivers it unmodified to the consumer.
type StampedEvent struct {
	SensorID   string
	RoadID     string
	Congestion int
	// The time, in UTC, the reading was accepted by the ingestion gateway.
	// The information in this event is accurate up to this timestamp, not a
	// moment afterwards.
	//
	// A zero Timestamp on the consumer side means the producer stamp could not
	// be parsed; derived latency is then recorded absent.
	Timestamp time.Time
}

// Stamp constructs the bus event for a validated reading. The given instant
// is normalised to UTC so that consumer-side latency derivation does not
// depend on the producer's local zone.
func Stamp(r Reading, now time.Time) StampedEvent {
	return StampedEvent{
		SensorID:   r.SensorID,
		RoadID:     r.RoadID,
		Congestion: r.Congestion,
		Timestamp:  now.UTC(),
	}
}
