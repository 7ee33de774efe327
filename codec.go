package roadtwin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EventSchema versions the bus payload layout. Bump it when the envelope
// changes incompatibly; the decoder rejects any other version outright.
const EventSchema = 1

// wireEvent is the field-tagged envelope carried on the bus. All five event
// fields travel as scalars; Congestion is a pointer so that an absent field
// can be told apart from a legitimate zero.
type wireEvent struct {
	Schema     int    `json:"schema"`
	SensorID   string `json:"sensor_id"`
	RoadID     string `json:"road_id"`
	Congestion *int   `json:"congestion"`
	Timestamp  string `json:"timestamp"`
}

// EncodeEvent serialises a stamped event into its versioned bus envelope.
func EncodeEvent(ev StampedEvent) ([]byte, error) {
	congestion := ev.Congestion
	w := wireEvent{
		Schema:     EventSchema,
		SensorID:   ev.SensorID,
		RoadID:     ev.RoadID,
		Congestion: &congestion,
		Timestamp:  ev.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	p, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return p, nil
}

// DecodeEvent reconstructs a stamped event from its bus envelope, validating
// the payload against the schema. Unknown fields, a foreign schema version, a
// missing road identifier, and a missing or negative congestion value are all
// decode errors: the consumer drops such messages whole.
//
// Two fields degrade instead of failing, mirroring what producers actually
// emit: an absent sensor identifier decodes as "unknown", and an unparseable
// timestamp decodes as the zero time so the state update can still proceed
// with latency recorded absent.
func DecodeEvent(p []byte) (StampedEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.DisallowUnknownFields()

	var w wireEvent
	if err := dec.Decode(&w); err != nil {
		return StampedEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if w.Schema != EventSchema {
		return StampedEvent{}, fmt.Errorf("unsupported event schema %d", w.Schema)
	}
	if w.RoadID == "" {
		return StampedEvent{}, fmt.Errorf("event is missing road_id")
	}
	if w.Congestion == nil {
		return StampedEvent{}, fmt.Errorf("event is missing congestion")
	}
	if *w.Congestion < 0 {
		return StampedEvent{}, fmt.Errorf("event congestion %d is negative", *w.Congestion)
	}

	ev := StampedEvent{
		SensorID:   w.SensorID,
		RoadID:     w.RoadID,
		Congestion: *w.Congestion,
	}
	if ev.SensorID == "" {
		ev.SensorID = "unknown"
	}
	// A malformed timestamp must not block the rest of the update; the zero
	// time marks the stamp as unusable for latency derivation.
	if ts, err := time.Parse(time.RFC3339Nano, w.Timestamp); err == nil {
		ev.Timestamp = ts.UTC()
	}
	return ev, nil
}
