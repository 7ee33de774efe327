package roadtwin

import "errors"

// A ValidationError rejects a reading at the ingestion boundary before any
// publication happens. It is terminal for the request that carried the
// reading and has no partial effect.
type ValidationError struct {
	Field  string // offending reading field, e.g. "road_id"
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid reading: " + e.Field + " " + e.Reason
}

// A PublishError reports that the bus rejected a stamped event or was
// unreachable. The event is lost; retrying is up to the caller, never the
// gateway.
type PublishError struct {
	Cause error
}

func (e *PublishError) Error() string {
	return "publish event: " + e.Cause.Error()
}

func (e *PublishError) Unwrap() error {
	return e.Cause
}

// ErrTwinUnavailable indicates a cross-process read of the twin state failed
// or timed out. It is distinct from an unknown road, which is an expected
// empty result rather than a failure.
var ErrTwinUnavailable = errors.New("twin state unavailable")
