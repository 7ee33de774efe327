package roadtwin

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Default travel-time model parameters. Ten minutes of free-flow travel, plus
// six seconds of delay per congestion unit.
const (
	DefaultBaseTravelTime = 10 * time.Minute
	DefaultUnitDelay      = 6 * time.Second
)

// A StateReader answers point queries about the twin's current road states.
// It abstracts over where the twin lives: in-process (see LocalTwin) or behind
// an HTTP surface (see the httpapi client).
//
// An unknown road is reported through ok with a nil error. A non-nil error
// means the twin could not be consulted at all and says nothing about whether
// the road exists.
type StateReader interface {
	Road(ctx context.Context, roadID string) (state RoadState, ok bool, err error)
}

// An Estimate is the estimator's answer for one road. Known reports whether
// the twin had any state for the road; when it is false the remaining fields
// are meaningless.
type Estimate struct {
	RoadID            string
	Known             bool
	Congestion        int
	TravelTimeMinutes float64
}

// An Estimator derives travel-time estimates from the twin's current
// congestion picture using a linear model: a fixed base travel time plus a
// fixed delay per congestion unit.
//
// The zero value is not usable; construct with NewEstimator.
type Estimator struct {
	twin StateReader

	baseTravelTime time.Duration
	unitDelay      time.Duration
}

// NewEstimator returns an Estimator reading road states from the given twin.
// Non-positive model parameters fall back to the defaults.
func NewEstimator(twin StateReader, baseTravelTime, unitDelay time.Duration) *Estimator {
	if baseTravelTime <= 0 {
		baseTravelTime = DefaultBaseTravelTime
	}
	if unitDelay <= 0 {
		unitDelay = DefaultUnitDelay
	}
	return &Estimator{
		twin:           twin,
		baseTravelTime: baseTravelTime,
		unitDelay:      unitDelay,
	}
}

// Estimate computes the travel-time estimate for one road from the twin's
// current state. A road the twin has never seen yields Known == false; that is
// an answer, not an error. An error is returned only when the twin itself
// could not be consulted, and then wraps ErrTwinUnavailable.
//
// The reported travel time is rounded to one decimal place of minutes, which
// is the precision the model honestly supports.
func (e *Estimator) Estimate(ctx context.Context, roadID string) (Estimate, error) {
	state, ok, err := e.twin.Road(ctx, roadID)
	if err != nil {
		return Estimate{}, fmt.Errorf("consult twin for road %q: %w", roadID, err)
	}
	if !ok {
		return Estimate{RoadID: roadID}, nil
	}

	total := e.baseTravelTime + time.Duration(state.Congestion)*e.unitDelay
	minutes := math.Round(total.Minutes()*10) / 10
	return Estimate{
		RoadID:            roadID,
		Known:             true,
		Congestion:        state.Congestion,
		TravelTimeMinutes: minutes,
	}, nil
}

// A localTwin adapts an in-process Store to the StateReader interface. Its
// lookups cannot fail.
type localTwin struct {
	store *Store
}

// LocalTwin returns a StateReader backed directly by the given store.
func LocalTwin(s *Store) StateReader {
	return localTwin{store: s}
}

func (t localTwin) Road(_ context.Context, roadID string) (RoadState, bool, error) {
	state, ok := t.store.Road(roadID)
	return state, ok, nil
}
