package roadtwin

import "time"

// uptimeEpsilon floors the uptime used for rate derivation so a snapshot
// taken immediately after startup cannot divide by zero.
const uptimeEpsilon = 1e-6

// A MetricsSnapshot is a point-in-time summary of the twin's operational
// state. All values are computed at snapshot time from the same underlying
// view of the store; none are cached.
type MetricsSnapshot struct {
	// ActiveRoads counts roads with at least one processed event;
	// ActiveSensors counts distinct sensors currently owning a road's latest
	// reading. A sensor whose readings have all been superseded is not counted.
	ActiveRoads   int `json:"active_roads"`
	ActiveSensors int `json:"active_sensors"`
	// EventsTotal is the number of events the twin has applied since startup.
	EventsTotal int64 `json:"events_total"`
	// EventsPerSecond is EventsTotal averaged over the whole process uptime.
	// It is an approximation, not a windowed rate.
	EventsPerSecond float64 `json:"events_per_sec_approx"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// An Aggregator derives metrics snapshots from a live store. It holds no
// state of its own.
type Aggregator struct {
	store *Store
	now   func() time.Time
}

// NewAggregator returns an Aggregator summarising the given store.
func NewAggregator(s *Store) *Aggregator {
	return &Aggregator{
		store: s,
		now:   time.Now,
	}
}

// Collect computes a fresh snapshot. The road and sensor counts come from one
// store snapshot, so they are mutually consistent; the event counter is read
// separately and may be marginally ahead under concurrent writes.
func (a *Aggregator) Collect() MetricsSnapshot {
	roads := a.store.Snapshot()

	sensors := make(map[string]struct{}, len(roads))
	for _, state := range roads {
		sensors[state.LastSensor] = struct{}{}
	}

	uptime := a.now().Sub(a.store.Started()).Seconds()
	if uptime < uptimeEpsilon {
		uptime = uptimeEpsilon
	}
	total := a.store.Processed()

	return MetricsSnapshot{
		ActiveRoads:     len(roads),
		ActiveSensors:   len(sensors),
		EventsTotal:     total,
		EventsPerSecond: float64(total) / uptime,
		UptimeSeconds:   uptime,
	}
}
