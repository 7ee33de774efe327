package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roadtwin/roadtwin"
)

// A roadStateView is the JSON rendering of one road's state. Latency is
// reported in seconds and omitted entirely when it could not be derived.
type roadStateView struct {
	Congestion     int      `json:"congestion"`
	Timestamp      string   `json:"timestamp"`
	LastSensor     string   `json:"last_sensor"`
	LatencySeconds *float64 `json:"latency_seconds,omitempty"`
}

func viewOf(state roadtwin.RoadState) roadStateView {
	v := roadStateView{
		Congestion: state.Congestion,
		LastSensor: state.LastSensor,
	}
	if !state.UpdatedAt.IsZero() {
		v.Timestamp = state.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	if state.LatencyKnown {
		seconds := state.Latency.Seconds()
		v.LatencySeconds = &seconds
	}
	return v
}

// TwinRouter builds the handler tree of the twin service: the full state
// view, per-road lookups, and the operational metrics summary.
func TwinRouter(store *roadtwin.Store, agg *roadtwin.Aggregator) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/state", func(c *gin.Context) {
		snapshot := store.Snapshot()
		views := make(map[string]roadStateView, len(snapshot))
		for roadID, state := range snapshot {
			views[roadID] = viewOf(state)
		}
		c.JSON(http.StatusOK, views)
	})

	// A road the twin has never seen answers with an empty object, the same
	// shape a caller would get for an empty twin, so probing clients need no
	// special case.
	router.GET("/state/:road_id", func(c *gin.Context) {
		state, ok := store.Road(c.Param("road_id"))
		if !ok {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, viewOf(state))
	})

	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, agg.Collect())
	})

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/readyz", func(c *gin.Context) { c.Status(http.StatusOK) })

	return router
}
