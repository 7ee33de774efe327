package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roadtwin/roadtwin"
)

// RoutingRouter builds the handler tree of the routing service. Like the
// ingestion surface, it reports domain outcomes in the body with HTTP 200:
// an unknown road answers with known set to false, and an unreachable twin
// answers with an error field.
func RoutingRouter(estimator *roadtwin.Estimator) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/route/:road_id", func(c *gin.Context) {
		roadID := c.Param("road_id")

		estimate, err := estimator.Estimate(c.Request.Context(), roadID)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{
				"road_id": roadID,
				"error":   err.Error(),
			})
			return
		}
		if !estimate.Known {
			c.JSON(http.StatusOK, gin.H{
				"road_id": roadID,
				"known":   false,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"road_id":                  estimate.RoadID,
			"congestion":               estimate.Congestion,
			"estimated_travel_time_min": estimate.TravelTimeMinutes,
		})
	})

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/readyz", func(c *gin.Context) { c.Status(http.StatusOK) })

	return router
}
