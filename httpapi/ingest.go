// Package httpapi exposes the pipeline's HTTP surfaces: the ingestion
// endpoint for sensor readings, the twin's state and metrics views, and the
// routing estimates. Each surface builds a gin handler tree so the three
// services can mount exactly the routes they own.
//
// Domain failures on these surfaces travel in the response body with HTTP
// 200; the HTTP status code is reserved for transport-level problems. Clients
// of the ingestion surface dispatch on the body's status field, not on the
// status line.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roadtwin/roadtwin"
)

// An ingestRequest is the JSON body accepted by the ingestion endpoint.
// Congestion is a pointer so an absent field fails validation instead of
// silently reading as zero.
type ingestRequest struct {
	SensorID   string `json:"sensor_id"`
	RoadID     string `json:"road_id"`
	Congestion *int   `json:"congestion"`
}

// IngestRouter builds the handler tree of the ingestion service.
func IngestRouter(gateway *roadtwin.Gateway) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/ingest", func(c *gin.Context) {
		var req ingestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, gin.H{
				"status": "validation_error",
				"error":  "body is not a valid reading: " + err.Error(),
			})
			return
		}

		if req.Congestion == nil {
			c.JSON(http.StatusOK, gin.H{
				"status": "validation_error",
				"error":  "congestion: must be present",
			})
			return
		}

		reading := roadtwin.Reading{
			SensorID:   req.SensorID,
			RoadID:     req.RoadID,
			Congestion: *req.Congestion,
		}
		_, err := gateway.Ingest(c.Request.Context(), reading)

		var verr *roadtwin.ValidationError
		var perr *roadtwin.PublishError
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"status": "published"})
		case errors.As(err, &verr):
			c.JSON(http.StatusOK, gin.H{
				"status": "validation_error",
				"error":  verr.Error(),
			})
		case errors.As(err, &perr):
			c.JSON(http.StatusOK, gin.H{
				"status": "publish_error",
				"error":  perr.Error(),
			})
		default:
			c.JSON(http.StatusOK, gin.H{
				"status": "publish_error",
				"error":  err.Error(),
			})
		}
	})

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/readyz", func(c *gin.Context) { c.Status(http.StatusOK) })

	return router
}
