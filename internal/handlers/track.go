package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/kv-analytics-service/internal/ingest"
	"github.com/PratikDhanave/kv-analytics-service/internal/models"
)

// RegisterTrackRoutes registers the ingestion-path endpoint.
//
// POST /track
// - event and user_id are required; timestamp (RFC 3339) and metadata
//   are optional
// - validation failures return 400 before the ingestor runs
// - a store failure returns a generic 500; writes already committed
//   stay committed
func RegisterTrackRoutes(r gin.IRoutes, ing *ingest.Ingestor) {
	r.POST("/track", func(c *gin.Context) {
		var req models.TrackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "event and user_id are required"})
			return
		}

		if req.Timestamp != "" {
			if _, err := time.Parse(time.RFC3339, req.Timestamp); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "timestamp must be RFC3339"})
				return
			}
		}

		if err := ing.Record(c.Request.Context(), req); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to log event."})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Event logged."})
	})
}
