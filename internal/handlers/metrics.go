package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/kv-analytics-service/internal/query"
)

// parseAggregationParams validates the query parameters shared by the
// two aggregation endpoints. On failure it writes a 400 response and
// returns ok=false.
//
//	start_date, end_date  required, YYYY-MM-DD, inclusive
//	group_by              day|week|month, default day
//	user_id               optional filter
func parseAggregationParams(c *gin.Context) (query.Params, bool) {
	startStr := c.Query("start_date")
	endStr := c.Query("end_date")
	if startStr == "" || endStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "start_date and end_date are required"})
		return query.Params{}, false
	}

	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "start_date must be YYYY-MM-DD"})
		return query.Params{}, false
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "end_date must be YYYY-MM-DD"})
		return query.Params{}, false
	}

	groupBy, ok := query.ParseInterval(c.Query("group_by"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "group_by must be day, week or month"})
		return query.Params{}, false
	}

	return query.Params{
		Start:   start,
		End:     end,
		GroupBy: groupBy,
		UserID:  c.Query("user_id"),
	}, true
}

// RegisterMetricRoutes registers the serving-path endpoints.
//
// GET /metrics  — per-bucket event counts
// GET /sessions — per-bucket session duration totals
// Any store failure aborts the whole query with a generic 500; partial
// aggregates are never returned.
func RegisterMetricRoutes(r gin.IRoutes, agg *query.Aggregator) {
	r.GET("/metrics", func(c *gin.Context) {
		p, ok := parseAggregationParams(c)
		if !ok {
			return
		}

		rows, err := agg.Metrics(c.Request.Context(), p)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to fetch metrics."})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "data": rows})
	})

	r.GET("/sessions", func(c *gin.Context) {
		p, ok := parseAggregationParams(c)
		if !ok {
			return
		}

		rows, err := agg.Sessions(c.Request.Context(), p)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to fetch session metrics."})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "data": rows})
	})
}
