package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/PratikDhanave/kv-analytics-service/internal/auth"
	"github.com/PratikDhanave/kv-analytics-service/internal/config"
	"github.com/PratikDhanave/kv-analytics-service/internal/handlers"
	"github.com/PratikDhanave/kv-analytics-service/internal/ingest"
	"github.com/PratikDhanave/kv-analytics-service/internal/query"
	"github.com/PratikDhanave/kv-analytics-service/internal/store"
)

// NewRouter wires public endpoints and the tracking/aggregation APIs.
// Public: /health, /ready
// API (behind X-API-Key when API_KEYS is set): /track, /metrics, /sessions
func NewRouter(cfg config.Config, kv store.KV, logger zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(logger))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the store dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := kv.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	api := r.Group("/")
	if len(cfg.APIKeys) > 0 {
		api.Use(auth.APIKeyMiddleware(cfg.APIKeys))
	}

	ing := ingest.New(kv, clockwork.NewRealClock())
	agg := query.New(kv)

	handlers.RegisterTrackRoutes(api, ing)
	handlers.RegisterMetricRoutes(api, agg)

	return r
}
