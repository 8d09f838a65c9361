package main

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/PratikDhanave/kv-analytics-service/internal/config"
	"github.com/PratikDhanave/kv-analytics-service/internal/httpserver"
	"github.com/PratikDhanave/kv-analytics-service/internal/store"
)

// main boots the service: config → store → schema → HTTP server.
func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Load runtime config from environment (DB_URL, API_KEYS, ...).
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	logger = logger.Level(cfg.LogLevel)

	// Open the key-value backend selected by DB_URL.
	kv, err := store.Open(cfg.DBURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store")
	}
	defer kv.Close()

	// Ensure the backing table exists so `docker compose up --build` is enough.
	if ensurer, ok := kv.(interface{ EnsureSchema() error }); ok {
		if err := ensurer.EnsureSchema(); err != nil {
			logger.Fatal().Err(err).Msg("ensure schema")
		}
	}

	// Build HTTP router (public health + API endpoints).
	router := httpserver.NewRouter(cfg, kv, logger)

	logger.Info().Str("addr", cfg.ListenAddr).Msg("server started")
	if err := router.Run(cfg.ListenAddr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
