package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config contains runtime configuration required by the service.
type Config struct {
	DBURL      string
	ListenAddr string
	APIKeys    map[string]struct{} // empty = auth disabled
	LogLevel   zerolog.Level
}

// Load reads required values from environment variables, after loading
// an optional .env file for local development.
//
//	DB_URL       required; postgres:// URL, sqlite file path, or "memory"
//	LISTEN_ADDR  default ":8080"
//	API_KEYS     optional comma-separated allow-list; empty disables auth
//	LOG_LEVEL    zerolog level name, default "info"
func Load() (Config, error) {
	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return Config{}, errors.New("DB_URL required")
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	apiKeys := map[string]struct{}{}
	for _, k := range strings.Split(os.Getenv("API_KEYS"), ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			apiKeys[k] = struct{}{}
		}
	}

	level := zerolog.InfoLevel
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		parsed, err := zerolog.ParseLevel(raw)
		if err != nil {
			return Config{}, errors.New("LOG_LEVEL must be a zerolog level name")
		}
		level = parsed
	}

	return Config{
		DBURL:      dbURL,
		ListenAddr: listenAddr,
		APIKeys:    apiKeys,
		LogLevel:   level,
	}, nil
}
