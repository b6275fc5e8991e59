package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting. All values come from the environment;
// main loads an optional .env file before processing.
type Config struct {
	Addr     string `envconfig:"ADDR" default:":8080"`
	RedisURL string `envconfig:"REDIS_URL"`

	// Optional Postgres archive of finished games. Disabled when empty.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// TTL shared by session and game records.
	RecordTTL time.Duration `envconfig:"RECORD_TTL" default:"24h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.RecordTTL <= 0 {
		return nil, fmt.Errorf("RECORD_TTL must be positive")
	}
	return &cfg, nil
}
