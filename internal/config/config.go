package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
	StoreSQLite = "sqlite"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`
	LogLevelName    string        `env:"LOG_LEVEL" envDefault:"info"`
	StoreDriver     string        `env:"STORE_DRIVER" envDefault:"bolt"`
	StorePath       string        `env:"STORE_PATH" envDefault:"./raffle.db"`
	RevealTick      time.Duration `env:"REVEAL_TICK" envDefault:"50ms"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	BodyLimit       string        `env:"BODY_LIMIT" envDefault:"2M"`
	OTelEndpoint    string        `env:"OTEL_ENDPOINT"`
	OTelEnabled     bool          `env:"OTEL_ENABLED" envDefault:"true"`

	LogLevel slog.Level
}

func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	level, err := parseLogLevel(c.LogLevelName)
	if err != nil {
		return Config{}, err
	}
	c.LogLevel = level

	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreMemory:
	case StoreBolt, StoreSQLite:
		if strings.TrimSpace(c.StorePath) == "" {
			return Config{}, fmt.Errorf("STORE_PATH is required when STORE_DRIVER=%s", c.StoreDriver)
		}
	default:
		return Config{}, fmt.Errorf("invalid STORE_DRIVER %q", c.StoreDriver)
	}

	if c.RevealTick <= 0 {
		return Config{}, fmt.Errorf("REVEAL_TICK must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}

	return c, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
