package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is loaded from the environment. Every knob has a default that works
// for local development against an in-memory store.
type Config struct {
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":8080"`
	PostgresDSN     string        `env:"POSTGRES_DSN"`
	AuthSecret      string        `env:"AUTH_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST" envDefault:"100"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	NotifyInterval  time.Duration `env:"NOTIFY_POLL_INTERVAL" envDefault:"2s"`
	NotifyMaxTries  int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"8"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "DCPR_"}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("config: DCPR_TOKEN_TTL must be positive")
	}
	return cfg, nil
}

// UsePostgres reports whether a durable store was configured.
func (c Config) UsePostgres() bool { return c.PostgresDSN != "" }
