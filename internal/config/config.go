package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL" required:"true"`

	// Bounds of the random pause between two auto-generated crisis events.
	SchedulerMinDelay time.Duration `envconfig:"SCHEDULER_MIN_DELAY" default:"15s"`
	SchedulerMaxDelay time.Duration `envconfig:"SCHEDULER_MAX_DELAY" default:"30s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}

	// envconfig lets an explicitly empty variable through its required
	// check, so guard here.
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL must not be empty")
	}
	if cfg.RedisURL == "" {
		return Config{}, errors.New("REDIS_URL must not be empty")
	}

	if cfg.SchedulerMinDelay <= 0 {
		return Config{}, fmt.Errorf("SCHEDULER_MIN_DELAY must be positive, got %s", cfg.SchedulerMinDelay)
	}
	if cfg.SchedulerMaxDelay < cfg.SchedulerMinDelay {
		return Config{}, fmt.Errorf(
			"SCHEDULER_MAX_DELAY (%s) must not be below SCHEDULER_MIN_DELAY (%s)",
			cfg.SchedulerMaxDelay, cfg.SchedulerMinDelay,
		)
	}

	return cfg, nil
}
