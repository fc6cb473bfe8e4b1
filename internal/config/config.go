package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings, populated from environment variables.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Port        string `env:"PORT" envDefault:"8080"`

	// OntologyDir is the directory holding the domain, relation and rule
	// definition files.
	OntologyDir string `env:"ONTOLOGY_DIR" envDefault:"ontology/defs"`

	// LookbackDays bounds the delivery-entry read when building a live
	// rule context.
	LookbackDays int `env:"LOOKBACK_DAYS" envDefault:"30"`

	// ScheduleInterval enables the background evaluation loop when > 0.
	ScheduleInterval time.Duration `env:"SCHEDULE_INTERVAL" envDefault:"0"`

	// NotifyCooldown suppresses repeat alerts for the same rule/record
	// within the window. 0 re-sends on every pass.
	NotifyCooldown  time.Duration `env:"NOTIFY_COOLDOWN" envDefault:"0"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT" envDefault:"10s"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Load parses the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.LookbackDays < 1 {
		return Config{}, fmt.Errorf("LOOKBACK_DAYS must be at least 1, got %d", cfg.LookbackDays)
	}
	return cfg, nil
}
