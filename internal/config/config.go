package config

import (
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/semantrics/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "SEMANTRICS"

type Config struct {
	InterfaceKey string   `envconfig:"INTERFACE_KEY"`
	CollectorURL string   `envconfig:"COLLECTOR_URL" default:"https://rcn3mxcjwd.execute-api.us-east-1.amazonaws.com/dev/"`
	Metadata     []string `envconfig:"METADATA" default:"experimentA,variantC"`

	// UserID pins the starting session identity; empty mints a random one.
	UserID string `envconfig:"USER_ID"`

	Provider      string        `envconfig:"PROVIDER" default:"npms"`
	ProviderURL   string        `envconfig:"PROVIDER_URL"`
	SearchTimeout time.Duration `envconfig:"SEARCH_TIMEOUT" default:"0s"`
	Debounce      time.Duration `envconfig:"DEBOUNCE" default:"300ms"`

	TelemetryWorkers   int           `envconfig:"TELEMETRY_WORKERS" default:"4"`
	TelemetryQueueSize int           `envconfig:"TELEMETRY_QUEUE_SIZE" default:"256"`
	TelemetryTimeout   time.Duration `envconfig:"TELEMETRY_TIMEOUT" default:"10s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE" default:"semantrics.log"`

	SentryDSN         string `envconfig:"SENTRY_DSN"`
	SentryEnvironment string `envconfig:"SENTRY_ENVIRONMENT" default:"development"`

	// Address the local development collector listens on.
	CollectorAddr string `envconfig:"COLLECTOR_ADDR" default:":8090"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks the settings the search client cannot run without. The
// development collector skips it.
func (c *Config) Validate() error {
	if c.InterfaceKey == "" {
		return fmt.Errorf("%s_INTERFACE_KEY: %w", envPrefix, domain.ErrMissingInterfaceKey)
	}
	if c.CollectorURL == "" {
		return fmt.Errorf("%s_COLLECTOR_URL must not be empty", envPrefix)
	}
	if c.TelemetryWorkers < 1 {
		return fmt.Errorf("%s_TELEMETRY_WORKERS must be at least 1", envPrefix)
	}
	return nil
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

func (c *Config) HasLogFile() bool {
	return c.LogFile != "" && c.LogFile != "-"
}
