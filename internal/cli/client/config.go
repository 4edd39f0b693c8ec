package client

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/semantrics/internal/config"
	"github.com/cloo-solutions/semantrics/internal/logger"
)

// Persistent flag names shared by every client command.
const (
	flagInterfaceKey = "interface-key"
	flagCollectorURL = "collector-url"
	flagProvider     = "provider"
	flagLogLevel     = "log-level"
	flagUserID       = "user-id"
)

// AddGlobalFlags registers the flags that override environment settings.
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(flagInterfaceKey, "", "Collector interface key (overrides SEMANTRICS_INTERFACE_KEY)")
	cmd.PersistentFlags().String(flagCollectorURL, "", "Collector base URL (overrides SEMANTRICS_COLLECTOR_URL)")
	cmd.PersistentFlags().String(flagProvider, "", "Search provider: npms or registry (overrides SEMANTRICS_PROVIDER)")
	cmd.PersistentFlags().String(flagLogLevel, "", "Log level (overrides SEMANTRICS_LOG_LEVEL)")
	cmd.PersistentFlags().String(flagUserID, "", "Start from this identity instead of a fresh one (overrides SEMANTRICS_USER_ID)")
}

// LoadConfig resolves configuration with the cascade flag → env → default
// and validates the result.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	ApplyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyFlags copies every flag the user set onto cfg.
func ApplyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd == nil {
		return
	}
	set := func(name string, dst *string) {
		if v, err := cmd.Flags().GetString(name); err == nil && v != "" {
			*dst = v
		}
	}
	set(flagInterfaceKey, &cfg.InterfaceKey)
	set(flagCollectorURL, &cfg.CollectorURL)
	set(flagProvider, &cfg.Provider)
	set(flagLogLevel, &cfg.LogLevel)
	set(flagUserID, &cfg.UserID)
}

// NewLogger builds the client logger. The terminal UI owns stdout and
// stderr, so interactive sessions only log to a file.
func NewLogger(cfg *config.Config, interactive bool) (logger.Logger, error) {
	switch {
	case cfg.HasLogFile():
		return logger.New(logger.Config{Level: cfg.LogLevel, OutputPaths: []string{cfg.LogFile}})
	case interactive:
		return logger.NewNop(), nil
	default:
		return logger.New(logger.Config{Level: cfg.LogLevel})
	}
}
