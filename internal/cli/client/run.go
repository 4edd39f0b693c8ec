package client

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/semantrics/internal/logger"
)

// withApp wires an App for a non-interactive command, runs fn and drains
// telemetry before returning.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := NewLogger(cfg, false)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	app, err := NewApp(cfg, log)
	if err != nil {
		return err
	}

	runErr := fn(cmd.Context(), app)

	drainCtx, cancel := app.drainContext(cmd.Context())
	defer cancel()
	if err := app.Close(drainCtx); err != nil {
		log.Warn("telemetry not fully drained", logger.Error(err))
	}
	return runErr
}
