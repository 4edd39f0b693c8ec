package client

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/semantrics/internal/logger"
	"github.com/cloo-solutions/semantrics/internal/ui"
)

// SearchCmd creates the interactive search command.
func SearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search",
		Short: "Search npm packages interactively",
		Long: `Opens the terminal search UI. Results appear as you type; enter opens the
highlighted result in the browser and reports the click to the collector.`,
		Args: cobra.NoArgs,
		RunE: runInteractive,
	}
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := NewLogger(cfg, true)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	app, err := NewApp(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	model := ui.NewModel(app.Coordinator, app.Identity, ui.Options{Logger: log})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	ui.Forward(ctx, app.Coordinator, p.Send)

	_, runErr := p.Run()
	cancel()

	drainCtx, drainCancel := app.drainContext(cmd.Context())
	defer drainCancel()
	if err := app.Close(drainCtx); err != nil {
		log.Warn("telemetry not fully drained", logger.Error(err))
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal ui: %w", runErr)
	}
	return nil
}
