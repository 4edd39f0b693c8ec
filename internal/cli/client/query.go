package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/semantrics/internal/coordinator"
	"github.com/cloo-solutions/semantrics/internal/domain"
	"github.com/cloo-solutions/semantrics/internal/logger"
	"github.com/cloo-solutions/semantrics/internal/ui"
)

const summaryWidth = 100

// QueryOptions controls a one-shot query.
type QueryOptions struct {
	// Open is the 1-based row to click after the results print; zero skips it.
	Open      int
	JSON      bool
	NoBrowser bool
	// Opener replaces the system browser.
	Opener func(url string) error
}

// QueryOutput is the --json shape of a one-shot query.
type QueryOutput struct {
	Query   string                `json:"query"`
	UserID  string                `json:"user_id"`
	Results []domain.ResultRecord `json:"results"`
	Opened  *domain.ResultRecord  `json:"opened,omitempty"`
}

// QueryCmd creates the one-shot query command.
func QueryCmd() *cobra.Command {
	var opts QueryOptions

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run one search and print the results",
		Long: `Runs a single search through the same pipeline as the interactive UI, so
the collector receives the query and results events. --open N also clicks row N.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				return RunQuery(ctx, app, cmd.OutOrStdout(), strings.Join(args, " "), opts)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Open, "open", 0, "Click result N (1-based) after searching")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Report the click without opening a browser")

	return cmd
}

// RunQuery searches for query, prints the results to out and optionally
// clicks one of them.
func RunQuery(ctx context.Context, app *App, out io.Writer, query string, opts QueryOptions) error {
	res, err := app.Coordinator.Search(query).Wait(ctx)
	if err != nil {
		return err
	}

	switch res.Outcome {
	case coordinator.OutcomeSkipped:
		return res.Err
	case coordinator.OutcomeFailed:
		return fmt.Errorf("search failed: %w", res.Err)
	case coordinator.OutcomeSuperseded:
		return fmt.Errorf("search for %q was cancelled", query)
	}

	output := QueryOutput{
		Query:   res.Query,
		UserID:  app.Identity.Current(),
		Results: res.Records,
	}

	if opts.Open > 0 {
		rec, err := app.Coordinator.Click(opts.Open - 1)
		if err != nil {
			return fmt.Errorf("cannot open row %d: %w", opts.Open, err)
		}
		output.Opened = &rec

		if !opts.NoBrowser && rec.TargetURL != "" {
			open := opts.Opener
			if open == nil {
				open = browser.OpenURL
			}
			if err := open(rec.TargetURL); err != nil {
				app.Logger.Warn("open result failed",
					logger.String("url", rec.TargetURL),
					logger.Error(err),
				)
			}
		}
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}

	printResults(out, output)
	return nil
}

func printResults(out io.Writer, o QueryOutput) {
	if len(o.Results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return
	}

	fmt.Fprintf(out, "Found %d results:\n\n", len(o.Results))
	for i, r := range o.Results {
		fmt.Fprintln(out, ui.FormatRow(r))
		if r.Description != "" {
			fmt.Fprintf(out, "   %s\n", truncate(r.Description, summaryWidth))
		}
		if r.TargetURL != "" {
			fmt.Fprintf(out, "   %s\n", r.TargetURL)
		}
		if i < len(o.Results)-1 {
			fmt.Fprintln(out, strings.Repeat("-", 40))
		}
	}

	if o.Opened != nil {
		fmt.Fprintf(out, "\nOpened %s\n", ui.FormatRow(*o.Opened))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
