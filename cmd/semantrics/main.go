package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/semantrics/internal/cli"
	"github.com/cloo-solutions/semantrics/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	client.Version = version

	search := client.SearchCmd()
	rootCmd := &cobra.Command{
		Use:   "semantrics",
		Short: "Semantrics - instrumented npm package search",
		Long: `Semantrics searches npm packages and reports queries, results, clicks and
conversions to a Semantrics collector. Without a subcommand it opens the
interactive search UI.

Environment variables:
  SEMANTRICS_INTERFACE_KEY   Collector interface key (required)
  SEMANTRICS_COLLECTOR_URL   Collector base URL
  SEMANTRICS_PROVIDER        Search provider: npms (default) or registry
  SEMANTRICS_DEBOUNCE        Quiet period before searching as you type (default 300ms)
  SEMANTRICS_LOG_FILE        Log file, "-" to disable (default semantrics.log)`,
		Version:       version,
		Args:          cobra.NoArgs,
		RunE:          search.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	client.AddGlobalFlags(rootCmd)
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(search)
	rootCmd.AddCommand(client.QueryCmd())
	rootCmd.AddCommand(client.ConvertCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
