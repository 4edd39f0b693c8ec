package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/semantrics/internal/cli"
	"github.com/cloo-solutions/semantrics/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "semantricsd",
		Short: "Semantrics development collector",
		Long:  "Runs a local collector that receives Semantrics telemetry events for development and testing",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
