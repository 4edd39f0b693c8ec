package client

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

// ConvertCmd creates the conversion command.
func ConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <event-name> [value]",
		Short: "Report a conversion event",
		Long:  "Sends a conversion event (for example a purchase) to the collector.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := 0.0
			if len(args) == 2 {
				v, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return fmt.Errorf("invalid value %q: %w", args[1], err)
				}
				value = v
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				return RunConvert(app, cmd.OutOrStdout(), args[0], value)
			})
		},
	}

	return cmd
}

// RunConvert reports one conversion. Delivery happens when the app closes.
func RunConvert(app *App, out io.Writer, name string, value float64) error {
	if err := app.Coordinator.Convert(name, value); err != nil {
		return err
	}
	fmt.Fprintf(out, "Conversion %q (%g) reported for %s\n", name, value, app.Identity.Current())
	return nil
}
