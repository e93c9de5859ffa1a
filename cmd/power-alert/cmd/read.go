package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/power-alert/internal/service/monitor"
)

// readCmd reads the alert pin once, for wiring checks.
var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read the alert pin once and print its level.",
	Long: `Claims the configured alert pin, prints "high" or "low" and releases it.

Use it to check the wiring before enabling the service. It refuses to run while
a power-alert daemon is running: releasing the pin would switch off the edge
detection the daemon is waiting on.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		level, err := monitor.ReadPin(cmd.Context(), &monitor.Options{
			ConfigPath: configPath,
			Pin:        pin,
			Debug:      debug,
		})
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), level)

		return nil
	},
}
