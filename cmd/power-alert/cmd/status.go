package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/power-alert/internal/service/monitor"
)

// statusCmd queries the health endpoint of a running daemon.
var statusCmd = &cobra.Command{
	Use:   "status [health-address]",
	Short: "Print the serving status of a running daemon.",
	Long: `Queries the gRPC health endpoint of a running power-alert daemon.

Prints SERVING while the pin is being watched or an alert is being confirmed,
UNKNOWN while starting and NOT_SERVING once shutting down or stopped. The address can be given as argument or loaded from
the health_addr setting of the configuration file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var address string
		if len(args) > 0 {
			address = args[0]
		}

		status, err := monitor.Status(cmd.Context(), configPath, address)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), status)

		return nil
	},
}
