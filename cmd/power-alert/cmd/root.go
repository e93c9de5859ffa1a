package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/power-alert/internal/config"
	"github.com/oshokin/power-alert/internal/service/monitor"
	"github.com/oshokin/power-alert/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// pin overrides the configured alert pin.
	pin string
	// debug controls whether to skip shutdown when the alert is confirmed.
	debug bool

	// rootCmd represents the base command for watching the alert pin.
	rootCmd = &cobra.Command{
		Use:   "power-alert",
		Short: "Watch the power-loss alert pin and shut down when it stays high.",
		Long: `Daemon that watches a GPIO input wired to the power-loss alert of a UPS HAT.

The pin is sampled 10 times, 100ms apart; only when every sample reads high is the
alert confirmed and the host halted with "/sbin/shutdown -h now". A low sample ends
the window early and the daemon goes back to waiting for a rising edge.
Pin, debounce window, shutdown command, MQTT notification and gRPC health endpoint
are read from the configuration file; a missing file means defaults.

This runs as a systemd service with the privileges required to halt the host.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return monitor.Run(ctx, &monitor.Options{
				ConfigPath: configPath,
				Pin:        pin,
				Debug:      debug,
			})
		},
		SilenceUsage: true,
	}
)

// Execute runs the power-alert CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(readCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&pin, "pin", "p", "", "alert pin name, overrides configuration")

	// Hidden debug flag to skip shutdown for debugging.
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "skip shutdown for debugging")

	err := rootCmd.PersistentFlags().MarkHidden("debug")
	if err != nil {
		panic(err)
	}
}
