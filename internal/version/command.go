package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand adds a `version` subcommand to root. With --short
// only the semantic version is printed, which is what packaging scripts read.
func AttachCobraVersionCommand(root *cobra.Command) {
	var short bool

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long: `Print the version, commit hash, build timestamp and target platform.
Values are injected at build time; the platform shows which board the binary was cross-compiled for.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := Full()
			if short {
				info = Short()
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), info)
		},
	}

	versionCmd.Flags().BoolVarP(&short, "short", "s", false, "print only the semantic version")
	root.AddCommand(versionCmd)
}
