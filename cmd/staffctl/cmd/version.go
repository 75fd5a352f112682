package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/staffplan/pkg/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit, and build time of staffctl.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if output == "json" {
			return printJSON(cmd.OutOrStdout(), config.GetBuildInfo(config.CLIBinary))
		}
		fmt.Fprintln(cmd.OutOrStdout(), config.VersionString(config.CLIBinary))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
