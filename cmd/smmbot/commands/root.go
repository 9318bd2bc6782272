// Package commands implements the smmbot CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the CLI root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "smmbot",
		Short: "SMM draft bot for a fitness studio",
		Long: `smmbot generates social-media post drafts, lets the admin review
and approve them in chat, and auto-publishes on a daily schedule.

Examples:
  smmbot serve
  smmbot setup
  smmbot draft --kind offer
  smmbot schedule 10:00`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newSetupCmd(),
		newDraftCmd(),
		newScheduleCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
