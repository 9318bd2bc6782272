package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bukhantcev/stavfitness26/pkg/smm/config"
)

// newConfigCmd creates the `smmbot config` command group for credential
// management.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration and credentials",
		Long: `Manages smmbot credentials. The backend API key lives in the OS
keyring, never in the config file.

Examples:
  smmbot config set-key
  smmbot config delete-key`,
	}

	cmd.AddCommand(
		newConfigSetKeyCmd(),
		newConfigDeleteKeyCmd(),
	)
	return cmd
}

func newConfigSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Store the backend API key in the OS keyring",
		RunE: func(_ *cobra.Command, _ []string) error {
			if !config.KeyringAvailable() {
				return fmt.Errorf("OS keyring unavailable; set OPENAI_API_KEY in .env instead")
			}

			key, err := config.ReadPassword("API key: ")
			if err != nil {
				return err
			}
			if key == "" {
				return fmt.Errorf("empty key, nothing stored")
			}

			if err := config.StoreAPIKey(key); err != nil {
				return fmt.Errorf("storing key: %w", err)
			}
			fmt.Println("API key stored in the OS keyring.")
			return nil
		},
	}
}

func newConfigDeleteKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-key",
		Short: "Remove the backend API key from the OS keyring",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := config.DeleteAPIKey(); err != nil {
				return fmt.Errorf("deleting key: %w", err)
			}
			fmt.Println("API key removed from the OS keyring.")
			return nil
		},
	}
}
