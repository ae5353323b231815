// file: cmd/config.go
// version: 1.0.0
// guid: d7addd9d-b960-47de-8d20-f01e1fec1a30

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jdfalk/libshelf/internal/config"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Show or save the effective configuration",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			secrets, _ := cmd.Flags().GetBool("show-secrets")
			data, err := yaml.Marshal(config.Settings(secrets))
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	configSaveCmd = &cobra.Command{
		Use:   "save [path]",
		Short: "Write the effective configuration to a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigFilePath()
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.SaveConfigToFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved configuration to %s\n", path)
			return nil
		},
	}
)

func init() {
	configShowCmd.Flags().Bool("show-secrets", false, "print the cloud URI unmasked")

	configCmd.AddCommand(configShowCmd, configSaveCmd)
	rootCmd.AddCommand(configCmd)
}
