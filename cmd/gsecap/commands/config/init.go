package config

import (
	"fmt"

	"github.com/dvbgse/gogse/pkg/gseconfig"
	"github.com/spf13/cobra"
)

var initOutput string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write gsecap's default configuration (codec sizing, logging,
telemetry, and metrics sections) to disk.

Examples:
  # Write to the default location
  gsecap config init

  # Write to a specific path
  gsecap config init --output /etc/gsecap/config.yaml`,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "", "Path to write the config file (default: $XDG_CONFIG_HOME/gsecap/config.yaml)")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := initOutput
	if path == "" {
		path = gseconfig.GetDefaultConfigPath()
	}

	cfg := gseconfig.GetDefaultConfig()
	if err := gseconfig.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Configuration written to %s\n", path)
	return nil
}
