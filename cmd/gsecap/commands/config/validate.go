package config

import (
	"fmt"

	"github.com/dvbgse/gogse/pkg/gseconfig"
	"github.com/spf13/cobra"
)

var validateConfigFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate gsecap's configuration file for syntax errors, missing
required fields, and invalid values.

Examples:
  # Validate the default config
  gsecap config validate

  # Validate a specific file
  gsecap config validate --config /etc/gsecap/config.yaml`,
	RunE: runConfigValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigFile, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/gsecap/config.yaml)")
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := validateConfigFile
	if path == "" {
		path = gseconfig.GetDefaultConfigPath()
	}

	cfg, err := gseconfig.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := gseconfig.Validate(cfg); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Printf("%s: valid\n", path)
	return nil
}
