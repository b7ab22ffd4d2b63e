package config

import (
	"fmt"

	"github.com/dvbgse/gogse/pkg/gseconfig"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var showConfigFile string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Load configuration from the config file, GOGSE_* environment variables
(which override values the file sets), and defaults, and print the
fully-resolved result as YAML. With no config file, the defaults are printed.`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVar(&showConfigFile, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/gsecap/config.yaml)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := gseconfig.Load(showConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
