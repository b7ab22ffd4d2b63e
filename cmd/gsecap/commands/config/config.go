// Package config implements gsecap's "config" command group: init,
// validate, and show.
package config

import "github.com/spf13/cobra"

// Cmd is the "config" command group, mounted under root.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage gsecap configuration",
}

func init() {
	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(showCmd)
}
