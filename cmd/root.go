package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command; subcommands attach themselves in init.
var rootCmd = &cobra.Command{
	Use:   "thunder-mod-manager",
	Short: "Manage Thunderstore mods and local profiles",
	Long: `thunder-mod-manager keeps a local catalog of Thunderstore packages
and manages per-game mod profiles with dependency-aware installs.`,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
