// Package cli is the brainquest command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/brainquest/brainquest/internal/daemon"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "brainquest",
	Short: "Progression and reward engine for BrainQuest",
	Long: `brainquest keeps a player's progression: coins, levels, achievements,
power-ups, timed events and adaptive difficulty. "serve" exposes the game to
the UI over HTTP; the other commands operate on the save directly.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $BRAINQUEST_HOME/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (daemon.Config, error) {
	path := configPath
	if path == "" {
		path = daemon.ConfigPath()
	}
	return daemon.LoadConfig(path)
}
