package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/userauth/internal/config"
	"github.com/holomush/userauth/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the userauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "userauth",
		Short: "userauth - session-based user authentication service",
		Long: `userauth registers users, verifies passwords, issues session cookies
and runs the password reset flow over a small HTTP API backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/userauth/config.yaml if present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())

	return cmd
}

// loadConfig resolves the config file and merges it with the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		path = xdg.ExistingConfigFile()
	}
	return config.Load(path, cmd.Flags())
}
