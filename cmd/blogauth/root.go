// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blogauth/blogauth/internal/config"
	"github.com/blogauth/blogauth/internal/xdg"
)

// Global flags available to all subcommands.
var (
	configFile string
	envFile    string
)

// NewRootCmd creates the root command for the blogauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blogauth",
		Short: "Authentication service for the blogging platform",
		Long: `blogauth issues and checks session tokens for the blogging platform.
It handles signup, login, profile lookup and logout over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/blogauth/config.yaml when present)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file (default: .env when present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// loadConfig merges the global file flags with flags on the running command.
// Without --config, $XDG_CONFIG_HOME/blogauth/config.yaml is used if present.
func loadConfig(flags *pflag.FlagSet, skipValidation bool) (*config.Config, error) {
	file := configFile
	if file == "" {
		file = xdg.ConfigFile()
	}
	//nolint:wrapcheck // config errors carry their own codes
	return config.Load(config.Options{
		ConfigFile:     file,
		EnvFile:        envFile,
		Flags:          flags,
		SkipValidation: skipValidation,
	})
}
