// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the marksnips CLI: a folder
// watcher that rewrites dropped markdown files through an AI completion
// service and keeps retention-pruned backups of its working data.
package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/marksnips/internal/config"
	"github.com/pdiddy/marksnips/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the marksnips CLI.
var rootCmd = &cobra.Command{
	Use:   "marksnips",
	Short: "AI-enhanced markdown folder watcher",
	Long: `marksnips watches a folder for new markdown files, sends each one to an
AI completion service to clean up the text and derive a descriptive
filename, archives the untouched original, and writes the enhanced copy.

The watcher also keeps timestamped ZIP backups of the configuration and
data folders, pruned to a configurable retention count.`,
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/MarkSnips/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initViper() {
	viper.SetEnvPrefix("MARKSNIPS")
	viper.AutomaticEnv()
}

// configPath resolves the configuration file location: --config flag,
// MARKSNIPS_CONFIG, then the default under the home directory.
func configPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p
	}
	if p := viper.GetString("config"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("MarkSnips", "config.yaml")
	}
	return filepath.Join(home, "MarkSnips", "config.yaml")
}

// loadConfig loads (or regenerates) the configuration for a command.
func loadConfig(cmd *cobra.Command) (*types.Config, error) {
	return config.Load(configPath(cmd))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
