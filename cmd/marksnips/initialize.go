// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/marksnips/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default configuration and folder layout",
	Long: `init writes a default config.yaml (if one does not already exist or is
invalid) and creates the watch, Originals, Enhanced, Logs, and Backups
folders it references.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath(cmd)
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if err := config.EnsureFolders(cfg); err != nil {
			return fmt.Errorf("creating folders: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration ready at %s\n", path)
		fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", cfg.Folders.Base)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
