// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/marksnips/internal/config"
	"github.com/pdiddy/marksnips/internal/journal"
	"github.com/pdiddy/marksnips/internal/logging"
	"github.com/pdiddy/marksnips/internal/notify"
	"github.com/pdiddy/marksnips/internal/process"
	"github.com/pdiddy/marksnips/pkg/types"
)

var processCmd = &cobra.Command{
	Use:   "process FILE [FILE...]",
	Short: "Enhance specific markdown files without starting the watcher",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProcess,
}

func init() {
	processCmd.Flags().String("model", defaultModel, "completion model to use")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := config.EnsureFolders(cfg); err != nil {
		return fmt.Errorf("creating folders: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	log, err := logging.New(cfg.Files.LogFile, verbose)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	jrnl, err := journal.Open(cfg.Folders.Logs)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer jrnl.Close()

	enhancer, err := buildEnhancer(cmd, cfg, log)
	if err != nil {
		return err
	}
	processor := process.New(cfg.Folders, enhancer, jrnl, notify.Nop{}, log)

	failed := 0
	for _, path := range args {
		status := processor.ProcessFile(cmd.Context(), path)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, status)
		if status == types.StatusFailed || status == types.StatusRetryPending {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	log.Info("processed files", zap.Int("count", len(args)))
	return nil
}
