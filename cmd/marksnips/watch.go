// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/marksnips/internal/backup"
	"github.com/pdiddy/marksnips/internal/config"
	"github.com/pdiddy/marksnips/internal/enhance"
	"github.com/pdiddy/marksnips/internal/journal"
	"github.com/pdiddy/marksnips/internal/logging"
	"github.com/pdiddy/marksnips/internal/notify"
	"github.com/pdiddy/marksnips/internal/process"
	"github.com/pdiddy/marksnips/internal/secrets"
	"github.com/pdiddy/marksnips/internal/watch"
	"github.com/pdiddy/marksnips/pkg/types"
)

// defaultModel is the completion model used when --model is not given.
const defaultModel = "claude-sonnet-4-20250514"

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the configured folder and enhance new markdown files",
	Long: `watch polls the configured folder for new markdown files. Each file is
archived to Originals, rewritten by the completion service, saved under
an AI-generated name in Enhanced, and removed from the watch folder.
Periodic ZIP backups run on the configured interval.

The loop runs until interrupted (Ctrl-C or SIGTERM).`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("backup-now", false, "run a backup immediately on startup")
	watchCmd.Flags().String("model", defaultModel, "completion model to use")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	notifier := notify.NewDesktop(cfg.Notifications)
	processor := process.New(cfg.Folders, enhancer, jrnl, notifier, log)
	backups := backup.NewManager(log)

	loop := watch.New(cfg, processor, backups, notifier, log)
	loop.ImmediateBackup, _ = cmd.Flags().GetBool("backup-now")

	// Files that were archived but never enhanced in a previous run are
	// still in the watch folder and get picked up by the initial poll.
	if pending, err := jrnl.RetryPending(cmd.Context()); err == nil && len(pending) > 0 {
		log.Info("retrying files from a previous run", zap.Int("count", len(pending)))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("watching folder",
		zap.String("folder", cfg.Folders.Base),
		zap.String("filter", cfg.Watcher.FileFilter))
	return loop.Run(ctx)
}

// buildEnhancer wires the completion service behind the enhancer. The
// API key comes from ANTHROPIC_API_KEY or the key file under the watch
// folder's .secrets directory.
func buildEnhancer(cmd *cobra.Command, cfg *types.Config, log *zap.Logger) (*enhance.Enhancer, error) {
	key, err := secrets.APIKey(filepath.Join(cfg.Folders.Base, ".secrets"))
	if err != nil {
		return nil, fmt.Errorf("resolving API key: %w", err)
	}
	if key == "" {
		return nil, fmt.Errorf("no API key configured: set ANTHROPIC_API_KEY or create %s",
			filepath.Join(cfg.Folders.Base, ".secrets", "anthropic-api-key"))
	}

	model, _ := cmd.Flags().GetString("model")
	completer := &enhance.ClaudeCompleter{APIKey: key, Model: model}
	log.Debug("completion service configured", zap.String("model", model))
	return enhance.New(completer, cfg.AIPrompts), nil
}
