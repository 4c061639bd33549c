// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/marksnips/internal/backup"
	"github.com/pdiddy/marksnips/internal/logging"
	"github.com/pdiddy/marksnips/pkg/types"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list, and restore backup packages",
}

var backupNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Create a backup package immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := backupSetup(cmd)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		mgr := backup.NewManager(log)
		path, err := mgr.Run(cfg, time.Now())
		if err != nil {
			return fmt.Errorf("creating backup: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "backup created: %s\n", path)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backup packages, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := backupSetup(cmd)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		packages, err := backup.NewManager(log).List(cfg)
		if err != nil {
			return fmt.Errorf("listing backups: %w", err)
		}
		if len(packages) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no backups found")
			return nil
		}
		printBackups(cmd, packages)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [PACKAGE]",
	Short: "Restore configuration and data from a backup package",
	Long: `restore unpacks a backup ZIP and copies its configuration, Originals,
Enhanced, and Scripts contents back into place. With no argument the
available packages are listed and one is chosen interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	backupRestoreCmd.Flags().Bool("latest", false, "restore the most recent backup without prompting")
	backupCmd.AddCommand(backupNowCmd, backupListCmd, backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, log, err := backupSetup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	mgr := backup.NewManager(log)

	var pkg string
	switch {
	case len(args) == 1:
		pkg = args[0]
	default:
		packages, err := mgr.List(cfg)
		if err != nil {
			return fmt.Errorf("listing backups: %w", err)
		}
		if len(packages) == 0 {
			return fmt.Errorf("no backups available to restore")
		}
		latest, _ := cmd.Flags().GetBool("latest")
		if latest {
			pkg = packages[0].Path
		} else {
			pkg, err = chooseBackup(cmd, packages)
			if err != nil {
				return err
			}
		}
	}

	if _, err := mgr.Restore(cmd.Context(), pkg, cfg); err != nil {
		return fmt.Errorf("restoring backup: %w", err)
	}
	log.Info("backup restored", zap.String("package", pkg))
	fmt.Fprintf(cmd.OutOrStdout(), "restored from %s\n", pkg)
	return nil
}

// chooseBackup prints the available packages and reads a 1-based
// selection from stdin.
func chooseBackup(cmd *cobra.Command, packages []types.BackupInfo) (string, error) {
	printBackups(cmd, packages)
	fmt.Fprintf(cmd.OutOrStdout(), "select a backup [1-%d]: ", len(packages))

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading selection: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(packages) {
		return "", fmt.Errorf("invalid selection %q", strings.TrimSpace(line))
	}
	return packages[n-1].Path, nil
}

func printBackups(cmd *cobra.Command, packages []types.BackupInfo) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tCREATED\tSIZE")
	for i, p := range packages {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, p.Name, p.CreatedAt.Format("2006-01-02 15:04:05"), p.SizeHuman)
	}
	w.Flush() //nolint:errcheck
}

// backupSetup loads config and the logger for a backup subcommand.
func backupSetup(cmd *cobra.Command) (*types.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	log, err := logging.New(cfg.Files.LogFile, verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log: %w", err)
	}
	return cfg, log, nil
}
