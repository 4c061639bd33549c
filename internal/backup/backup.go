// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backup packages the configuration, data folders, and
// automation scripts into timestamped ZIP archives, prunes old packages
// by retention count, and restores from a chosen package.
package backup

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/pdiddy/marksnips/internal/config"
	"github.com/pdiddy/marksnips/pkg/types"
)

const (
	packagePrefix = "MarkSnips_Backup_"
	timestampFmt  = "2006-01-02_15-04-05"

	originalsEntry = "Originals"
	enhancedEntry  = "Enhanced"
	scriptsEntry   = "Scripts"
)

// scriptExtensions are the automation script types included in packages.
var scriptExtensions = map[string]bool{".ps1": true, ".sh": true}

// packagePattern matches backup package filenames and captures the
// embedded timestamp.
var packagePattern = regexp.MustCompile(`_Backup_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})\.zip$`)

// ErrPackageNotFound is returned by Restore when the package is absent.
var ErrPackageNotFound = fmt.Errorf("backup package not found")

// Manager creates, lists, prunes, and restores backup packages.
type Manager struct {
	log *zap.Logger

	// now is the clock; tests pin it for deterministic package names.
	now func() time.Time
}

// NewManager creates a backup Manager.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{log: log, now: time.Now}
}

// Backup creates a backup package when one is due. It returns "" with a
// nil error when backups are disabled or the interval has not elapsed.
// On success the package path is returned, LastBackup is persisted, and
// packages beyond MaxBackupSets are pruned oldest-first. The staging
// directory is removed on every exit path.
func (m *Manager) Backup(cfg *types.Config) (string, error) {
	now := m.now()
	if !cfg.Backup.Due(now) {
		return "", nil
	}
	return m.Run(cfg, now)
}

// Run creates a backup package unconditionally, bypassing the
// Enabled/interval gate. Used by the CLI's "backup now".
func (m *Manager) Run(cfg *types.Config, now time.Time) (string, error) {
	staging, err := os.MkdirTemp("", "marksnips-backup-*")
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := m.stage(cfg, staging); err != nil {
		return "", fmt.Errorf("staging backup: %w", err)
	}

	if err := os.MkdirAll(cfg.Folders.Backups, 0o755); err != nil {
		return "", fmt.Errorf("creating backups folder: %w", err)
	}
	pkgPath := filepath.Join(cfg.Folders.Backups, packagePrefix+now.Format(timestampFmt)+".zip")
	if err := zipDirectory(staging, pkgPath); err != nil {
		os.Remove(pkgPath)
		return "", fmt.Errorf("writing package: %w", err)
	}

	ts := now
	cfg.Backup.LastBackup = &ts
	if err := config.Save(cfg, cfg.Files.ConfigFile); err != nil {
		m.log.Warn("persisting LastBackup failed", zap.Error(err))
	}

	m.prune(cfg)

	m.log.Info("backup package created", zap.String("package", pkgPath))
	return pkgPath, nil
}

// stage copies the config file, the data folders, and the automation
// scripts into the staging directory.
func (m *Manager) stage(cfg *types.Config, staging string) error {
	if cfg.Files.ConfigFile != "" {
		if err := copyInto(cfg.Files.ConfigFile, filepath.Join(staging, filepath.Base(cfg.Files.ConfigFile))); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("copying config file: %w", err)
		}
	}

	for entry, src := range map[string]string{
		originalsEntry: cfg.Folders.Originals,
		enhancedEntry:  cfg.Folders.Enhanced,
	} {
		if err := copyTree(src, filepath.Join(staging, entry)); err != nil {
			return fmt.Errorf("copying %s: %w", entry, err)
		}
	}

	scriptsDir := cfg.Folders.ScriptsDir()
	entries, err := os.ReadDir(scriptsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading scripts folder: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !scriptExtensions[filepath.Ext(entry.Name())] {
			continue
		}
		src := filepath.Join(scriptsDir, entry.Name())
		if err := copyInto(src, filepath.Join(staging, scriptsEntry, entry.Name())); err != nil {
			return fmt.Errorf("copying script %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// prune deletes packages beyond MaxBackupSets, oldest first. Pruning
// errors are logged and never fail the backup that triggered them.
func (m *Manager) prune(cfg *types.Config) {
	if cfg.Backup.MaxBackupSets <= 0 {
		return
	}
	packages, err := m.List(cfg)
	if err != nil {
		m.log.Warn("listing packages for retention failed", zap.Error(err))
		return
	}
	for _, old := range packages[minInt(len(packages), cfg.Backup.MaxBackupSets):] {
		if err := os.Remove(old.Path); err != nil {
			m.log.Warn("pruning old package failed", zap.String("package", old.Path), zap.Error(err))
		} else {
			m.log.Info("pruned old package", zap.String("package", old.Name))
		}
	}
}

// List returns the backup packages in the Backups folder, newest first
// by modification time. A missing Backups folder yields an empty list.
func (m *Manager) List(cfg *types.Config) ([]types.BackupInfo, error) {
	entries, err := os.ReadDir(cfg.Folders.Backups)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backups folder: %w", err)
	}

	var packages []types.BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !packagePattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		created := info.ModTime()
		if match := packagePattern.FindStringSubmatch(entry.Name()); match != nil {
			if t, parseErr := time.ParseInLocation(timestampFmt, match[1], time.Local); parseErr == nil {
				created = t
			}
		}

		packages = append(packages, types.BackupInfo{
			Path:      filepath.Join(cfg.Folders.Backups, entry.Name()),
			Name:      entry.Name(),
			CreatedAt: created,
			SizeBytes: info.Size(),
			SizeHuman: humanize.Bytes(uint64(info.Size())),
		})
	}

	sort.Slice(packages, func(i, j int) bool {
		return packages[i].CreatedAt.After(packages[j].CreatedAt)
	})
	return packages, nil
}

// Restore extracts packagePath over the live folders. If the package
// carries a configuration file, the live config is overwritten and
// reloaded, and the returned config reflects it; otherwise cfg is
// returned unchanged. Every folder the resulting configuration
// references is created. The extraction directory is removed on all
// exit paths.
func (m *Manager) Restore(ctx context.Context, packagePath string, cfg *types.Config) (*types.Config, error) {
	if _, err := os.Stat(packagePath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, packagePath)
		}
		return nil, fmt.Errorf("checking package: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "marksnips-restore-*")
	if err != nil {
		return nil, fmt.Errorf("creating extraction directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := unzipTo(packagePath, tmpDir); err != nil {
		return nil, fmt.Errorf("extracting package: %w", err)
	}

	// A packaged configuration replaces the live one before anything
	// else so folder paths come from the restored document.
	restored := cfg
	configName := filepath.Base(cfg.Files.ConfigFile)
	if configName != "." {
		packaged := filepath.Join(tmpDir, configName)
		if _, err := os.Stat(packaged); err == nil {
			if err := copyInto(packaged, cfg.Files.ConfigFile); err != nil {
				return nil, fmt.Errorf("restoring config file: %w", err)
			}
			reloaded, err := config.Load(cfg.Files.ConfigFile)
			if err != nil {
				return nil, fmt.Errorf("reloading restored config: %w", err)
			}
			restored = reloaded
		}
	}

	if err := config.EnsureFolders(restored); err != nil {
		return nil, err
	}

	for entry, dst := range map[string]string{
		originalsEntry: restored.Folders.Originals,
		enhancedEntry:  restored.Folders.Enhanced,
		scriptsEntry:   restored.Folders.ScriptsDir(),
	} {
		src := filepath.Join(tmpDir, entry)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := copyTree(src, dst); err != nil {
			m.log.Error("restoring folder failed", zap.String("entry", entry), zap.Error(err))
			return nil, fmt.Errorf("restoring %s: %w", entry, err)
		}
	}

	m.log.Info("backup restored", zap.String("package", packagePath))
	return restored, nil
}

// zipDirectory compresses the contents of srcDir into a ZIP file at
// destPath. Entry names are relative to srcDir with forward slashes.
func zipDirectory(srcDir, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return fmt.Errorf("creating zip header: %w", err)
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("writing zip header: %w", err)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()

		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("writing %s: %w", rel, err)
		}
		return nil
	})
	if err != nil {
		zw.Close()
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

// unzipTo extracts archivePath into destDir, rejecting entries that
// escape destDir.
func unzipTo(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(filepath.Separator)) {
			return fmt.Errorf("archive entry escapes extraction directory: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening entry %s: %w", f.Name, err)
		}
		out, err := os.Create(target)
		if err != nil {
			rc.Close()
			return fmt.Errorf("creating %s: %w", target, err)
		}
		_, copyErr := io.Copy(out, rc)
		rc.Close()
		closeErr := out.Close()
		if copyErr != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, copyErr)
		}
		if closeErr != nil {
			return fmt.Errorf("closing %s: %w", target, closeErr)
		}
	}
	return nil
}

// copyTree copies every regular file under src into dst, preserving
// relative paths and overwriting existing files.
func copyTree(src, dst string) error {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return copyInto(path, filepath.Join(dst, rel))
	})
}

// copyInto copies one file, creating parent directories for dst.
func copyInto(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
