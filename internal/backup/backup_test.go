// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/marksnips/internal/config"
	"github.com/pdiddy/marksnips/pkg/types"
)

// setupConfig builds a full configuration rooted in a temp dir with the
// default folder layout and a saved config file.
func setupConfig(t *testing.T) *types.Config {
	t.Helper()
	base := filepath.Join(t.TempDir(), "MarkSnips")
	cfg := config.Default(base, filepath.Join(base, "config.yaml"))
	if err := config.EnsureFolders(cfg); err != nil {
		t.Fatal(err)
	}
	if err := config.Save(cfg, cfg.Files.ConfigFile); err != nil {
		t.Fatal(err)
	}
	return cfg
}

// seedData drops sample files into Originals and Enhanced.
func seedData(t *testing.T, cfg *types.Config) {
	t.Helper()
	files := map[string]string{
		filepath.Join(cfg.Folders.Originals, "notes.md"):           "# original",
		filepath.Join(cfg.Folders.Enhanced, "2026-01-01-notes.md"): "# enhanced",
		filepath.Join(cfg.Folders.ScriptsDir(), "sync.sh"):         "#!/bin/sh\n",
		filepath.Join(cfg.Folders.ScriptsDir(), "watch.ps1"):       "Write-Host hi\n",
		filepath.Join(cfg.Folders.ScriptsDir(), "readme.txt"):      "not a script",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// pinnedManager returns a Manager whose clock starts at a fixed instant
// and advances one second per call.
func pinnedManager() *Manager {
	m := NewManager(nil)
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.Local)
	calls := 0
	m.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	return m
}

func TestRunCreatesPackage(t *testing.T) {
	cfg := setupConfig(t)
	seedData(t, cfg)
	m := NewManager(nil)

	when := time.Date(2026, 3, 14, 10, 30, 0, 0, time.Local)
	pkg, err := m.Run(cfg, when)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantName := "MarkSnips_Backup_2026-03-14_10-30-00.zip"
	if filepath.Base(pkg) != wantName {
		t.Errorf("package name = %s, want %s", filepath.Base(pkg), wantName)
	}
	if _, err := os.Stat(pkg); err != nil {
		t.Fatalf("package not written: %v", err)
	}
	if cfg.Backup.LastBackup == nil || !cfg.Backup.LastBackup.Equal(when) {
		t.Errorf("LastBackup = %v, want %v", cfg.Backup.LastBackup, when)
	}

	// LastBackup survives a config reload.
	reloaded, err := config.Load(cfg.Files.ConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Backup.LastBackup == nil {
		t.Error("LastBackup not persisted to config file")
	}
}

func TestBackupDisabled(t *testing.T) {
	cfg := setupConfig(t)
	cfg.Backup.Enabled = false

	pkg, err := NewManager(nil).Backup(cfg)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if pkg != "" {
		t.Errorf("package = %q, want empty", pkg)
	}
	entries, err := os.ReadDir(cfg.Folders.Backups)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Backups folder not empty: %d entries", len(entries))
	}
}

func TestBackupIntervalGate(t *testing.T) {
	cfg := setupConfig(t)
	m := pinnedManager()

	// First call: never backed up, so one runs.
	first, err := m.Backup(cfg)
	if err != nil {
		t.Fatalf("first Backup: %v", err)
	}
	if first == "" {
		t.Fatal("first Backup created no package")
	}

	// Second call moments later: interval has not elapsed.
	second, err := m.Backup(cfg)
	if err != nil {
		t.Fatalf("second Backup: %v", err)
	}
	if second != "" {
		t.Errorf("second Backup created %q before interval elapsed", second)
	}
}

func TestRetention(t *testing.T) {
	cfg := setupConfig(t)
	seedData(t, cfg)
	cfg.Backup.MaxBackupSets = 3
	m := NewManager(nil)

	base := time.Date(2026, 3, 14, 8, 0, 0, 0, time.Local)
	var created []string
	for i := 0; i < 6; i++ {
		pkg, err := m.Run(cfg, base.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
		created = append(created, pkg)
	}

	packages, err := m.List(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(packages) != 3 {
		t.Fatalf("got %d packages, want 3", len(packages))
	}
	// The three newest survive, newest first.
	for i, want := range []string{created[5], created[4], created[3]} {
		if packages[i].Path != want {
			t.Errorf("packages[%d] = %s, want %s", i, packages[i].Name, filepath.Base(want))
		}
	}
	for _, old := range created[:3] {
		if _, err := os.Stat(old); !os.IsNotExist(err) {
			t.Errorf("pruned package still exists: %s", filepath.Base(old))
		}
	}
}

func TestListEmptyAndMissing(t *testing.T) {
	cfg := setupConfig(t)
	m := NewManager(nil)

	packages, err := m.List(cfg)
	if err != nil || len(packages) != 0 {
		t.Errorf("empty folder: packages=%v err=%v", packages, err)
	}

	os.RemoveAll(cfg.Folders.Backups)
	packages, err = m.List(cfg)
	if err != nil || packages != nil {
		t.Errorf("missing folder: packages=%v err=%v", packages, err)
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	cfg := setupConfig(t)
	for _, name := range []string{"notes.zip", "MarkSnips_Backup_not-a-date.zip", "readme.md"} {
		if err := os.WriteFile(filepath.Join(cfg.Folders.Backups, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	packages, err := NewManager(nil).List(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(packages) != 0 {
		t.Errorf("got %d packages, want 0", len(packages))
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	cfg := setupConfig(t)
	seedData(t, cfg)
	m := NewManager(nil)

	pkg, err := m.Run(cfg, time.Date(2026, 3, 14, 10, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Wipe the data folders, then restore into the emptied tree.
	for _, dir := range []string{cfg.Folders.Originals, cfg.Folders.Enhanced, cfg.Folders.ScriptsDir()} {
		if err := os.RemoveAll(dir); err != nil {
			t.Fatal(err)
		}
	}

	restored, err := m.Restore(context.Background(), pkg, cfg)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	checks := map[string]string{
		filepath.Join(restored.Folders.Originals, "notes.md"):           "# original",
		filepath.Join(restored.Folders.Enhanced, "2026-01-01-notes.md"): "# enhanced",
		filepath.Join(restored.Folders.ScriptsDir(), "sync.sh"):         "#!/bin/sh\n",
		filepath.Join(restored.Folders.ScriptsDir(), "watch.ps1"):       "Write-Host hi\n",
	}
	for path, want := range checks {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("%s not restored: %v", path, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", path, data, want)
		}
	}

	// Non-script files never entered the package.
	if _, err := os.Stat(filepath.Join(restored.Folders.ScriptsDir(), "readme.txt")); !os.IsNotExist(err) {
		t.Error("non-script file restored from package")
	}
}

func TestRestoreMissingPackage(t *testing.T) {
	cfg := setupConfig(t)

	_, err := NewManager(nil).Restore(context.Background(), filepath.Join(cfg.Folders.Backups, "absent.zip"), cfg)
	if !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("err = %v, want ErrPackageNotFound", err)
	}
}
