// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Folders: FoldersConfig{
			Base:      "/w",
			Originals: "/w/Originals",
			Enhanced:  "/w/Enhanced",
			Logs:      "/w/Logs",
			Backups:   "/w/Backups",
		},
		Files: FilesConfig{ConfigFile: "/w/config.yaml"},
		Watcher: WatcherConfig{
			FileFilter:             "*.md",
			PollingInterval:        5,
			HeartbeatInterval:      5,
			ProcessingDelay:        2,
			FileTrackingExpiration: 60,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty base", mutate: func(c *Config) { c.Folders.Base = "" }, wantErr: true},
		{name: "empty backups", mutate: func(c *Config) { c.Folders.Backups = "" }, wantErr: true},
		{name: "zero polling interval", mutate: func(c *Config) { c.Watcher.PollingInterval = 0 }, wantErr: true},
		{name: "negative tracking expiration", mutate: func(c *Config) { c.Watcher.FileTrackingExpiration = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScriptsDirDefault(t *testing.T) {
	f := FoldersConfig{Base: "/w"}
	if got := f.ScriptsDir(); got != filepath.Join("/w", "Scripts") {
		t.Errorf("ScriptsDir() = %s", got)
	}

	f.Scripts = "/elsewhere/automation"
	if got := f.ScriptsDir(); got != "/elsewhere/automation" {
		t.Errorf("ScriptsDir() = %s", got)
	}
}

func TestBackupDue(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)
	stale := now.Add(-25 * time.Hour)

	tests := []struct {
		name string
		cfg  BackupConfig
		want bool
	}{
		{name: "disabled", cfg: BackupConfig{Enabled: false}, want: false},
		{name: "never backed up", cfg: BackupConfig{Enabled: true, BackupInterval: 24}, want: true},
		{name: "interval not elapsed", cfg: BackupConfig{Enabled: true, BackupInterval: 24, LastBackup: &recent}, want: false},
		{name: "interval elapsed", cfg: BackupConfig{Enabled: true, BackupInterval: 24, LastBackup: &stale}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Due(now); got != tt.want {
				t.Errorf("Due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatcherDurations(t *testing.T) {
	w := WatcherConfig{PollingInterval: 5, ProcessingDelay: 2, FileTrackingExpiration: 60}
	if w.PollEvery() != 5*time.Second {
		t.Errorf("PollEvery() = %v", w.PollEvery())
	}
	if w.DelayFor() != 2*time.Second {
		t.Errorf("DelayFor() = %v", w.DelayFor())
	}
	if w.TrackingTTL() != time.Hour {
		t.Errorf("TrackingTTL() = %v", w.TrackingTTL())
	}
}

func TestRunStatsUptime(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	stats := RunStats{StartedAt: start}
	if got := stats.Uptime(start.Add(90 * time.Minute)); got != 90*time.Minute {
		t.Errorf("Uptime() = %v", got)
	}
}
