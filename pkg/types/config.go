// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the configuration document and shared records for
// the marksnips pipeline.
package types

import (
	"fmt"
	"path/filepath"
	"time"
)

// FoldersConfig holds the absolute paths of the working directories.
// All five primary paths must be non-empty; Scripts defaults to
// Base/Scripts when left blank.
type FoldersConfig struct {
	// Base is the watch folder polled for new markdown files.
	Base string `json:"base" yaml:"base"`

	// Originals is the archive of unmodified copies of ingested files.
	Originals string `json:"originals" yaml:"originals"`

	// Enhanced is the output folder for AI-rewritten files.
	Enhanced string `json:"enhanced" yaml:"enhanced"`

	// Logs holds the watcher log file.
	Logs string `json:"logs" yaml:"logs"`

	// Backups holds timestamped backup packages.
	Backups string `json:"backups" yaml:"backups"`

	// Scripts holds automation scripts included in backup packages.
	Scripts string `json:"scripts,omitempty" yaml:"scripts,omitempty"`
}

// ScriptsDir returns the scripts folder, defaulting to Base/Scripts.
func (f FoldersConfig) ScriptsDir() string {
	if f.Scripts != "" {
		return f.Scripts
	}
	return filepath.Join(f.Base, "Scripts")
}

// All returns the five required folder paths in a fixed order.
func (f FoldersConfig) All() []string {
	return []string{f.Base, f.Originals, f.Enhanced, f.Logs, f.Backups}
}

// FilesConfig holds the well-known file paths.
type FilesConfig struct {
	// LogFile is the append-only watcher log.
	LogFile string `json:"log_file" yaml:"log_file"`

	// ConfigFile is the path this configuration was loaded from. It is
	// included in backup packages and overwritten on restore.
	ConfigFile string `json:"config_file" yaml:"config_file"`
}

// WatcherConfig holds the polling loop timing. All numeric fields are
// whole units (seconds or minutes) and must be positive.
type WatcherConfig struct {
	// FileFilter is the glob matched against filenames in the watch
	// folder (default "*.md").
	FileFilter string `json:"file_filter" yaml:"file_filter"`

	// PollingInterval is the sleep between poll iterations, in seconds.
	PollingInterval int `json:"polling_interval" yaml:"polling_interval"`

	// HeartbeatInterval is the cadence of uptime/stats log entries, in minutes.
	HeartbeatInterval int `json:"heartbeat_interval" yaml:"heartbeat_interval"`

	// ProcessingDelay is the pause before reading a newly discovered
	// file, in seconds, so editors finish writing it.
	ProcessingDelay int `json:"processing_delay" yaml:"processing_delay"`

	// FileTrackingExpiration is how long a seen file stays in the
	// tracked-entries map, in minutes.
	FileTrackingExpiration int `json:"file_tracking_expiration" yaml:"file_tracking_expiration"`
}

// PollEvery returns PollingInterval as a duration.
func (w WatcherConfig) PollEvery() time.Duration {
	return time.Duration(w.PollingInterval) * time.Second
}

// DelayFor returns ProcessingDelay as a duration.
func (w WatcherConfig) DelayFor() time.Duration {
	return time.Duration(w.ProcessingDelay) * time.Second
}

// TrackingTTL returns FileTrackingExpiration as a duration.
func (w WatcherConfig) TrackingTTL() time.Duration {
	return time.Duration(w.FileTrackingExpiration) * time.Minute
}

// PromptsConfig holds the AI prompt templates. Each template must
// contain a {content} placeholder where the document text is substituted.
type PromptsConfig struct {
	EnhancementPrompt string `json:"enhancement_prompt" yaml:"enhancement_prompt"`
	FilenamePrompt    string `json:"filename_prompt" yaml:"filename_prompt"`
}

// BackupConfig holds the backup policy.
type BackupConfig struct {
	// Enabled gates all automatic backups.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxBackupSets is the retention count; packages beyond this many,
	// oldest first, are pruned after each successful backup.
	MaxBackupSets int `json:"max_backup_sets" yaml:"max_backup_sets"`

	// BackupInterval is the minimum time between automatic backups, in hours.
	BackupInterval int `json:"backup_interval" yaml:"backup_interval"`

	// LastBackup is the completion time of the most recent backup, or
	// nil if none has run.
	LastBackup *time.Time `json:"last_backup,omitempty" yaml:"last_backup,omitempty"`
}

// Interval returns BackupInterval as a duration.
func (b BackupConfig) Interval() time.Duration {
	return time.Duration(b.BackupInterval) * time.Hour
}

// Due reports whether an automatic backup should run at the given time.
func (b BackupConfig) Due(now time.Time) bool {
	if !b.Enabled {
		return false
	}
	if b.LastBackup == nil {
		return true
	}
	return !now.Before(b.LastBackup.Add(b.Interval()))
}

// NotificationsConfig holds the desktop notification flags.
type NotificationsConfig struct {
	Enabled                  bool `json:"enabled" yaml:"enabled"`
	ShowSuccessNotifications bool `json:"show_success_notifications" yaml:"show_success_notifications"`
	ShowErrorNotifications   bool `json:"show_error_notifications" yaml:"show_error_notifications"`
}

// Config is the complete settings document, persisted as YAML at
// Files.ConfigFile. It is the single source of truth across runs.
type Config struct {
	Folders       FoldersConfig       `json:"folders" yaml:"folders"`
	Files         FilesConfig         `json:"files" yaml:"files"`
	Watcher       WatcherConfig       `json:"watcher" yaml:"watcher"`
	AIPrompts     PromptsConfig       `json:"ai_prompts" yaml:"ai_prompts"`
	Backup        BackupConfig        `json:"backup" yaml:"backup"`
	Notifications NotificationsConfig `json:"notifications" yaml:"notifications"`
}

// Validate checks the invariants the rest of the pipeline relies on:
// non-empty folder paths and positive watcher timing values.
func (c *Config) Validate() error {
	names := []string{"base", "originals", "enhanced", "logs", "backups"}
	for i, path := range c.Folders.All() {
		if path == "" {
			return fmt.Errorf("folders.%s must not be empty", names[i])
		}
	}
	if c.Watcher.FileFilter == "" {
		return fmt.Errorf("watcher.file_filter must not be empty")
	}
	for name, v := range map[string]int{
		"polling_interval":         c.Watcher.PollingInterval,
		"heartbeat_interval":       c.Watcher.HeartbeatInterval,
		"processing_delay":         c.Watcher.ProcessingDelay,
		"file_tracking_expiration": c.Watcher.FileTrackingExpiration,
	} {
		if v <= 0 {
			return fmt.Errorf("watcher.%s must be a positive integer, got %d", name, v)
		}
	}
	return nil
}
