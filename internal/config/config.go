// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads, persists, and edits the marksnips settings document.
// A missing or corrupt document is never fatal: Load falls back to
// regenerating defaults so a first run needs no setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/marksnips/pkg/types"
)

// Default watcher timing, per the shipped configuration.
const (
	DefaultFileFilter             = "*.md"
	DefaultPollingInterval        = 5  // seconds
	DefaultHeartbeatInterval      = 5  // minutes
	DefaultProcessingDelay        = 2  // seconds
	DefaultFileTrackingExpiration = 60 // minutes

	DefaultMaxBackupSets  = 5
	DefaultBackupInterval = 24 // hours
)

// DefaultEnhancementPrompt rewrites a document in place. The {content}
// marker is replaced with the document text.
const DefaultEnhancementPrompt = `Improve the formatting and clarity of the following markdown document.
Preserve the meaning and all factual content. Fix heading levels, list
formatting, spacing, and obvious typos. Return only the improved markdown
with no commentary.

{content}`

// DefaultFilenamePrompt derives a descriptive filename. The {content}
// marker is replaced with the document text.
const DefaultFilenamePrompt = `Suggest a short, descriptive filename for the following markdown document.
Use a few lowercase words separated by hyphens, ending in .md. Respond with
the filename only, nothing else.

{content}`

// requiredSections are the top-level keys a usable document must carry.
// A document missing any of them is treated as corrupt and regenerated.
var requiredSections = []string{"folders", "files", "watcher"}

// Default builds the default configuration rooted at base. The config
// document itself lives at configPath.
func Default(base, configPath string) *types.Config {
	return &types.Config{
		Folders: types.FoldersConfig{
			Base:      base,
			Originals: filepath.Join(base, "Originals"),
			Enhanced:  filepath.Join(base, "Enhanced"),
			Logs:      filepath.Join(base, "Logs"),
			Backups:   filepath.Join(base, "Backups"),
		},
		Files: types.FilesConfig{
			LogFile:    filepath.Join(base, "Logs", "watcher.log"),
			ConfigFile: configPath,
		},
		Watcher: types.WatcherConfig{
			FileFilter:             DefaultFileFilter,
			PollingInterval:        DefaultPollingInterval,
			HeartbeatInterval:      DefaultHeartbeatInterval,
			ProcessingDelay:        DefaultProcessingDelay,
			FileTrackingExpiration: DefaultFileTrackingExpiration,
		},
		AIPrompts: types.PromptsConfig{
			EnhancementPrompt: DefaultEnhancementPrompt,
			FilenamePrompt:    DefaultFilenamePrompt,
		},
		Backup: types.BackupConfig{
			Enabled:        true,
			MaxBackupSets:  DefaultMaxBackupSets,
			BackupInterval: DefaultBackupInterval,
		},
		Notifications: types.NotificationsConfig{
			Enabled:                  true,
			ShowSuccessNotifications: true,
			ShowErrorNotifications:   true,
		},
	}
}

// Load reads the configuration at path. If the file is absent,
// unreadable, unparsable, missing a required section, or fails
// validation, a default configuration rooted at the file's directory is
// created, persisted to path, and returned.
func Load(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return regenerate(path)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return regenerate(path)
	}
	for _, section := range requiredSections {
		if _, ok := raw[section]; !ok {
			return regenerate(path)
		}
	}

	var cfg types.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return regenerate(path)
	}
	if err := cfg.Validate(); err != nil {
		return regenerate(path)
	}
	if cfg.Files.ConfigFile == "" {
		cfg.Files.ConfigFile = path
	}
	return &cfg, nil
}

// regenerate writes defaults to path and returns them.
func regenerate(path string) (*types.Config, error) {
	cfg := Default(filepath.Dir(path), path)
	if err := Save(cfg, path); err != nil {
		return nil, fmt.Errorf("creating default configuration: %w", err)
	}
	return cfg, nil
}

// Save serializes cfg to path, creating parent directories as needed.
// An existing file is overwritten unconditionally. The write goes
// through a temp file and rename so a crash never leaves a truncated
// document behind.
func Save(cfg *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling configuration: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing configuration: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("saving configuration: %w", err)
	}
	return nil
}

// Update loads the document at path, sets the leaf named by the dotted
// key (e.g. "watcher.polling_interval"), persists, and returns the
// updated configuration. Absent intermediate segments are created as
// empty mappings rather than reported as errors.
func Update(path, dottedKey string, value any) (*types.Config, error) {
	var raw map[string]any
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing configuration %s: %w", path, err)
		}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	segments := strings.Split(dottedKey, ".")
	if len(segments) == 0 || dottedKey == "" {
		return nil, fmt.Errorf("empty property path")
	}

	node := raw
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[seg] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value

	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshaling configuration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing configuration: %w", err)
	}

	return Load(path)
}

// Get loads the document at path and returns the leaf named by the
// dotted key.
func Get(path, dottedKey string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration %s: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing configuration %s: %w", path, err)
	}

	segments := strings.Split(dottedKey, ".")
	var node any = raw
	for _, seg := range segments {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("no value at %s", dottedKey)
		}
		node, ok = m[seg]
		if !ok {
			return nil, fmt.Errorf("no value at %s", dottedKey)
		}
	}
	return node, nil
}

// EnsureFolders creates every folder the configuration references.
func EnsureFolders(cfg *types.Config) error {
	dirs := append(cfg.Folders.All(), cfg.Folders.ScriptsDir())
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating folder %s: %w", dir, err)
		}
	}
	return nil
}
