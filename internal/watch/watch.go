// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch runs the polling loop: discover eligible files in the
// watch folder, hand each to the processor exactly once per tracking
// window, and trigger interval backups and heartbeat logging. The loop
// is single-threaded on purpose; one file is processed at a time and
// all shared state lives here.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/pdiddy/marksnips/internal/config"
	"github.com/pdiddy/marksnips/internal/notify"
	"github.com/pdiddy/marksnips/pkg/types"
)

// heartbeatWindow is how far into the heartbeat minute the beat still
// fires; a poll landing later in the minute skips it.
const heartbeatWindow = 10 * time.Second

// FileProcessor handles one discovered file.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) types.ProcessStatus
}

// Backuper creates backup packages. Backup applies the
// enabled/interval gate; Run bypasses it.
type Backuper interface {
	Backup(cfg *types.Config) (string, error)
	Run(cfg *types.Config, now time.Time) (string, error)
}

// Loop owns the tracked-files map and run statistics. Neither is
// persisted: a restart reprocesses whatever still sits in the watch
// folder.
type Loop struct {
	cfg       *types.Config
	processor FileProcessor
	backups   Backuper
	notifier  notify.Notifier
	log       *zap.Logger

	// ImmediateBackup forces one backup before the first pass.
	ImmediateBackup bool

	tracked map[string]time.Time
	stats   types.RunStats

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// New creates a watch Loop.
func New(cfg *types.Config, processor FileProcessor, backups Backuper, notifier notify.Notifier, log *zap.Logger) *Loop {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		cfg:       cfg,
		processor: processor,
		backups:   backups,
		notifier:  notifier,
		log:       log,
		tracked:   make(map[string]time.Time),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Run executes the watch loop until ctx is cancelled. Final statistics
// are logged and a shutdown notification is emitted on every exit path,
// including errors, which are returned after that cleanup.
func (l *Loop) Run(ctx context.Context) (err error) {
	if err := config.EnsureFolders(l.cfg); err != nil {
		return err
	}

	l.stats = types.RunStats{StartedAt: l.now(), LastActivity: l.now()}

	defer func() {
		uptime := l.stats.Uptime(l.now()).Round(time.Second)
		l.log.Info("watcher stopped",
			zap.Duration("uptime", uptime),
			zap.Int("processed", l.stats.Processed),
			zap.Int("succeeded", l.stats.Succeeded),
			zap.Int("failed", l.stats.Failed))
		l.notifier.Info("MarkSnips", fmt.Sprintf(
			"Watcher stopped after %s: %d processed, %d failed",
			uptime, l.stats.Processed, l.stats.Failed))
	}()

	if l.ImmediateBackup {
		if _, err := l.backups.Run(l.cfg, l.now()); err != nil {
			l.log.Error("immediate backup failed", zap.Error(err))
		}
	}
	l.maybeBackup()

	l.log.Info("watcher started",
		zap.String("folder", l.cfg.Folders.Base),
		zap.String("filter", l.cfg.Watcher.FileFilter))

	// Initial pass: everything already present is processed before
	// continuous polling begins.
	if err := l.poll(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !l.sleep(ctx, l.cfg.Watcher.PollEvery()) {
			return nil
		}

		if err := l.poll(ctx); err != nil {
			return err
		}

		l.expireTracked()
		l.heartbeat()
	}
}

// poll lists eligible files and processes the untracked ones. An
// enumeration failure is a loop-control error and propagates.
func (l *Loop) poll(ctx context.Context) error {
	files, err := l.discover()
	if err != nil {
		return fmt.Errorf("listing watch folder: %w", err)
	}

	for _, path := range files {
		if _, seen := l.tracked[path]; seen {
			continue
		}
		l.tracked[path] = l.now()

		// Give whatever dropped the file a moment to finish writing it.
		if !l.sleep(ctx, l.cfg.Watcher.DelayFor()) {
			return nil
		}

		status := l.processor.ProcessFile(ctx, path)
		if status == types.StatusSkipped {
			continue
		}
		l.stats.Processed++
		l.stats.LastActivity = l.now()
		if status == types.StatusSuccess {
			l.stats.Succeeded++
		} else {
			l.stats.Failed++
		}
	}
	return nil
}

// discover returns the watch-folder files matching the configured
// filter, excluding anything under the Enhanced or Originals subtrees.
func (l *Loop) discover() ([]string, error) {
	entries, err := os.ReadDir(l.cfg.Folders.Base)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ok, err := doublestar.Match(l.cfg.Watcher.FileFilter, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("invalid file filter %q: %w", l.cfg.Watcher.FileFilter, err)
		}
		if !ok {
			continue
		}
		path := filepath.Join(l.cfg.Folders.Base, entry.Name())
		if within(l.cfg.Folders.Enhanced, path) || within(l.cfg.Folders.Originals, path) {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// expireTracked drops entries older than the tracking window so a file
// that reappears later is processed again.
func (l *Loop) expireTracked() {
	ttl := l.cfg.Watcher.TrackingTTL()
	now := l.now()
	for path, seen := range l.tracked {
		if now.Sub(seen) >= ttl {
			delete(l.tracked, path)
		}
	}
}

// heartbeat logs an uptime summary and re-checks backup eligibility
// when the wall-clock minute is a multiple of HeartbeatInterval and the
// poll landed early in that minute.
func (l *Loop) heartbeat() {
	now := l.now()
	if now.Minute()%l.cfg.Watcher.HeartbeatInterval != 0 {
		return
	}
	if time.Duration(now.Second())*time.Second >= heartbeatWindow {
		return
	}

	l.log.Info("heartbeat",
		zap.Duration("uptime", l.stats.Uptime(now).Round(time.Second)),
		zap.Int("processed", l.stats.Processed),
		zap.Int("succeeded", l.stats.Succeeded),
		zap.Int("failed", l.stats.Failed),
		zap.Int("tracked", len(l.tracked)),
		zap.Time("last_activity", l.stats.LastActivity))

	l.maybeBackup()
}

// maybeBackup runs a gated backup; failures are logged, never fatal.
func (l *Loop) maybeBackup() {
	if l.backups == nil {
		return
	}
	pkg, err := l.backups.Backup(l.cfg)
	if err != nil {
		l.log.Error("backup failed", zap.Error(err))
		return
	}
	if pkg != "" {
		l.log.Info("backup created", zap.String("package", pkg))
	}
}

// Stats returns a copy of the current run statistics.
func (l *Loop) Stats() types.RunStats {
	return l.stats
}

// Tracked reports whether path currently has a tracking entry.
func (l *Loop) Tracked(path string) bool {
	_, ok := l.tracked[path]
	return ok
}

// within reports whether path sits inside dir.
func within(dir, path string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !filepath.IsAbs(rel) &&
		!(len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator))
}

// sleepCtx waits for d or cancellation, reporting false when cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
