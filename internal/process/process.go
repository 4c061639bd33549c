// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package process ingests a single watched file: archive the original,
// derive an AI filename, write the AI-rewritten copy, remove the source.
// A file's failure never propagates as an error; the watch loop must
// outlive any single bad file.
package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/marksnips/internal/notify"
	"github.com/pdiddy/marksnips/pkg/types"
)

// sentinelName is a probe file some deployments drop to verify the
// watcher is alive; it is never processed.
const sentinelName = "watcher-test-file.tmp"

// Enhancer is the slice of the AI client the processor needs.
type Enhancer interface {
	EnhanceContent(ctx context.Context, markdownText string) (string, error)
	GenerateFilename(ctx context.Context, markdownText, originalPath string) string
}

// Recorder appends processing records to the journal.
type Recorder interface {
	Append(ctx context.Context, rec types.ProcessRecord) error
}

// Processor handles one file at a time. It owns no state between calls.
type Processor struct {
	folders  types.FoldersConfig
	enhancer Enhancer
	journal  Recorder
	notifier notify.Notifier
	log      *zap.Logger
}

// New creates a Processor. journal may be nil when no history is kept.
func New(folders types.FoldersConfig, enhancer Enhancer, journal Recorder, notifier notify.Notifier, log *zap.Logger) *Processor {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		folders:  folders,
		enhancer: enhancer,
		journal:  journal,
		notifier: notifier,
		log:      log,
	}
}

// ProcessFile runs the full pass over path and returns the terminal
// status. Errors are logged and reflected in the status, never returned.
func (p *Processor) ProcessFile(ctx context.Context, path string) types.ProcessStatus {
	name := filepath.Base(path)

	if reason := p.excluded(path, name); reason != "" {
		p.log.Info("skipping file", zap.String("file", name), zap.String("reason", reason))
		p.record(ctx, types.ProcessRecord{Path: path, OriginalName: name, Status: types.StatusSkipped, Error: reason})
		return types.StatusSkipped
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p.fail(ctx, path, name, fmt.Errorf("reading file: %w", err))
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		p.log.Warn("file is empty, leaving in place", zap.String("file", name))
		p.record(ctx, types.ProcessRecord{Path: path, OriginalName: name, Status: types.StatusSkipped, Error: "empty file"})
		return types.StatusSkipped
	}

	// Archive the untouched original first so every later failure is
	// recoverable from the Originals copy.
	originalCopy := filepath.Join(p.folders.Originals, name)
	if err := copyFile(path, originalCopy); err != nil {
		return p.fail(ctx, path, name, fmt.Errorf("archiving original: %w", err))
	}

	enhancedName := p.enhancer.GenerateFilename(ctx, content, path)
	destPath := filepath.Join(p.folders.Enhanced, enhancedName)

	cleaned, err := p.enhancer.EnhanceContent(ctx, content)
	if err != nil {
		// The original stays in the watch folder; the next run's
		// initial pass picks it up again.
		p.log.Error("enhancement failed, original left in place",
			zap.String("file", name), zap.Error(err))
		p.notifier.Failure("MarkSnips", fmt.Sprintf("Failed to enhance %s: %v", name, err))
		p.record(ctx, types.ProcessRecord{
			Path: path, OriginalName: name, EnhancedName: enhancedName,
			Status: types.StatusRetryPending, Error: err.Error(),
		})
		return types.StatusRetryPending
	}

	if err := writeFileReplace(destPath, []byte(cleaned)); err != nil {
		return p.failArchived(ctx, path, name, enhancedName, fmt.Errorf("writing enhanced file: %w", err))
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			p.log.Warn("original already gone from watch folder", zap.String("file", name))
		} else {
			return p.failArchived(ctx, path, name, enhancedName, fmt.Errorf("removing original: %w", err))
		}
	}

	p.log.Info("file enhanced",
		zap.String("original", name), zap.String("enhanced", enhancedName))
	p.notifier.Success("MarkSnips", fmt.Sprintf("Enhanced %s -> %s", name, enhancedName))
	p.record(ctx, types.ProcessRecord{
		Path: path, OriginalName: name, EnhancedName: enhancedName,
		Status: types.StatusSuccess,
	})
	return types.StatusSuccess
}

// excluded returns a human-readable reason when path must not be
// processed, or "" when it is eligible.
func (p *Processor) excluded(path, name string) string {
	switch {
	case strings.EqualFold(name, "README.md"):
		return "documentation file"
	case strings.EqualFold(name, "CHANGELOG.md"):
		return "documentation file"
	case name == sentinelName:
		return "watcher probe file"
	}
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, "-enhanced.md") {
		return "already enhanced"
	}
	if strings.HasSuffix(lower, ".backup.md") {
		return "backup copy"
	}
	if within(p.folders.Enhanced, path) || within(p.folders.Originals, path) {
		return "inside managed output folder"
	}
	return ""
}

// fail handles failures before the Originals copy succeeded.
func (p *Processor) fail(ctx context.Context, path, name string, err error) types.ProcessStatus {
	p.log.Error("processing failed", zap.String("file", name), zap.Error(err))
	p.notifier.Failure("MarkSnips", fmt.Sprintf("Failed to process %s: %v", name, err))
	p.record(ctx, types.ProcessRecord{
		Path: path, OriginalName: name, Status: types.StatusFailed, Error: err.Error(),
	})
	return types.StatusFailed
}

// failArchived handles failures after the original was archived; the
// watch-folder file is left untouched so the state stays recoverable.
func (p *Processor) failArchived(ctx context.Context, path, name, enhancedName string, err error) types.ProcessStatus {
	p.log.Error("processing failed after archival", zap.String("file", name), zap.Error(err))
	p.notifier.Failure("MarkSnips", fmt.Sprintf("Failed to process %s: %v", name, err))
	p.record(ctx, types.ProcessRecord{
		Path: path, OriginalName: name, EnhancedName: enhancedName,
		Status: types.StatusRetryPending, Error: err.Error(),
	})
	return types.StatusRetryPending
}

func (p *Processor) record(ctx context.Context, rec types.ProcessRecord) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Append(ctx, rec); err != nil {
		p.log.Warn("journal write failed", zap.String("file", rec.OriginalName), zap.Error(err))
	}
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
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}

// copyFile copies src to dst verbatim, overwriting dst if present.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// writeFileReplace writes data to path through a temp file and rename,
// replacing any existing file in one step.
func writeFileReplace(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".enhance-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return writeErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
