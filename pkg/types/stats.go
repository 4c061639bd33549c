// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunStats holds the counters for one watcher run. Created at loop
// start, mutated per processed file, discarded at process exit.
type RunStats struct {
	Processed    int
	Succeeded    int
	Failed       int
	StartedAt    time.Time
	LastActivity time.Time
}

// Uptime returns the time elapsed since the loop started.
func (s RunStats) Uptime(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// ProcessStatus is the terminal state of one file's processing pass.
type ProcessStatus string

const (
	// StatusSuccess: the enhanced file was written and the original removed.
	StatusSuccess ProcessStatus = "success"

	// StatusSkipped: the file matched an exclusion and nothing was touched.
	StatusSkipped ProcessStatus = "skipped"

	// StatusRetryPending: the original was copied to Originals but
	// enhancement failed; the watch-folder file is left in place and is
	// picked up again by the initial pass of the next run.
	StatusRetryPending ProcessStatus = "retry-pending"

	// StatusFailed: processing failed before the Originals copy succeeded.
	StatusFailed ProcessStatus = "failed"
)

// ProcessRecord is one journal entry describing a processing pass.
type ProcessRecord struct {
	ID           string        `json:"id" yaml:"id"`
	Path         string        `json:"path" yaml:"path"`
	OriginalName string        `json:"original_name" yaml:"original_name"`
	EnhancedName string        `json:"enhanced_name,omitempty" yaml:"enhanced_name,omitempty"`
	Status       ProcessStatus `json:"status" yaml:"status"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
	ProcessedAt  time.Time     `json:"processed_at" yaml:"processed_at"`
}

// BackupInfo describes one backup package for listing.
type BackupInfo struct {
	Path      string    `json:"path" yaml:"path"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	SizeBytes int64     `json:"size_bytes" yaml:"size_bytes"`
	SizeHuman string    `json:"size_human" yaml:"size_human"`
}
