// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal persists per-file processing records in a SQLite
// database. The journal is the durable record of what the watcher did:
// every pass over a file appends one row, and files whose enhancement
// failed after archival are queryable as retry-pending for the next run.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/marksnips/pkg/types"
)

const dbFile = "journal.db"

// Journal wraps the processing-history database.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database under dir.
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return j, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			original_name TEXT NOT NULL,
			enhanced_name TEXT,
			status TEXT NOT NULL,
			error TEXT,
			processed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_path ON records(path)`,
		`CREATE INDEX IF NOT EXISTS idx_records_status ON records(status)`,
	}
	for _, stmt := range statements {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Append stores one processing record. A missing ID is generated; a
// zero ProcessedAt is set to now.
func (j *Journal) Append(ctx context.Context, rec types.ProcessRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO records (id, path, original_name, enhanced_name, status, error, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Path, rec.OriginalName, rec.EnhancedName,
		string(rec.Status), rec.Error, rec.ProcessedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting record for %s: %w", rec.Path, err)
	}
	return nil
}

// RetryPending returns the paths whose most recent record is
// retry-pending: archived to Originals but never successfully enhanced.
func (j *Journal) RetryPending(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT path FROM records r
		 WHERE processed_at = (SELECT MAX(processed_at) FROM records WHERE path = r.path)
		   AND status = ?
		 ORDER BY processed_at`,
		string(types.StatusRetryPending),
	)
	if err != nil {
		return nil, fmt.Errorf("querying retry-pending records: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]types.ProcessRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, path, original_name, enhanced_name, status, error, processed_at
		 FROM records ORDER BY processed_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []types.ProcessRecord
	for rows.Next() {
		var rec types.ProcessRecord
		var enhanced, errText sql.NullString
		var status, processedAt string
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.OriginalName, &enhanced, &status, &errText, &processedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.EnhancedName = enhanced.String
		rec.Error = errText.String
		rec.Status = types.ProcessStatus(status)
		if t, parseErr := time.Parse(time.RFC3339Nano, processedAt); parseErr == nil {
			rec.ProcessedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
