// SPDX-License-Identifier: MPL-2.0

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// FileName is the database file name inside the state directory.
const FileName = "history.db"

// ErrInvalidLimit is returned by Recent for a non-positive limit.
var ErrInvalidLimit = errors.New("limit must be positive")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at_ns INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	source_dir TEXT NOT NULL,
	env_root TEXT NOT NULL,
	command_name TEXT NOT NULL,
	packages INTEGER NOT NULL,
	state TEXT NOT NULL,
	phase TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at_ns ON runs(started_at_ns);
`

type (
	// Entry is one recorded install run.
	Entry struct {
		ID          string        `json:"id" yaml:"id"`
		StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
		Duration    time.Duration `json:"duration" yaml:"duration"`
		SourceDir   string        `json:"source_dir" yaml:"source_dir"`
		EnvRoot     string        `json:"env_root" yaml:"env_root"`
		CommandName string        `json:"command_name" yaml:"command_name"`
		// Packages is the number of packages built.
		Packages int    `json:"packages" yaml:"packages"`
		State    string `json:"state" yaml:"state"`
		// Phase and Error are set for failed runs.
		Phase string `json:"phase,omitempty" yaml:"phase,omitempty"`
		Error string `json:"error,omitempty" yaml:"error,omitempty"`
	}

	// Store is a run history database.
	Store struct {
		db *sql.DB
	}
)

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// A single connection keeps PRAGMAs in effect for every statement.
	db.SetMaxOpenConns(1)

	stmts := append([]string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"}, strings.Split(schema, ";")...)
	for _, stmt := range stmts {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialize history: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e. An empty ID is replaced with a new UUID.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at_ns, duration_ms, source_dir, env_root, command_name, packages, state, phase, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.StartedAt.UnixNano(), e.Duration.Milliseconds(),
		e.SourceDir, e.EnvRoot, e.CommandName, e.Packages, e.State, e.Phase, e.Error,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns at most limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at_ns, duration_ms, source_dir, env_root, command_name, packages, state, phase, error
		 FROM runs ORDER BY started_at_ns DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			started int64
			ms      int64
		)
		if err := rows.Scan(&e.ID, &started, &ms, &e.SourceDir, &e.EnvRoot, &e.CommandName, &e.Packages, &e.State, &e.Phase, &e.Error); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.StartedAt = time.Unix(0, started).UTC()
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
