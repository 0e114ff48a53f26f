package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/segmint-dev/segmint/pkg/schema"
)

// SQLiteStore is the file-backed predictions log. It holds a *sql.DB, which
// is a connection pool manager, not a connection: each call acquires a
// connection and releases it on every exit path. Write serialization is left
// to SQLite itself (single writer, WAL).
type SQLiteStore struct {
	db *sql.DB

	mu   sync.Mutex // guards last
	last time.Time  // keeps created_at non-decreasing even if the wall clock steps back
}

// timeLayout is fixed-width (no trailing-zero trimming) so the TEXT
// created_at column sorts lexicographically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const migration = `
CREATE TABLE IF NOT EXISTS predictions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	income REAL NOT NULL,
	age INTEGER NOT NULL,
	total_spending REAL NOT NULL,
	recency INTEGER NOT NULL,
	cluster INTEGER NOT NULL,
	persona TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at DESC, id DESC);
`

// OpenSQLite opens (creating if needed) the predictions database at path and
// migrates the schema. Use ":memory:" for an in-memory database in tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if path == ":memory:" {
		// Every new pool connection to an in-memory DSN is its own empty
		// database; pin the pool to one connection so the migrated schema
		// is the one every call sees.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert appends rec to the log. ID and CreatedAt are assigned here; the
// insert is a single statement, so it either commits whole or not at all.
func (s *SQLiteStore) Insert(ctx context.Context, rec *schema.PredictionRecord) error {
	now := s.stamp()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (income, age, total_spending, recency, cluster, persona, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Income, rec.Age, rec.TotalSpending, rec.Recency, rec.Cluster, rec.Persona,
		now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}

	rec.ID = id
	rec.CreatedAt = now
	return nil
}

func (s *SQLiteStore) stamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if now.Before(s.last) {
		now = s.last
	}
	s.last = now
	return now
}

// ListRecent returns up to limit records, newest first.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]schema.PredictionRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, income, age, total_spending, recency, cluster, persona, created_at
		FROM predictions
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var out []schema.PredictionRecord
	for rows.Next() {
		var rec schema.PredictionRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Income, &rec.Age, &rec.TotalSpending,
			&rec.Recency, &rec.Cluster, &rec.Persona, &createdAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		ts, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		rec.CreatedAt = ts
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountByCluster returns per-cluster record counts in ascending cluster order.
func (s *SQLiteStore) CountByCluster(ctx context.Context) ([]schema.ClusterCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cluster, persona, COUNT(*)
		FROM predictions
		GROUP BY cluster, persona
		ORDER BY cluster`)
	if err != nil {
		return nil, fmt.Errorf("count predictions: %w", err)
	}
	defer rows.Close()

	var out []schema.ClusterCount
	for rows.Next() {
		var cc schema.ClusterCount
		if err := rows.Scan(&cc.Cluster, &cc.Persona, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan cluster count: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

// Count returns the total number of records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count predictions: %w", err)
	}
	return n, nil
}
