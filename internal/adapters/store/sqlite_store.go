package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of core.VerdictRepository
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	err = execAll(db, `
		CREATE TABLE IF NOT EXISTS verdicts (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			label TEXT NOT NULL,
			score REAL NOT NULL,
			reasons TEXT NOT NULL,
			fingerprint TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_expires_at ON verdicts(expires_at)`,
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &SQLiteStore{sqlStore{
		db:     db,
		logger: logger,
		upsert: `
			INSERT OR REPLACE INTO verdicts (id, kind, label, score, reasons, fingerprint, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	}}
	s.janitor = startJanitor(s, cleanupFreq, logger)
	return s, nil
}
