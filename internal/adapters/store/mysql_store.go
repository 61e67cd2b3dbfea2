package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of core.VerdictRepository
type MySQLStore struct {
	sqlStore
}

// NewMySQLStore connects to dsn and ensures the schema exists
func NewMySQLStore(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	err = execAll(db, `
		CREATE TABLE IF NOT EXISTS verdicts (
			id VARCHAR(36) PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			label VARCHAR(16) NOT NULL,
			score DOUBLE NOT NULL,
			reasons TEXT NOT NULL,
			fingerprint VARCHAR(80) NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_verdicts_expires_at (expires_at)
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	s := &MySQLStore{sqlStore{
		db:     db,
		logger: logger,
		upsert: `
			REPLACE INTO verdicts (id, kind, label, score, reasons, fingerprint, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	}}
	s.janitor = startJanitor(s, cleanupFreq, logger)
	return s, nil
}
