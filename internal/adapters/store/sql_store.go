package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/core"
)

// sqlStore holds the queries shared by the SQLite and MySQL stores.
// Timestamps are stored as unix seconds so both dialects compare them the same way.
type sqlStore struct {
	db      *sql.DB
	logger  *zap.Logger
	upsert  string
	janitor *janitor
}

func (s *sqlStore) Save(ctx context.Context, verdict *core.Verdict) error {
	if verdict == nil || verdict.ID == "" {
		return ErrInvalidVerdict
	}

	reasons, err := json.Marshal(verdict.Reasons)
	if err != nil {
		return fmt.Errorf("failed to encode reasons: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.upsert,
		verdict.ID,
		string(verdict.Kind),
		verdict.Label,
		verdict.Score,
		string(reasons),
		verdict.Fingerprint,
		verdict.CreatedAt.Unix(),
		expiresUnix(verdict),
	)
	if err != nil {
		return fmt.Errorf("failed to insert verdict: %w", err)
	}
	return nil
}

func (s *sqlStore) Get(ctx context.Context, id string) (*core.Verdict, error) {
	var (
		v                    core.Verdict
		kind, reasons        string
		createdAt, expiresAt int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, label, score, reasons, fingerprint, created_at, expires_at
		FROM verdicts
		WHERE id = ? AND (expires_at = 0 OR expires_at > ?)
	`, id, time.Now().Unix()).Scan(&v.ID, &kind, &v.Label, &v.Score, &reasons, &v.Fingerprint, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query verdict: %w", err)
	}

	if err := json.Unmarshal([]byte(reasons), &v.Reasons); err != nil {
		return nil, fmt.Errorf("failed to decode reasons: %w", err)
	}
	v.Kind = core.Kind(kind)
	v.CreatedAt = time.Unix(createdAt, 0)
	if expiresAt > 0 {
		v.ExpiresAt = time.Unix(expiresAt, 0)
	}
	return &v, nil
}

func (s *sqlStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM verdicts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete verdict: %w", err)
	}
	return nil
}

func (s *sqlStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM verdicts
		WHERE expires_at > 0 AND expires_at <= ?
	`, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to clean up expired verdicts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired verdicts", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (s *sqlStore) Stop() {
	s.janitor.stop()
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}
}

func expiresUnix(v *core.Verdict) int64 {
	if v.ExpiresAt.IsZero() {
		return 0
	}
	return v.ExpiresAt.Unix()
}

func execAll(db *sql.DB, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
