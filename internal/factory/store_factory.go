package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/adapters/store"
	"github.com/mikey/threat-analyzer/internal/config"
	"github.com/mikey/threat-analyzer/internal/core"
)

// StoreFactory creates verdict stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateVerdictStore creates the configured verdict store. Type "none"
// yields a nil repository, which disables verdict recording.
func (f *StoreFactory) CreateVerdictStore() (core.VerdictRepository, error) {
	sc, err := f.cfg.GetStore()
	if err != nil {
		return nil, err
	}

	switch sc.Type {
	case "none", "":
		f.logger.Info("Verdict store disabled")
		return nil, nil
	case "memory":
		return store.NewMemoryStore(f.logger, sc.CleanupFrequency), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(sc.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(sc.SQLitePath, f.logger, sc.CleanupFrequency)
	case "mysql":
		return store.NewMySQLStore(sc.MySQLDSN, f.logger, sc.CleanupFrequency)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return store.NewRedisStore(ctx, sc.RedisAddr, sc.RedisPrefix, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}

// Retention returns how long recorded verdicts are kept
func (f *StoreFactory) Retention() (time.Duration, error) {
	sc, err := f.cfg.GetStore()
	if err != nil {
		return 0, err
	}
	return sc.Retention, nil
}
