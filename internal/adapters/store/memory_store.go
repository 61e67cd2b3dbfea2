package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/core"
)

var (
	// ErrNotFound is returned when a verdict does not exist or has expired
	ErrNotFound = core.ErrVerdictNotFound
	// ErrInvalidVerdict is returned when saving a verdict without an id
	ErrInvalidVerdict = errors.New("verdict has no id")
)

// MemoryStore keeps verdicts in process memory
type MemoryStore struct {
	verdicts map[string]*core.Verdict
	mu       sync.RWMutex
	logger   *zap.Logger
	janitor  *janitor
}

// NewMemoryStore creates a new in-memory verdict store
func NewMemoryStore(logger *zap.Logger, cleanupFreq time.Duration) *MemoryStore {
	s := &MemoryStore{
		verdicts: make(map[string]*core.Verdict),
		logger:   logger,
	}
	s.janitor = startJanitor(s, cleanupFreq, logger)
	return s
}

// Save stores a copy of the verdict
func (s *MemoryStore) Save(ctx context.Context, verdict *core.Verdict) error {
	if verdict == nil || verdict.ID == "" {
		return ErrInvalidVerdict
	}

	cp := *verdict
	cp.Reasons = append([]string(nil), verdict.Reasons...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts[verdict.ID] = &cp
	return nil
}

// Get retrieves a verdict by id
func (s *MemoryStore) Get(ctx context.Context, id string) (*core.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.verdicts[id]
	if !ok || v.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	cp := *v
	cp.Reasons = append([]string(nil), v.Reasons...)
	return &cp, nil
}

// Delete removes a verdict
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.verdicts, id)
	return nil
}

// Cleanup removes expired verdicts
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	expired := 0
	for id, v := range s.verdicts {
		if v.Expired(now) {
			delete(s.verdicts, id)
			expired++
		}
	}

	s.logger.Debug("Cleaned up expired verdicts", zap.Int("expired_count", expired))
	return nil
}

// Len returns the number of stored verdicts, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.verdicts)
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	s.janitor.stop()
}
