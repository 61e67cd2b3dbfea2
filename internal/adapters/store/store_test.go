package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/core"
)

type stoppable interface {
	core.VerdictRepository
	Stop()
}

func sampleVerdict(id string, expiresIn time.Duration) *core.Verdict {
	now := time.Now().Truncate(time.Second)
	v := &core.Verdict{
		ID:          id,
		Kind:        core.KindURL,
		Label:       "high",
		Score:       6.5,
		Reasons:     []string{"Uses IP address instead of domain", "Suspicious path keyword: login"},
		Fingerprint: "T1ABC",
		CreatedAt:   now,
	}
	if expiresIn != 0 {
		v.ExpiresAt = now.Add(expiresIn)
	}
	return v
}

// exerciseRepository runs the contract every store must satisfy
func exerciseRepository(t *testing.T, repo core.VerdictRepository) {
	ctx := context.Background()

	if err := repo.Save(ctx, &core.Verdict{}); !errors.Is(err, ErrInvalidVerdict) {
		t.Errorf("Save without id: err = %v, want ErrInvalidVerdict", err)
	}

	live := sampleVerdict("live", time.Hour)
	if err := repo.Save(ctx, live); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Get(ctx, "live")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Label != live.Label || got.Score != live.Score || got.Kind != live.Kind || got.Fingerprint != live.Fingerprint {
		t.Errorf("Get = %+v, want %+v", got, live)
	}
	if len(got.Reasons) != 2 || got.Reasons[1] != live.Reasons[1] {
		t.Errorf("Reasons = %v", got.Reasons)
	}
	if !got.CreatedAt.Equal(live.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, live.CreatedAt)
	}

	forever := sampleVerdict("forever", 0)
	if err := repo.Save(ctx, forever); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := repo.Get(ctx, "forever"); err != nil {
		t.Errorf("verdict without expiry: %v", err)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}

	if err := repo.Delete(ctx, "live"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "live"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}

	if err := repo.Cleanup(ctx); err != nil {
		t.Errorf("Cleanup: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), time.Hour)
	defer s.Stop()
	exerciseRepository(t, s)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 0)
	defer s.Stop()
	ctx := context.Background()

	expired := sampleVerdict("old", time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	if err := s.Save(ctx, expired); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired verdict returned: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d before cleanup", s.Len())
	}
	if err := s.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after cleanup, want 0", s.Len())
	}
}

func TestMemoryStoreCopiesVerdicts(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 0)
	defer s.Stop()
	ctx := context.Background()

	v := sampleVerdict("x", time.Hour)
	if err := s.Save(ctx, v); err != nil {
		t.Fatal(err)
	}
	v.Reasons[0] = "mutated"

	got, err := s.Get(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	if got.Reasons[0] == "mutated" {
		t.Error("store shares reason slice with caller")
	}
}

func TestJanitorRunsCleanup(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 10*time.Millisecond)
	defer s.Stop()

	v := sampleVerdict("short", time.Hour)
	v.ExpiresAt = time.Now().Add(-time.Second)
	if err := s.Save(context.Background(), v); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("janitor did not remove expired verdict")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJanitorStopIsIdempotent(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), time.Millisecond)
	s.Stop()
	s.Stop()
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(":memory:", zap.NewNop(), time.Hour)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer s.Stop()
	exerciseRepository(t, s)
}

func TestSQLiteStoreCleanup(t *testing.T) {
	s, err := NewSQLiteStore(":memory:", zap.NewNop(), 0)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer s.Stop()
	ctx := context.Background()

	v := sampleVerdict("old", time.Hour)
	v.ExpiresAt = time.Now().Add(-time.Hour)
	if err := s.Save(ctx, v); err != nil {
		t.Fatal(err)
	}
	if err := s.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM verdicts`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rows after cleanup = %d, want 0", n)
	}
}

func TestRedisStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s, err := NewRedisStore(ctx, "localhost:6379", "threat-test:", zap.NewNop())
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer s.Stop()
	exerciseRepository(t, s)
}

var (
	_ stoppable = (*MemoryStore)(nil)
	_ stoppable = (*SQLiteStore)(nil)
	_ stoppable = (*MySQLStore)(nil)
	_ stoppable = (*RedisStore)(nil)
)
