package factory

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/adapters/filter"
	"github.com/mikey/threat-analyzer/internal/adapters/httpapi"
	"github.com/mikey/threat-analyzer/internal/adapters/store"
	"github.com/mikey/threat-analyzer/internal/config"
	"github.com/mikey/threat-analyzer/internal/core"
)

func testConfig(settings map[string]any) *config.Config {
	v := config.NewEmptyViper()
	for k, val := range settings {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

func TestCreateVerdictStore(t *testing.T) {
	logger := zap.NewNop()

	repo, err := NewStoreFactory(testConfig(map[string]any{"store.type": "none"}), logger).CreateVerdictStore()
	if err != nil || repo != nil {
		t.Errorf("none: repo = %v, err = %v", repo, err)
	}

	repo, err = NewStoreFactory(testConfig(nil), logger).CreateVerdictStore()
	if err != nil {
		t.Fatal(err)
	}
	mem, ok := repo.(*store.MemoryStore)
	if !ok {
		t.Fatalf("default store = %T", repo)
	}
	mem.Stop()

	if _, err := NewStoreFactory(testConfig(map[string]any{"store.type": "etcd"}), logger).CreateVerdictStore(); err == nil {
		t.Error("expected error for unsupported store type")
	}
	if _, err := NewStoreFactory(testConfig(map[string]any{"store.cleanup_frequency": "often"}), logger).CreateVerdictStore(); err == nil {
		t.Error("expected error for invalid cleanup frequency")
	}
}

func TestCreateSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "verdicts.db")
	cfg := testConfig(map[string]any{"store.type": "sqlite", "store.sqlite_path": path})

	repo, err := NewStoreFactory(cfg, zap.NewNop()).CreateVerdictStore()
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer repo.(*store.SQLiteStore).Stop()
}

func TestRetention(t *testing.T) {
	f := NewStoreFactory(testConfig(map[string]any{"store.retention": "90m"}), zap.NewNop())
	d, err := f.Retention()
	if err != nil || d.Minutes() != 90 {
		t.Errorf("Retention = %v, %v", d, err)
	}
}

func TestAnalyzerFactory(t *testing.T) {
	cfg := testConfig(map[string]any{
		"url.trusted_domains": []string{"corp.example"},
		"email.version":       "2.0.0-test",
	})
	f := NewAnalyzerFactory(cfg, zap.NewNop())

	trusted := f.CreateTrustedDomains()
	if !trusted.IsTrustedHost("mail.corp.example") || !trusted.IsTrustedHost("github.com") {
		t.Error("configured and built-in domains must both be trusted")
	}

	res := f.CreateURLAnalyzer(trusted).Analyze("https://portal.corp.example/")
	if !res.KnownSafe {
		t.Errorf("configured trusted domain not applied: %+v", res)
	}

	if got := f.CreateEmailClassifier().Classify(core.EmailInput{Subject: "hi"}).Version; got != "2.0.0-test" {
		t.Errorf("Version = %q", got)
	}
	if got := f.CreatePDFAnalyzer().Analyze(nil).RiskScore; got != 5 {
		t.Errorf("empty PDF score = %v", got)
	}
}

func TestCreateListener(t *testing.T) {
	logger := zap.NewNop()
	service := core.NewAnalysisService(nil, nil, nil, nil, nil, nil, logger, core.ServiceOptions{})

	cases := []struct {
		kind string
		ok   func(any) bool
	}{
		{"http", func(l any) bool { _, ok := l.(*httpapi.Server); return ok }},
		{"postfix", func(l any) bool { _, ok := l.(*filter.PostfixFilter); return ok }},
		{"cli", func(l any) bool { _, ok := l.(*filter.CliFilter); return ok }},
	}
	for _, tc := range cases {
		f := NewListenerFactory(testConfig(map[string]any{"server.type": tc.kind}), logger, service, nil)
		l, err := f.CreateListener()
		if err != nil {
			t.Errorf("%s: %v", tc.kind, err)
			continue
		}
		if !tc.ok(l) {
			t.Errorf("%s: listener = %T", tc.kind, l)
		}
	}

	f := NewListenerFactory(testConfig(map[string]any{"server.type": "milter"}), logger, service, nil)
	if _, err := f.CreateListener(); err == nil {
		t.Error("expected error for unsupported server type")
	}
}

func TestTextProcessorFactory(t *testing.T) {
	f := NewTextProcessorFactory(testConfig(map[string]any{"email.max_text_bytes": 4}), zap.NewNop())
	if got := f.CreateTextProcessor().ProcessText("abcdef", f.MaxTextBytes()); got != "abcd" {
		t.Errorf("ProcessText = %q", got)
	}
}
