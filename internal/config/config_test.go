package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	srv, err := cfg.GetServer()
	if err != nil {
		t.Fatal(err)
	}
	if srv.Type != "http" || srv.ListenAddress != "0.0.0.0:8080" || srv.AnalysisTimeout != 10*time.Second {
		t.Errorf("server = %+v", srv)
	}

	st, err := cfg.GetStore()
	if err != nil {
		t.Fatal(err)
	}
	if st.Type != "memory" || st.Retention != 24*time.Hour || st.CleanupFrequency != time.Hour {
		t.Errorf("store = %+v", st)
	}

	if e := cfg.GetEmail(); e.PhishingWeight != 15 || e.FraudWeight != 12 || e.SpamWeight != 8 || e.MaxReasons != 5 {
		t.Errorf("email = %+v", e)
	}
	if p := cfg.GetPDF(); p.MaxTextChars != 10000 || p.MaxURLs != 50 {
		t.Errorf("pdf = %+v", p)
	}
	if u := cfg.GetURL(); u.BatchLimit != 20 {
		t.Errorf("url = %+v", u)
	}
	if h := cfg.GetPostfix(); h.LabelHeader != "X-Threat-Label" || h.Port != 10026 {
		t.Errorf("postfix = %+v", h)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threat.yaml")
	data := []byte(`
server:
  type: postfix
  listen_address: 127.0.0.1:10025
store:
  type: sqlite
  retention: 2h
url:
  trusted_domains: [example.com, corp.example]
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	srv, _ := cfg.GetServer()
	if srv.Type != "postfix" || srv.ListenAddress != "127.0.0.1:10025" {
		t.Errorf("server = %+v", srv)
	}
	st, _ := cfg.GetStore()
	if st.Type != "sqlite" || st.Retention != 2*time.Hour {
		t.Errorf("store = %+v", st)
	}
	if got := cfg.GetURL().TrustedDomains; len(got) != 2 || got[1] != "corp.example" {
		t.Errorf("trusted = %v", got)
	}
	// Unset keys keep their defaults.
	if cfg.GetMetrics().Namespace != "threat_analyzer" {
		t.Errorf("namespace = %q", cfg.GetMetrics().Namespace)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("THREAT_ANALYZER_STORE_TYPE", "redis")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := cfg.GetString("store.type"); got != "redis" {
		t.Errorf("store.type = %q, want redis", got)
	}
}

func TestInvalidDuration(t *testing.T) {
	v := NewEmptyViper()
	v.Set("store.retention", "soon")
	if _, err := NewFromViper(v).GetStore(); err == nil {
		t.Error("expected invalid duration error")
	}
}
