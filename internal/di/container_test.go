package di

import (
	"context"
	"flag"
	"io"
	"testing"

	"github.com/mikey/threat-analyzer/internal/adapters/filter"
	"github.com/mikey/threat-analyzer/internal/adapters/httpapi"
	"github.com/mikey/threat-analyzer/internal/core"
	"github.com/mikey/threat-analyzer/internal/metrics"
	"github.com/mikey/threat-analyzer/internal/ports"
)

func TestParseFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags, err := parseFlags(fs, []string{"-mode", "url", "-json", "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if flags.Mode != "url" || flags.URL != "https://example.com" || !flags.JSONOutput {
		t.Errorf("flags = %+v", flags)
	}

	for _, args := range [][]string{
		{"-mode", "url"},
		{"-mode", "docx"},
		{"-bogus"},
	} {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		if _, err := parseFlags(fs, args); err == nil {
			t.Errorf("parseFlags(%v) succeeded", args)
		}
	}
}

func TestBuildCLIContainer(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{Mode: "url", URL: "https://example.com"})
	if err != nil {
		t.Fatal(err)
	}

	err = container.Invoke(func(service *core.AnalysisService, cli *filter.CliFilter, recorder *metrics.Recorder) {
		if recorder != nil {
			t.Error("CLI runs should not collect metrics")
		}
		if cli == nil {
			t.Error("CLI filter not built")
		}
		res := service.AnalyzeURL(context.Background(), "http://192.168.1.1/login")
		if res.Risk != core.RiskHigh || res.VerdictID != "" {
			t.Errorf("result = %+v", res)
		}
		if _, err := service.Verdict(context.Background(), "x"); err != core.ErrNoStore {
			t.Errorf("Verdict err = %v, want ErrNoStore", err)
		}
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if err := Close(container); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestBuildContainer(t *testing.T) {
	t.Setenv("THREAT_ANALYZER_SERVER_TYPE", "http")
	t.Setenv("THREAT_ANALYZER_STORE_TYPE", "memory")
	t.Setenv("THREAT_ANALYZER_LOGGING_LEVEL", "error")

	container, err := BuildContainer()
	if err != nil {
		t.Fatal(err)
	}
	defer Close(container)

	err = container.Invoke(func(l ports.Listener, service *core.AnalysisService) {
		if _, ok := l.(*httpapi.Server); !ok {
			t.Errorf("listener = %T", l)
		}
		res := service.AnalyzeURL(context.Background(), "https://bit.ly/x")
		if res.VerdictID == "" {
			t.Fatal("verdict not recorded")
		}
		v, err := service.Verdict(context.Background(), res.VerdictID)
		if err != nil || v.Kind != core.KindURL {
			t.Errorf("verdict = %+v, err = %v", v, err)
		}
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
}
