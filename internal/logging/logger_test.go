package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/mikey/threat-analyzer/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitLogger(t *testing.T) {
	v := config.NewEmptyViper()
	v.Set("logging.level", "debug")
	v.Set("logging.format", "console")

	logger, err := InitLogger(config.NewFromViper(v))
	if err != nil {
		t.Fatal(err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level not enabled")
	}
}

func TestInitConsoleLogger(t *testing.T) {
	quiet, err := InitConsoleLogger(false, true)
	if err != nil {
		t.Fatal(err)
	}
	if quiet.Core().Enabled(zapcore.InfoLevel) {
		t.Error("non-verbose console logger should suppress info")
	}

	verbose, err := InitConsoleLogger(true, false)
	if err != nil {
		t.Fatal(err)
	}
	if !verbose.Core().Enabled(zapcore.DebugLevel) {
		t.Error("verbose console logger should enable debug")
	}
}
