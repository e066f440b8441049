package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevelFallsBackToInfo(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuildJSONLogger(t *testing.T) {
	l, err := Build(Options{Level: "debug", Encoding: "json", Service: "agentcore-api"})
	if err != nil {
		t.Fatalf("build json logger: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level to be enabled")
	}
}

func TestOrDefaultPrefersGivenLogger(t *testing.T) {
	nop := zap.NewNop()
	if OrDefault(nop) != nop {
		t.Fatalf("expected OrDefault to return the given logger")
	}
	if OrDefault(nil) == nil {
		t.Fatalf("expected OrDefault(nil) to fall back to the global logger")
	}
}
