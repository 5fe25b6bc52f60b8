package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: " WARN ", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "info", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "verbose", want: slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupFiltersByLevel(t *testing.T) {
	original := Logger
	defer func() { Logger = original }()

	var buf bytes.Buffer
	Setup(&buf, "warn")
	Info("hidden")
	Debug("hidden too")
	Warn("shown", "source", "ws")
	Error("also shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected info and debug to be filtered:\n%s", out)
	}
	for _, want := range []string{"level=WARN", "msg=shown", "source=ws", "level=ERROR"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
