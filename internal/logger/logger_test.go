package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetup_FormatAndLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	log := Setup("info", "json", &buf)
	log.Debug("hidden")
	log.Info("shown", "run_id", "r1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record should be filtered: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"run_id":"r1"`) {
		t.Errorf("expected JSON record, got %s", out)
	}
	if slog.Default() != log {
		t.Error("Setup should install the default logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelWarn,
		"":        slog.LevelWarn,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestOpenOutput(t *testing.T) {
	t.Run("discard", func(t *testing.T) {
		w, closeFn, err := OpenOutput("")
		if err != nil {
			t.Fatalf("OpenOutput: %v", err)
		}
		if w != io.Discard {
			t.Errorf("expected io.Discard, got %T", w)
		}
		if err := closeFn(); err != nil {
			t.Errorf("close: %v", err)
		}
	})

	t.Run("stderr", func(t *testing.T) {
		w, _, err := OpenOutput("stderr")
		if err != nil {
			t.Fatalf("OpenOutput: %v", err)
		}
		if w != os.Stderr {
			t.Errorf("expected os.Stderr, got %T", w)
		}
	})

	t.Run("stdout rejected", func(t *testing.T) {
		if _, _, err := OpenOutput("stdout"); err == nil {
			t.Error("expected stdout to be rejected")
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "kkp.log")
		w, closeFn, err := OpenOutput(path)
		if err != nil {
			t.Fatalf("OpenOutput: %v", err)
		}
		if _, err := io.WriteString(w, "line\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := closeFn(); err != nil {
			t.Fatalf("close: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil || string(data) != "line\n" {
			t.Errorf("file = %q, %v", data, err)
		}
	})
}

func TestContext(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("expected logger from context")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger without context value")
	}
}
