package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app_search_log.txt")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("earlier run\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var console bytes.Buffer
	logger, closer, err := New(Options{Level: "info", File: path, Console: &console})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info("exclusive app", "title", "Foo")
	logger.Debug("hidden at info")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if !strings.Contains(console.String(), "exclusive app") || !strings.Contains(console.String(), "title=Foo") {
		t.Fatalf("console output missing record: %q", console.String())
	}
	if strings.Contains(console.String(), "\x1b[") {
		t.Fatalf("non-terminal console should not be coloured: %q", console.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "earlier run\n") {
		t.Fatalf("log file should be appended to, got %q", content)
	}
	if !strings.Contains(content, "msg=\"exclusive app\"") || !strings.Contains(content, "time=") {
		t.Fatalf("file output missing timestamped record: %q", content)
	}
	if strings.Contains(content, "hidden at info") {
		t.Fatalf("debug record should be filtered")
	}
}

func TestNewVerboseEnablesDebug(t *testing.T) {
	var console bytes.Buffer
	logger, closer, err := New(Options{Level: "warn", Verbose: true, Console: &console})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer closer.Close()

	logger.With("run_id", "abc").Debug("chunk detail")
	if !strings.Contains(console.String(), "chunk detail") || !strings.Contains(console.String(), "run_id=abc") {
		t.Fatalf("verbose logger should emit debug with attrs: %q", console.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "", want: slog.LevelInfo},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "warning", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "loud", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v", tt.input, err)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
