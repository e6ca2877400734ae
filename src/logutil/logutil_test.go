package logutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRedactKey(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"", ""},
		{"short", "********"},
		{"abcd1234efgh5678", "abcd...5678"},
	}
	for _, tt := range tests {
		if got := RedactKey(tt.in); got != tt.out {
			t.Errorf("RedactKey(%q) = %q, expected %q", tt.in, got, tt.out)
		}
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		out  string
	}{
		{"plain", "hello", 10, "hello"},
		{"newlines escaped", "a\nb\r", 10, `a\nb\n`},
		{"control chars", "a\x01b", 10, "a?b"},
		{"truncates runes", "日本語のテキスト", 3, "日本語..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.in, tt.max); got != tt.out {
				t.Errorf("Preview(%q, %d) = %q, expected %q", tt.in, tt.max, got, tt.out)
			}
		})
	}
}

func TestRotatingWriterRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogFileName)

	big := make([]byte, maxSizeBytes)
	if err := os.WriteFile(path, big, 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	w, err := NewRotatingWriter(path)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("next line\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("expected archive .1 after rotation: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "next line") || len(data) > 100 {
		t.Fatalf("expected fresh log with only the new line, got %d bytes", len(data))
	}
}

func TestSetupWithFileLogging(t *testing.T) {
	dir := t.TempDir()
	logger, err := Setup(Options{Dir: dir, EnableFileLogging: true})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Infow("hello", "k", "v")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("expected JSON log line, got %q", string(data))
	}
}

func TestSetupQuietKeepsFileLevel(t *testing.T) {
	dir := t.TempDir()
	logger, err := Setup(Options{Dir: dir, EnableFileLogging: true, Quiet: true})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Infow("still in file")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "still in file") {
		t.Fatalf("quiet should only affect the console, got %q", string(data))
	}
}
