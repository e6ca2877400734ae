package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("API_URL", "https://libretranslate.example.com/translate")
	t.Setenv("API_KEY", "test_api_key")
	t.Setenv("TARGET_LANG", "ja")
	t.Setenv("POLL_INTERVAL_MS", "20")
	t.Setenv("START_LOCAL_SERVER", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.APIURL != "https://libretranslate.example.com/translate" {
		t.Errorf("Expected APIURL from env, got '%s'", cfg.APIURL)
	}
	if cfg.APIKey != "test_api_key" {
		t.Errorf("Expected APIKey to be 'test_api_key', got '%s'", cfg.APIKey)
	}
	if cfg.TargetLang != "ja" {
		t.Errorf("Expected TargetLang to be 'ja', got '%s'", cfg.TargetLang)
	}
	if cfg.StartLocalServer {
		t.Errorf("Expected StartLocalServer to be false")
	}
	if got := cfg.PollInterval(); got != MinPollInterval {
		t.Errorf("Expected poll interval floor %v, got %v", MinPollInterval, got)
	}
	if cfg.SourceLang != "auto" {
		t.Errorf("Expected default SourceLang 'auto', got '%s'", cfg.SourceLang)
	}
}

func TestLoadDefaultsDeriveLocalURL(t *testing.T) {
	t.Setenv("API_PORT", "5100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:5100/translate" {
		t.Errorf("Expected derived API URL, got '%s'", cfg.APIURL)
	}
	if got := cfg.PollInterval(); got != 100*time.Millisecond {
		t.Errorf("Expected 100ms poll interval, got %v", got)
	}
	if got := cfg.Languages(); len(got) != 6 || got[0] != "en" {
		t.Errorf("Unexpected languages %v", got)
	}
}

func TestLoadWithOptionsOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(envFile, []byte("TARGET_LANG=es\nMAX_TEXT_LENGTH=300\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("TARGET_LANG")
		os.Unsetenv("MAX_TEXT_LENGTH")
	})

	cfg, err := LoadWithOptions(LoadOptions{
		EnvFileOverride:    envFile,
		TargetLangOverride: "fr",
		DisableLocalServer: true,
	})
	if err != nil {
		t.Fatalf("LoadWithOptions: %v", err)
	}
	if cfg.EnvPath != envFile {
		t.Errorf("Expected EnvPath %q, got %q", envFile, cfg.EnvPath)
	}
	if cfg.MaxTextLength != 300 {
		t.Errorf("Expected MaxTextLength from file, got %d", cfg.MaxTextLength)
	}
	if cfg.TargetLang != "fr" {
		t.Errorf("Expected flag override 'fr', got '%s'", cfg.TargetLang)
	}
	if cfg.StartLocalServer {
		t.Errorf("Expected local server disabled by option")
	}
}

func TestLoadRejectsTinyMaxLength(t *testing.T) {
	t.Setenv("MAX_TEXT_LENGTH", "1")
	if _, err := Load(); err == nil {
		t.Fatal("Expected error for MAX_TEXT_LENGTH=1")
	}
}

func TestIsLoopbackURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://127.0.0.1:5000/translate", true},
		{"http://localhost:5000/translate", true},
		{"http://[::1]:5000/translate", true},
		{"https://libretranslate.com/translate", false},
		{"http://10.0.0.5/translate", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		if got := IsLoopbackURL(tt.url); got != tt.want {
			t.Errorf("IsLoopbackURL(%q) = %v, expected %v", tt.url, got, tt.want)
		}
	}
}

func TestLoadToggleHotkey(t *testing.T) {
	t.Setenv("TOGGLE_HOTKEY", "Ctrl+Alt+T")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.ToggleHotkey != "Ctrl+Alt+T" {
		t.Errorf("Expected ToggleHotkey from env, got '%s'", cfg.ToggleHotkey)
	}
	if Defaults().ToggleHotkey != "" {
		t.Errorf("Expected the hotkey to be off by default")
	}
}
