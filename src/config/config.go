package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	AppName = "screen-translate"

	// EnvFileEnvVar points at an alternative .env file.
	EnvFileEnvVar = "SCREEN_TRANSLATE_ENV"

	MinPollInterval = 50 * time.Millisecond
)

type LoadOptions struct {
	EnvFileOverride    string
	APIURLOverride     string
	TargetLangOverride string
	DisableLocalServer bool
}

type Config struct {
	APIURL            string `env:"API_URL"`
	APIKey            string `env:"API_KEY"`
	SourceLang        string `env:"SOURCE_LANG"`
	TargetLang        string `env:"TARGET_LANG"`
	PollIntervalMS    int    `env:"POLL_INTERVAL_MS"`
	PopupDurationSecs int    `env:"POPUP_DURATION_SECS"`
	MaxTextLength     int    `env:"MAX_TEXT_LENGTH"`
	PythonPath        string `env:"PYTHON_PATH"`
	APIPort           int    `env:"API_PORT"`
	// LoadLanguages is the comma-separated list passed to --load-only.
	LoadLanguages     string `env:"LOAD_LANGUAGES"`
	StartLocalServer  bool   `env:"START_LOCAL_SERVER"`
	EnableFileLogging bool   `env:"ENABLE_FILE_LOGGING"`
	// ToggleHotkey flips monitoring, e.g. "Ctrl+Alt+T". Empty disables it.
	ToggleHotkey string `env:"TOGGLE_HOTKEY"`
	// SingleInstancePort is the loopback port owned by the resident instance.
	SingleInstancePort int `env:"SINGLEINSTANCE_PORT"`

	// EnvPath is the .env file that was applied, if any.
	EnvPath string `env:"-"`
}

// DefaultAPIPort avoids the macOS AirPlay receiver on 5000.
func DefaultAPIPort() int {
	if runtime.GOOS == "darwin" {
		return 5001
	}
	return 5000
}

// Defaults returns the configuration before .env, environment and flag overrides.
func Defaults() *Config {
	return &Config{
		SourceLang:         "auto",
		TargetLang:         "id",
		PollIntervalMS:     100,
		PopupDurationSecs:  5,
		MaxTextLength:      5000,
		APIPort:            DefaultAPIPort(),
		LoadLanguages:      "en,zh,ja,es,ar,id",
		StartLocalServer:   true,
		SingleInstancePort: 49500,
	}
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	envPath := resolveEnvPath(opts)
	if envPath != "" {
		// Existing process environment wins over the file.
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.EnvPath = envPath

	if v := strings.TrimSpace(opts.APIURLOverride); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(opts.TargetLangOverride); v != "" {
		cfg.TargetLang = v
	}
	if opts.DisableLocalServer {
		cfg.StartLocalServer = false
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = LocalTranslateURL(cfg.APIPort)
	}
	if cfg.MaxTextLength < 2 {
		return nil, fmt.Errorf("MAX_TEXT_LENGTH must be at least 2, got %d", cfg.MaxTextLength)
	}
	if cfg.APIPort <= 0 || cfg.APIPort > 65535-9 {
		return nil, fmt.Errorf("API_PORT out of range: %d", cfg.APIPort)
	}
	if _, err := url.Parse(cfg.APIURL); err != nil {
		return nil, fmt.Errorf("API_URL is invalid: %w", err)
	}

	return cfg, nil
}

// PollInterval is the debounce interval with the 50ms floor applied.
func (c *Config) PollInterval() time.Duration {
	d := time.Duration(c.PollIntervalMS) * time.Millisecond
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}

func (c *Config) PopupDuration() time.Duration {
	return time.Duration(c.PopupDurationSecs) * time.Second
}

// Languages splits LoadLanguages into trimmed, non-empty codes.
func (c *Config) Languages() []string {
	var out []string
	for _, code := range strings.Split(c.LoadLanguages, ",") {
		if trimmed := strings.TrimSpace(code); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// IsLoopbackURL reports whether raw points at this machine.
func IsLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func LocalTranslateURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d/translate", port)
}

// AppDir is the per-user directory for logs and the service stderr log.
func AppDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, AppName)
}

// resolveEnvPath picks the .env file in priority order:
// 1) explicit override, 2) .env next to the executable,
// 3) .env in the app directory, 4) SCREEN_TRANSLATE_ENV.
func resolveEnvPath(opts LoadOptions) string {
	if p := strings.TrimSpace(opts.EnvFileOverride); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	appEnv := filepath.Join(AppDir(), ".env")
	if _, err := os.Stat(appEnv); err == nil {
		return appEnv
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}
