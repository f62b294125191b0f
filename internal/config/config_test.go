package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	env "github.com/Netflix/go-env"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
ws_url: "wss://chat.example.com/chat"
name: "Alice"
supported_locales: [en, ca, es]
catalog_source: embedded
timeouts:
  dial: 3s
  ping_interval: 15s
notification_ttl: 2s
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.WSURL != "wss://chat.example.com/chat" {
		t.Errorf("WSURL = %q", cfg.WSURL)
	}
	if cfg.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", cfg.Name)
	}
	if len(cfg.SupportedLocales) != 3 {
		t.Errorf("SupportedLocales = %v", cfg.SupportedLocales)
	}
	if cfg.CatalogSource != CatalogEmbedded {
		t.Errorf("CatalogSource = %q", cfg.CatalogSource)
	}
	if cfg.Timeouts.Dial != 3*time.Second {
		t.Errorf("Timeouts.Dial = %v, want 3s", cfg.Timeouts.Dial)
	}
	if cfg.Timeouts.PingInterval != 15*time.Second {
		t.Errorf("Timeouts.PingInterval = %v, want 15s", cfg.Timeouts.PingInterval)
	}
	if cfg.NotificationTTL != 2*time.Second {
		t.Errorf("NotificationTTL = %v, want 2s", cfg.NotificationTTL)
	}

	// Unset fields keep their defaults.
	if cfg.DefaultLocale != "en" {
		t.Errorf("DefaultLocale = %q, want en", cfg.DefaultLocale)
	}
	if cfg.Timeouts.PongTimeout != 60*time.Second {
		t.Errorf("Timeouts.PongTimeout = %v, want 60s", cfg.Timeouts.PongTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")

	if _, err := Load(path); err == nil {
		t.Error("Load of missing file succeeded")
	}
	cfg, err := LoadOptional(path)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.WSURL != "ws://localhost:8080/chat" {
		t.Errorf("WSURL = %q, want default", cfg.WSURL)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ws_url: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty ws url", func(c *Config) { c.WSURL = "" }},
		{"bad catalog source", func(c *Config) { c.CatalogSource = "ftp" }},
		{"no locales", func(c *Config) { c.SupportedLocales = nil }},
		{"empty locale entry", func(c *Config) { c.SupportedLocales = []string{"en", ""} }},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
		{"zero ttl", func(c *Config) { c.NotificationTTL = 0 }},
		{"pong before ping", func(c *Config) { c.Timeouts.PongTimeout = time.Second }},
		{"bad http base", func(c *Config) { c.HTTPBase = "not a url" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate succeeded, want error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.Name = "FromFile"
	cfg.Locale = "en"

	err := cfg.applyEnvSet(env.EnvSet{
		"ROOMCHAT_WS_URL":         "ws://10.0.0.2:9000/chat",
		"ROOMCHAT_LOCALE":         "ca",
		"ROOMCHAT_CATALOG_SOURCE": "http",
		"ROOMCHAT_DEV":            "true",
		"LOG_LEVEL":               "debug",
	})
	if err != nil {
		t.Fatalf("applyEnvSet: %v", err)
	}

	if cfg.WSURL != "ws://10.0.0.2:9000/chat" {
		t.Errorf("WSURL = %q", cfg.WSURL)
	}
	if cfg.Locale != "ca" {
		t.Errorf("Locale = %q, want ca", cfg.Locale)
	}
	if cfg.Name != "FromFile" {
		t.Errorf("Name = %q, unset variable overrode the file", cfg.Name)
	}
	if !cfg.Dev {
		t.Error("Dev = false, want true")
	}
	if !cfg.Debug() {
		t.Error("Debug() = false with LOG_LEVEL=debug")
	}
	if cfg.CatalogSource != CatalogHTTP {
		t.Errorf("CatalogSource = %q", cfg.CatalogSource)
	}
}

func TestApplyEnvBadBool(t *testing.T) {
	cfg := Default()
	if err := cfg.applyEnvSet(env.EnvSet{"ROOMCHAT_DEV": "maybe"}); err == nil {
		t.Error("expected error for ROOMCHAT_DEV=maybe")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, ".env")); err != nil {
		t.Errorf("missing .env: %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ROOMCHAT_TEST_DOTENV=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROOMCHAT_TEST_DOTENV", "")
	os.Unsetenv("ROOMCHAT_TEST_DOTENV")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("ROOMCHAT_TEST_DOTENV"); got != "from-file" {
		t.Errorf("ROOMCHAT_TEST_DOTENV = %q, want from-file", got)
	}
}

func TestHTTPBaseURL(t *testing.T) {
	cfg := Default()
	cfg.WSURL = "wss://chat.example.com/chat"
	if got := cfg.HTTPBaseURL(); got != "https://chat.example.com" {
		t.Errorf("derived HTTPBaseURL = %q", got)
	}
	cfg.HTTPBase = "http://api.example.com"
	if got := cfg.HTTPBaseURL(); got != "http://api.example.com" {
		t.Errorf("explicit HTTPBaseURL = %q", got)
	}
}

func TestLogPath(t *testing.T) {
	cfg := Default()
	if got := cfg.LogPath("/state"); got != filepath.Join("/state", "roomchat.log") {
		t.Errorf("LogPath = %q", got)
	}
	cfg.LogFile = "-"
	if got := cfg.LogPath("/state"); got != "" {
		t.Errorf("LogPath with - = %q, want empty", got)
	}
	cfg.LogFile = "/var/log/chat.log"
	if got := cfg.LogPath("/state"); got != "/var/log/chat.log" {
		t.Errorf("LogPath absolute = %q", got)
	}
}
