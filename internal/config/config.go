package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roomchat/chat-tui/internal/client"
)

const (
	CatalogHTTP     = "http"
	CatalogEmbedded = "embedded"
	CatalogAuto     = "auto"
)

type Config struct {
	WSURL            string        `yaml:"ws_url" validate:"required,url"`
	HTTPBase         string        `yaml:"http_base" validate:"omitempty,url"`
	Name             string        `yaml:"name"`
	Locale           string        `yaml:"locale"`
	SupportedLocales []string      `yaml:"supported_locales" validate:"min=1,dive,required"`
	DefaultLocale    string        `yaml:"default_locale" validate:"required"`
	CatalogSource    string        `yaml:"catalog_source" validate:"oneof=http embedded auto"`
	Dev              bool          `yaml:"dev"`
	LogFile          string        `yaml:"log_file"`
	LogLevel         string        `yaml:"log_level" validate:"oneof=debug info"`
	StateDir         string        `yaml:"state_dir"`
	Timeouts         TimeoutConfig `yaml:"timeouts"`
	NotificationTTL  time.Duration `yaml:"notification_ttl" validate:"gt=0"`
}

type TimeoutConfig struct {
	Dial         time.Duration `yaml:"dial" validate:"gt=0"`
	History      time.Duration `yaml:"history" validate:"gt=0"`
	Catalog      time.Duration `yaml:"catalog" validate:"gt=0"`
	Write        time.Duration `yaml:"write" validate:"gt=0"`
	PingInterval time.Duration `yaml:"ping_interval" validate:"gt=0"`
	PongTimeout  time.Duration `yaml:"pong_timeout" validate:"gtfield=PingInterval"`
}

// EnvOverrides are the environment variables that override file values.
// Empty variables leave the file value in place.
type EnvOverrides struct {
	WSURL         string `env:"ROOMCHAT_WS_URL"`
	HTTPBase      string `env:"ROOMCHAT_HTTP_BASE"`
	Name          string `env:"ROOMCHAT_NAME"`
	Locale        string `env:"ROOMCHAT_LOCALE"`
	CatalogSource string `env:"ROOMCHAT_CATALOG_SOURCE"`
	Dev           string `env:"ROOMCHAT_DEV"`
	StateDir      string `env:"ROOMCHAT_STATE_DIR"`
	LogFile       string `env:"ROOMCHAT_LOG_FILE"`
	LogLevel      string `env:"LOG_LEVEL"`
}

func defaultConfig() *Config {
	return &Config{
		WSURL:            "ws://localhost:8080/chat",
		SupportedLocales: []string{"en", "ca"},
		DefaultLocale:    "en",
		CatalogSource:    CatalogAuto,
		LogFile:          "roomchat.log",
		LogLevel:         "info",
		Timeouts: TimeoutConfig{
			Dial:         10 * time.Second,
			History:      10 * time.Second,
			Catalog:      5 * time.Second,
			Write:        10 * time.Second,
			PingInterval: 30 * time.Second,
			PongTimeout:  60 * time.Second,
		},
		NotificationTTL: 5 * time.Second,
	}
}

// Default returns the built-in configuration.
func Default() *Config { return defaultConfig() }

// DefaultPath returns $XDG_CONFIG_HOME/roomchat/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "roomchat", "config.yaml")
}

// Load reads the yaml file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, but a missing file yields the defaults.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() error {
	return c.applyEnvSet(nil)
}

func (c *Config) applyEnvSet(es env.EnvSet) error {
	var o EnvOverrides
	var err error
	if es == nil {
		_, err = env.UnmarshalFromEnviron(&o)
	} else {
		err = env.Unmarshal(es, &o)
	}
	if err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.WSURL, o.WSURL)
	set(&c.HTTPBase, o.HTTPBase)
	set(&c.Name, o.Name)
	set(&c.Locale, o.Locale)
	set(&c.CatalogSource, o.CatalogSource)
	set(&c.StateDir, o.StateDir)
	set(&c.LogFile, o.LogFile)
	set(&c.LogLevel, o.LogLevel)
	if o.Dev != "" {
		dev, err := strconv.ParseBool(o.Dev)
		if err != nil {
			return fmt.Errorf("ROOMCHAT_DEV: %w", err)
		}
		c.Dev = dev
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// HTTPBaseURL returns http_base, or the base derived from ws_url when unset.
func (c *Config) HTTPBaseURL() string {
	if c.HTTPBase != "" {
		return c.HTTPBase
	}
	return client.DeriveHTTPBase(c.WSURL)
}

// LogPath returns where logs are written, or "" when logging is disabled.
// Relative paths are inside the state directory.
func (c *Config) LogPath(stateDir string) string {
	switch {
	case c.LogFile == "" || c.LogFile == "-":
		return ""
	case filepath.IsAbs(c.LogFile):
		return c.LogFile
	}
	return filepath.Join(stateDir, c.LogFile)
}

// Debug reports whether frame-level logging is on.
func (c *Config) Debug() bool { return c.LogLevel == "debug" }
