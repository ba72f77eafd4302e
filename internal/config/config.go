// Package config loads the hojas configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/michaelssavage/spanish-worksheets/internal/llm"
	"github.com/michaelssavage/spanish-worksheets/internal/logger"
	"github.com/michaelssavage/spanish-worksheets/internal/mail"
	"github.com/michaelssavage/spanish-worksheets/internal/scheduler"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

// Config is the full service configuration.
type Config struct {
	Database  store.Config     `yaml:"database"`
	LLM       llm.Config       `yaml:"llm"`
	Worksheet worksheet.Config `yaml:"worksheet"`
	Mail      mail.Config      `yaml:"mail"`
	HTTP      HTTPConfig       `yaml:"http"`
	Scheduler scheduler.Config `yaml:"scheduler"`
	Log       LogConfig        `yaml:"log"`
}

// HTTPConfig configures "hojas serve".
type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// JWTSecret signs API bearer tokens.
	JWTSecret string `yaml:"jwt_secret"`
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration `yaml:"token_ttl"`
	// CORSOrigins lists allowed browser origins. Empty disables CORS.
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Mode     string `yaml:"mode"`  // development or production
	Level    string `yaml:"level"` // debug, info, warn, error
	Redact   bool   `yaml:"redact"`
	HashSalt string `yaml:"hash_salt"`
}

// Options returns the logger options for this config.
func (c LogConfig) Options() logger.Options {
	return logger.Options{Mode: c.Mode, Level: c.Level, Redact: c.Redact, HashSalt: c.HashSalt}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database:  store.Config{Driver: store.DriverSQLite},
		LLM:       llm.DefaultConfig(),
		Worksheet: worksheet.DefaultConfig(),
		Mail:      mail.DefaultConfig(),
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Scheduler: scheduler.DefaultConfig(),
		Log: LogConfig{
			Mode:   "development",
			Level:  "info",
			Redact: true,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file yields the defaults. An empty path uses DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath resolves the config file location:
// 1. HOJAS_CONFIG environment variable
// 2. $XDG_CONFIG_HOME/hojas/config.yaml
// 3. ~/.config/hojas/config.yaml
func DefaultPath() string {
	if p := os.Getenv("HOJAS_CONFIG"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "hojas", "config.yaml")
}

// applyEnvOverrides lets deployments keep secrets out of the file.
func (c *Config) applyEnvOverrides() error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}

	str("HOJAS_DB", &c.Database.DSN)
	str("HOJAS_DB_DRIVER", &c.Database.Driver)

	str("HOJAS_LLM_PROVIDER", &c.LLM.Provider)
	str("DEEPSEEK_API_KEY", &c.LLM.DeepSeek.APIKey)
	str("HOJAS_DEEPSEEK_API_KEY", &c.LLM.DeepSeek.APIKey)
	str("HOJAS_DEEPSEEK_MODEL", &c.LLM.DeepSeek.Model)
	str("HOJAS_OPENAI_API_KEY", &c.LLM.OpenAI.APIKey)
	str("HOJAS_OPENAI_MODEL", &c.LLM.OpenAI.Model)
	str("HOJAS_ANTHROPIC_API_KEY", &c.LLM.Anthropic.APIKey)
	str("HOJAS_ANTHROPIC_MODEL", &c.LLM.Anthropic.Model)
	str("HOJAS_GEMINI_API_KEY", &c.LLM.Gemini.APIKey)
	str("HOJAS_GEMINI_MODEL", &c.LLM.Gemini.Model)
	str("HOJAS_OPENROUTER_API_KEY", &c.LLM.OpenRouter.APIKey)
	str("HOJAS_OPENROUTER_MODEL", &c.LLM.OpenRouter.Model)

	str("HOJAS_SCHEMA_VERSION", &c.Worksheet.SchemaVersion)

	str("MAILGUN_API_KEY", &c.Mail.APIKey)
	str("MAILGUN_DOMAIN", &c.Mail.Domain)
	str("MAILGUN_BASE_URL", &c.Mail.BaseURL)
	str("DEFAULT_FROM_EMAIL", &c.Mail.From)

	str("CRON_SECRET", &c.Scheduler.CronSecret)
	if v := os.Getenv("HOJAS_SWEEP_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HOJAS_SWEEP_CONCURRENCY: %w", err)
		}
		c.Scheduler.Concurrency = n
	}

	str("JWT_SECRET", &c.HTTP.JWTSecret)
	str("HOJAS_ADDR", &c.HTTP.Addr)

	str("HOJAS_LOG_MODE", &c.Log.Mode)
	str("HOJAS_LOG_LEVEL", &c.Log.Level)
	return nil
}

// Validate checks settings every command depends on. Credentials are
// checked by ValidateLLM and ValidateServer where they are needed.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "", store.DriverSQLite, store.DriverPostgres, "postgresql", "pgx":
	default:
		return fmt.Errorf("database driver %q is not supported", c.Database.Driver)
	}
	if err := c.Worksheet.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Mode) {
	case "", "dev", "development", "prod", "production":
	default:
		return fmt.Errorf("log mode %q is not supported (development, production)", c.Log.Mode)
	}
	if c.Scheduler.Concurrency < 0 {
		return errors.New("scheduler concurrency must not be negative")
	}
	return nil
}

// ValidateLLM checks the provider credentials.
func (c *Config) ValidateLLM() error {
	return c.LLM.Validate()
}

// ValidateServer checks what "hojas serve" needs.
func (c *Config) ValidateServer() error {
	var missing []string
	if c.HTTP.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Scheduler.CronSecret == "" {
		missing = append(missing, "CRON_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required to serve", strings.Join(missing, " and "))
	}
	return c.ValidateLLM()
}
