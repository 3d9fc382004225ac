// Package config loads the user configuration of gh-review-triage.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName = "gh-review-triage"
	// FileName is the config file name inside the config directory.
	FileName = "config.yml"

	DefaultConcurrency       = 4
	DefaultRequestTimeout    = 30 * time.Second
	DefaultContextLines      = 5
	DefaultMaxRetries        = 3
	DefaultBaseDelay         = 1 * time.Second
	DefaultRequestsPerSecond = 10
	DefaultBurst             = 5
	DefaultModel             = "claude-sonnet-4-20250514"
)

// Environment variables that override the file.
const (
	EnvRepo      = "GH_TRIAGE_REPO"
	EnvLogLevel  = "GH_TRIAGE_LOG_LEVEL"
	EnvAPIKey    = "ANTHROPIC_API_KEY"
	EnvConfigDir = "XDG_CONFIG_HOME"
)

// ParseError indicates a configuration file exists but contains invalid content.
// A missing file is not an error; defaults are used instead.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid config at %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Config is the user configuration.
type Config struct {
	// Repo is the default repository when --repo is not given.
	Repo string `yaml:"repo"`
	Host string `yaml:"host"`
	// BotAuthors extends the built-in bot allow-list.
	BotAuthors     []string        `yaml:"bot_authors"`
	Concurrency    int             `yaml:"concurrency"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	ContextLines   int             `yaml:"context_lines"`
	Retry          RetryConfig     `yaml:"retry"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	Messages       MessagesConfig  `yaml:"messages"`
	Thorough       ThoroughConfig  `yaml:"thorough"`
	LogLevel       string          `yaml:"log_level"`
	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format"`
}

// RetryConfig bounds the retries of transient failures.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
}

// RateLimitConfig throttles calls to the GitHub API. Zero requests per second disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// MessagesConfig overrides the default replies.
type MessagesConfig struct {
	Fix     string `yaml:"fix"`
	Dismiss string `yaml:"dismiss"`
	Bulk    string `yaml:"bulk"`
}

// ThoroughConfig configures the LLM classifier.
type ThoroughConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:           "github.com",
		Concurrency:    DefaultConcurrency,
		RequestTimeout: DefaultRequestTimeout,
		ContextLines:   DefaultContextLines,
		Retry: RetryConfig{
			MaxRetries: DefaultMaxRetries,
			BaseDelay:  DefaultBaseDelay,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
		},
		Thorough:  ThoroughConfig{Model: DefaultModel},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/gh-review-triage/config.yml, falling back to ~/.config.
func DefaultPath() string {
	dir := os.Getenv(EnvConfigDir)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName, FileName)
}

// Load reads the config at path (DefaultPath when empty) and applies environment overrides.
// If the file doesn't exist, the default config is used.
// If the file exists but is invalid, a *ParseError is returned.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	config := DefaultConfig()
	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if config, err = Parse(content); err != nil {
				return nil, &ParseError{Path: path, Err: err}
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	config.ApplyEnv(os.Getenv)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Parse parses a config from YAML content on top of the defaults.
func Parse(content []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(content, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvRepo); v != "" {
		c.Repo = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvAPIKey); v != "" && c.Thorough.APIKey == "" {
		c.Thorough.APIKey = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency: %d (must be at least 1)", c.Concurrency)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request_timeout: %s (must be positive)", c.RequestTimeout)
	}
	if c.ContextLines < 1 {
		return fmt.Errorf("invalid context_lines: %d (must be at least 1)", c.ContextLines)
	}
	if c.Retry.MaxRetries < 0 || c.Retry.BaseDelay < 0 {
		return fmt.Errorf("invalid retry settings: max_retries and base_delay must not be negative")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("invalid rate_limit settings: values must not be negative")
	}

	switch strings.ToLower(c.LogFormat) {
	case "console", "json", "":
		if c.LogFormat == "" {
			c.LogFormat = "console"
		}
	default:
		return fmt.Errorf("invalid log_format value: %s (must be 'console' or 'json')", c.LogFormat)
	}

	return nil
}
