// Package config loads remediation engine configuration from a YAML file
// with environment-variable fallbacks for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Browser connection modes.
const (
	BrowserModeLocal  = "local"
	BrowserModeRemote = "remote"
)

// OracleConfig configures the LLM backend specialists consult for fixes.
type OracleConfig struct {
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	TokenBudget int    `yaml:"token_budget"`
}

// BrowserConfig configures how the engine reaches a browser.
type BrowserConfig struct {
	// Mode is "local" (launch a browser on this machine) or "remote"
	// (connect to a browser farm over CDP).
	Mode     string `yaml:"mode"`
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
	Headless bool   `yaml:"headless"`
	Viewport string `yaml:"viewport"`

	// Retry tunes the remote connection backoff. Zero values keep the
	// defaults.
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig overrides the remote connection retry policy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// PipelineConfig tunes remediation execution.
type PipelineConfig struct {
	Workers         int           `yaml:"workers"`
	ReplanBudget    int           `yaml:"replan_budget"`
	PlanningTimeout time.Duration `yaml:"planning_timeout"`
}

// Config is the full engine configuration.
type Config struct {
	Oracle   OracleConfig   `yaml:"oracle"`
	Browser  BrowserConfig  `yaml:"browser"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Oracle: OracleConfig{
			Model: "gpt-4o-mini",
		},
		Browser: BrowserConfig{
			Mode:     BrowserModeLocal,
			Headless: true,
			Viewport: "desktop",
		},
	}
}

// DefaultPath returns ~/.remedy/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".remedy", "config.yaml"), nil
}

// Load reads configuration from path. A missing file is not an error; the
// defaults are returned. Secrets left empty in the file fall back to the
// environment (OPENAI_API_KEY, OPENAI_BASE_URL, REMEDY_BROWSER_ENDPOINT,
// REMEDY_BROWSER_TOKEN).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.Oracle.APIKey == "" {
		c.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Oracle.BaseURL == "" {
		c.Oracle.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if c.Browser.Endpoint == "" {
		c.Browser.Endpoint = os.Getenv("REMEDY_BROWSER_ENDPOINT")
	}
	if c.Browser.Token == "" {
		c.Browser.Token = os.Getenv("REMEDY_BROWSER_TOKEN")
	}
}

// Validate checks the configuration for contradictions. Zero-valued tuning
// fields are valid; the consuming packages apply their own defaults.
func (c *Config) Validate() error {
	switch c.Browser.Mode {
	case BrowserModeLocal, BrowserModeRemote:
	default:
		return fmt.Errorf("invalid browser mode %q: must be %q or %q",
			c.Browser.Mode, BrowserModeLocal, BrowserModeRemote)
	}

	if c.Browser.Mode == BrowserModeRemote && c.Browser.Endpoint == "" {
		return fmt.Errorf("browser mode %q requires an endpoint", BrowserModeRemote)
	}

	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline workers must not be negative, got %d", c.Pipeline.Workers)
	}

	return nil
}

// Save writes the configuration to path, creating parent directories as
// needed. The write goes through a temp file so a crash never truncates an
// existing config.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp config file: %w", err)
	}
	return nil
}
