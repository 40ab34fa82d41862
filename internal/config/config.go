// Package config loads the corporate CLI configuration from a YAML file.
// Environment variables in the form ${VAR_NAME} are expanded before parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uader-fcyt/corporate/dynamodb"
)

// EnvConfigPath names the environment variable that overrides the config
// file location.
const EnvConfigPath = "CORPORATE_CONFIG"

// Config represents the complete CLI configuration.
type Config struct {
	AWS       AWSConfig      `yaml:"aws"`
	Tables    TablesConfig   `yaml:"tables"`
	Sequence  SequenceConfig `yaml:"sequence"`
	MachineID string         `yaml:"machine_id"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// AWSConfig holds the DynamoDB connection settings. Credentials always come
// from the ambient AWS environment.
type AWSConfig struct {
	Region           string `yaml:"region"`
	Endpoint         string `yaml:"endpoint"`
	MaxRetryAttempts int    `yaml:"max_retry_attempts"`

	// RequestTimeout bounds each CLI command. Zero means no timeout.
	RequestTimeout    time.Duration `yaml:"-"`
	RequestTimeoutRaw string        `yaml:"request_timeout"`
}

// TablesConfig holds the DynamoDB table names
type TablesConfig struct {
	Data string `yaml:"data"`
	Log  string `yaml:"log"`
}

// SequenceConfig controls sequence allocation
type SequenceConfig struct {
	Atomic bool `yaml:"atomic"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Tables: TablesConfig{
			Data: dynamodb.DataTableName,
			Log:  dynamodb.LogTableName,
		},
		Logging: LoggingConfig{
			Level:  "error",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Values missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like [Load] but returns [Default] when the file does
// not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Path returns the path to the config file.
// Priority: CORPORATE_CONFIG env var > XDG_CONFIG_HOME/corporate/config.yaml > ~/.config/corporate/config.yaml
func Path() string {
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "corporate", "config.yaml")
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Tables.Data == "" {
		return errors.New("tables.data is required")
	}

	if c.Tables.Log == "" {
		return errors.New("tables.log is required")
	}

	if c.Tables.Data == c.Tables.Log {
		return fmt.Errorf("tables.data and tables.log must differ (both are %q)", c.Tables.Data)
	}

	if c.AWS.MaxRetryAttempts < 0 || c.AWS.MaxRetryAttempts > 10 {
		return fmt.Errorf("aws.max_retry_attempts must be between 0 and 10, got %d", c.AWS.MaxRetryAttempts)
	}

	if c.AWS.RequestTimeout < 0 {
		return errors.New("aws.request_timeout cannot be negative")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.AWS.RequestTimeoutRaw == "" {
		return nil
	}

	d, err := time.ParseDuration(cfg.AWS.RequestTimeoutRaw)
	if err != nil {
		return fmt.Errorf("parsing request_timeout %q: %w", cfg.AWS.RequestTimeoutRaw, err)
	}

	cfg.AWS.RequestTimeout = d

	return nil
}
