// Package config provides configuration loading for pixharvest.
// Supports YAML files, environment variables, and flag overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a pixharvest run.
type Config struct {
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Drive         DriveConfig         `yaml:"drive"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ExtractionConfig holds extraction settings.
type ExtractionConfig struct {
	OutputDir string `yaml:"output_dir"`
	MinSize   int    `yaml:"min_size"` // minimum width AND height in pixels
	Limit     int    `yaml:"limit"`    // 0 = unlimited
}

// DriveConfig holds Google Drive settings.
type DriveConfig struct {
	FolderID        string `yaml:"folder_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from an optional YAML file and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			OutputDir: "./extracted_images",
			MinSize:   100,
			Limit:     0,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Extraction.MinSize < 0 {
		return fmt.Errorf("min_size must not be negative, got %d", c.Extraction.MinSize)
	}

	if c.Extraction.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Extraction.Limit)
	}

	if c.Extraction.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PIXHARVEST_OUTPUT_DIR"); v != "" {
		cfg.Extraction.OutputDir = v
	}

	if v := os.Getenv("PIXHARVEST_MIN_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Extraction.MinSize = n
		}
	}

	if v := os.Getenv("PIXHARVEST_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Extraction.Limit = n
		}
	}

	if v := os.Getenv("DRIVE_FOLDER_ID"); v != "" {
		cfg.Drive.FolderID = v
	}

	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		cfg.Drive.CredentialsFile = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
