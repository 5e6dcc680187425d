package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// HTTP Configuration:
// - PORT: HTTP listen port (default: 5000)
// - STATIC_DIR: Directory of frontend assets (default: static)
// - SERVE_UI: Serve the frontend alongside the API (default: true)
//
// Storage Configuration:
// - DB_PATH: SQLite database file (default: data/captions.db)
//
// Translation Configuration:
// - SOURCE_LANG: Caption source language (default: en)
// - TARGET_LANG: Translation target language (default: zh-TW)
// - PROGRESS_TTL: How long finished translation jobs stay pollable (default: 1h)
// - SWEEP_CRON: Cron expression for the job sweeper (default: @hourly)
//
// Acquisition Configuration:
// - BASE_DELAY: Seconds between caption download attempts (default: 1, cloud: 3)
// - FETCH_RETRIES: yt-dlp retry count per attempt (default: 3, cloud: 5)
//
// Logging Configuration:
// - LOG_LEVEL: debug, info, warn or error (default: info)
// - LOG_FILE: Optional log file path (default: stdout only)

type Config struct {
	// HTTP Configuration
	HTTP HTTPConfig `json:"http"`

	// Storage Configuration
	Storage StorageConfig `json:"storage"`

	// Translate Configuration
	Translate TranslateConfig `json:"translate"`

	// Acquisition Configuration
	Acquire AcquireConfig `json:"acquire"`

	// Logging Configuration
	Log LogConfig `json:"log"`

	// Cloud is true when a hosted platform is detected. Cloud hosts share
	// egress IPs with other tenants, so acquisition backs off harder there.
	Cloud bool `json:"cloud"`
}

// HTTPConfig holds the configuration for the HTTP server
type HTTPConfig struct {
	Port      int    `json:"port"`
	StaticDir string `json:"static_dir"`
	ServeUI   bool   `json:"serve_ui"`
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// StorageConfig holds the configuration for the SQLite store
type StorageConfig struct {
	DBPath string `json:"db_path"`
}

type TranslateConfig struct {
	SourceLanguage language.Tag  `json:"source_language"`
	TargetLanguage language.Tag  `json:"target_language"`
	ProgressTTL    time.Duration `json:"progress_ttl"`
	SweepCron      string        `json:"sweep_cron"`
}

// AcquireConfig holds the configuration for caption acquisition
type AcquireConfig struct {
	BaseDelay time.Duration `json:"base_delay"`
	Retries   int           `json:"retries"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	cloud := detectCloud()

	baseDelaySecs := 1
	retries := 3
	if cloud {
		baseDelaySecs = 3
		retries = 5
	}

	config := &Config{
		HTTP: HTTPConfig{
			Port:      getEnvInt("PORT", 5000),
			StaticDir: getEnvString("STATIC_DIR", "static"),
			ServeUI:   getEnvBool("SERVE_UI", true),
		},
		Storage: StorageConfig{
			DBPath: getEnvString("DB_PATH", "data/captions.db"),
		},
		Translate: TranslateConfig{
			ProgressTTL: getEnvDuration("PROGRESS_TTL", time.Hour),
			SweepCron:   getEnvString("SWEEP_CRON", "@hourly"),
		},
		Acquire: AcquireConfig{
			BaseDelay: time.Duration(getEnvInt("BASE_DELAY", baseDelaySecs)) * time.Second,
			Retries:   getEnvInt("FETCH_RETRIES", retries),
		},
		Log: LogConfig{
			Level: getEnvString("LOG_LEVEL", "info"),
			File:  getEnvString("LOG_FILE", ""),
		},
		Cloud: cloud,
	}

	source, err := language.Parse(getEnvString("SOURCE_LANG", "en"))
	if err != nil {
		return nil, fmt.Errorf("invalid SOURCE_LANG: %w", err)
	}
	target, err := language.Parse(getEnvString("TARGET_LANG", "zh-TW"))
	if err != nil {
		return nil, fmt.Errorf("invalid TARGET_LANG: %w", err)
	}
	config.Translate.SourceLanguage = source
	config.Translate.TargetLanguage = target

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.HTTP.Port)
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.Acquire.BaseDelay < 0 {
		return fmt.Errorf("BASE_DELAY must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %s", c.Log.Level)
	}
	return nil
}

// detectCloud reports whether the process appears to run on a hosted
// platform rather than a developer machine.
func detectCloud() bool {
	if os.Getenv("RENDER") != "" ||
		os.Getenv("RAILWAY_ENVIRONMENT") != "" ||
		os.Getenv("FLY_APP_NAME") != "" {
		return true
	}
	// PaaS containers set PORT but usually run without a real HOME.
	if os.Getenv("PORT") != "" && os.Getenv("HOME") == "" {
		return true
	}
	if host, err := os.Hostname(); err == nil {
		lower := strings.ToLower(host)
		if strings.Contains(lower, "render") || strings.Contains(lower, "railway") {
			return true
		}
	}
	return false
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration value from environment variables with default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
