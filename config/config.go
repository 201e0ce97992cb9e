// Package config loads runtime configuration from defaults, an optional
// YAML file, and TRIBUNAL_* environment variables, in that precedence order.
package config

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix of every recognized environment override.
const EnvPrefix = "TRIBUNAL"

// Config is the complete runtime configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm" env:"LLM"`
	Court     CourtConfig     `yaml:"court" env:"COURT"`
	Wikipedia WikipediaConfig `yaml:"wikipedia" env:"WIKIPEDIA"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	// Model is the model identifier, e.g. "gemini-2.5-flash".
	Model string `yaml:"model" env:"MODEL"`
	// APIKey authenticates against the provider. Usually set via
	// TRIBUNAL_LLM_API_KEY rather than the file.
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Timeout bounds a single completion request.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// MaxTokens caps the completion length. Zero leaves it to the provider.
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// CourtConfig configures the pipeline itself.
type CourtConfig struct {
	// BaseDir anchors the court_records output directory.
	BaseDir string `yaml:"base_dir" env:"BASE_DIR"`
}

// WikipediaConfig configures the research tool.
type WikipediaConfig struct {
	BaseURL    string        `yaml:"base_url" env:"BASE_URL"`
	MaxResults int           `yaml:"max_results" env:"MAX_RESULTS"`
	MaxChars   int           `yaml:"max_chars" env:"MAX_CHARS"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
	UserAgent  string        `yaml:"user_agent" env:"USER_AGENT"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is "json" or "console".
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:   "gemini-2.5-flash",
			Timeout: 60 * time.Second,
		},
		Court: CourtConfig{
			BaseDir: ".",
		},
		Wikipedia: WikipediaConfig{
			MaxResults: 3,
			MaxChars:   4000,
			Timeout:    15 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the invariants the pipeline depends on.
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// BuildLogger constructs a zap logger per the Log section.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	var zc zap.Config
	if c.Log.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
