// Package config loads analyzer settings from a YAML file, the environment and .env.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Supported LLM providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// Config is the root configuration.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	LLM      LLMConfig      `koanf:"llm"`
	Parser   ParserConfig   `koanf:"parser"`
	Limits   LimitsConfig   `koanf:"limits"`
	Rules    RulesConfig    `koanf:"rules"`
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	BigQuery BigQueryConfig `koanf:"bigquery"`
	Jobs     JobsConfig     `koanf:"jobs"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // console | json
}

// LLMConfig selects and tunes the external classifier.
type LLMConfig struct {
	Provider    string        `koanf:"provider"`
	Model       string        `koanf:"model"`
	APIKey      string        `koanf:"api_key"`
	Timeout     time.Duration `koanf:"timeout"`
	CostPerCall float64       `koanf:"cost_per_call"`
}

type ParserConfig struct {
	// Strict drops lines with unparsable dates or amounts instead of
	// substituting today's date or a zero amount.
	Strict bool `koanf:"strict"`
}

type LimitsConfig struct {
	MaxFileBytes    int64 `koanf:"max_file_bytes"`
	MaxTransactions int   `koanf:"max_transactions"`
}

type RulesConfig struct {
	CategoriesFile string `koanf:"categories_file"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type StorageConfig struct {
	Bucket string `koanf:"bucket"`
}

type BigQueryConfig struct {
	Project string `koanf:"project"`
	Dataset string `koanf:"dataset"`
}

type JobsConfig struct {
	Workers    int `koanf:"workers"`
	Buffer     int `koanf:"buffer"`
	MaxRetries int `koanf:"max_retries"`
}

// DefaultCostPerCall is the estimated cost of one model call, in USD.
const DefaultCostPerCall = 0.002

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{LLM: LLMConfig{CostPerCall: DefaultCostPerCall}}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills fields whose zero value is never meaningful.
// llm.cost_per_call is not among them: zero is a valid cost, so Load only
// defaults it when the key is absent.
func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderGemini
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case ProviderAnthropic:
			cfg.LLM.Model = "claude-3-haiku-20240307"
		default:
			cfg.LLM.Model = "gemini-2.5-flash"
		}
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}

	if cfg.Limits.MaxFileBytes == 0 {
		cfg.Limits.MaxFileBytes = 10 * 1024 * 1024
	}
	if cfg.Limits.MaxTransactions == 0 {
		cfg.Limits.MaxTransactions = 500
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.BigQuery.Dataset == "" {
		cfg.BigQuery.Dataset = "statements"
	}

	if cfg.Jobs.Workers == 0 {
		cfg.Jobs.Workers = 5
	}
	if cfg.Jobs.Buffer == 0 {
		cfg.Jobs.Buffer = 100
	}
	if cfg.Jobs.MaxRetries == 0 {
		cfg.Jobs.MaxRetries = 3
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderAnthropic, ProviderNone:
	default:
		return fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider)
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("log.level: invalid level %q", c.Log.Level)
	}

	if c.LLM.CostPerCall < 0 {
		return fmt.Errorf("llm.cost_per_call must not be negative")
	}
	if c.Limits.MaxFileBytes <= 0 {
		return fmt.Errorf("limits.max_file_bytes must be positive")
	}
	if c.Limits.MaxTransactions <= 0 {
		return fmt.Errorf("limits.max_transactions must be positive")
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs.workers must be positive")
	}
	return nil
}
