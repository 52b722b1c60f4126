package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "ANALYZER_"
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load reads configuration with the following precedence (highest first):
//
//  1. ANALYZER_* environment variables (ANALYZER_LLM_API_KEY -> llm.api_key)
//  2. the YAML file at path, when path is non-empty and the file exists
//  3. built-in defaults
//
// A .env file in the working directory is loaded into the process
// environment first, without overriding variables that are already set.
// When llm.api_key is still empty, the provider's conventional variable
// (GEMINI_API_KEY, GOOGLE_API_KEY or ANTHROPIC_API_KEY) is used.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Load: reading .env: %w", err)
	}

	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("Load: parsing %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("Load: reading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("Load: unmarshal: %w", err)
	}

	if !k.Exists("llm.cost_per_call") {
		cfg.LLM.CostPerCall = DefaultCostPerCall
	}
	applyDefaults(&cfg)
	applyProviderKey(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return &cfg, nil
}

// envKey maps ANALYZER_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Load: stat %s: %w", path, err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("Load: config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Load: reading %s: %w", path, err)
	}
	return content, nil
}

func applyProviderKey(cfg *Config) {
	if cfg.LLM.APIKey != "" {
		return
	}
	var candidates []string
	switch cfg.LLM.Provider {
	case ProviderAnthropic:
		candidates = []string{"ANTHROPIC_API_KEY"}
	case ProviderGemini:
		candidates = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, name := range candidates {
		if v := os.Getenv(name); v != "" {
			cfg.LLM.APIKey = v
			return
		}
	}
}
