package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analyzer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 0.002, cfg.LLM.CostPerCall)
	assert.Equal(t, int64(10*1024*1024), cfg.Limits.MaxFileBytes)
	assert.Equal(t, 500, cfg.Limits.MaxTransactions)
	assert.False(t, cfg.Parser.Strict)
	assert.Equal(t, 5, cfg.Jobs.Workers)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
llm:
  provider: anthropic
  timeout: 15s
parser:
  strict: true
limits:
  max_transactions: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.LLM.Model)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.Parser.Strict)
	assert.Equal(t, 50, cfg.Limits.MaxTransactions)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "limits:\n  max_transactions: 50\n")
	t.Setenv("ANALYZER_LIMITS_MAX_TRANSACTIONS", "75")
	t.Setenv("ANALYZER_STORAGE_BUCKET", "statements-inbox")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.Limits.MaxTransactions)
	assert.Equal(t, "statements-inbox", cfg.Storage.Bucket)
}

func TestLoad_ZeroCostPerCall(t *testing.T) {
	path := writeConfig(t, "llm:\n  cost_per_call: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.LLM.CostPerCall)

	t.Setenv("ANALYZER_LLM_COST_PER_CALL", "0")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.LLM.CostPerCall)
}

func TestLoad_ProviderKeyFallback(t *testing.T) {
	t.Setenv("ANALYZER_LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestLoad_InvalidProvider(t *testing.T) {
	path := writeConfig(t, "llm:\n  provider: oracle\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ANALYZER_LLM_API_KEY", "llm.api_key"},
		{"ANALYZER_PARSER_STRICT", "parser.strict"},
		{"ANALYZER_LIMITS_MAX_FILE_BYTES", "limits.max_file_bytes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, envKey(tt.in), tt.in)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Limits.MaxTransactions = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Log.Level = "chatty"
	assert.Error(t, cfg.Validate())
}
