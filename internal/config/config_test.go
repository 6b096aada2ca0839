package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 40, cfg.LLM.TopK)
	assert.Equal(t, 2048, cfg.LLM.MaxOutputTokens)
	assert.Equal(t, 1000, cfg.Session.MaxPerspectiveLength)
	assert.Equal(t, 24*time.Hour, cfg.Retention())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090

[database]
driver = "sqlite"

[sqlite]
path = "/tmp/from-file.db"

[llm]
provider = "openai"
model = "gpt-4o-mini"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LLM_MODEL", "qwen3-max")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("LLM_TEMPERATURE", "0.2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/from-file.db", cfg.SQLite.Path)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "qwen3-max", cfg.LLM.Model)
	assert.False(t, cfg.Redis.Enabled)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
}

func TestLoadGeminiKeyFallback(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("GOOGLE_AI_API_KEY", "google-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "google-key", cfg.LLM.APIKey)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("LLM_PROVIDER", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("APP_PORT", "eighty")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
}
