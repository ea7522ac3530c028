package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"), mapLookup(nil))
	require.NoError(t, err)

	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 2*time.Hour, cfg.DB.CacheTTL.Duration)
	assert.Equal(t, "student.db", cfg.DB.LocalPath)
	assert.Equal(t, 15, cfg.Agent.MaxIterations)
}

func TestLoadFromFileThenEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	body := `{"log_level":"debug","db":{"driver":"postgres","cache_ttl":"30m"},"llm":{"model":"from-file"}}`
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))

	cfg, err := LoadFrom(p, mapLookup(map[string]string{
		"SQLCHAT_LLM_MODEL":      "from-env",
		"SQLCHAT_ALLOW_WRITES":   "true",
		"SQLCHAT_MAX_ITERATIONS": "4",
	}))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 30*time.Minute, cfg.DB.CacheTTL.Duration)
	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.True(t, cfg.Agent.AllowWrites)
	assert.Equal(t, 4, cfg.Agent.MaxIterations)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL, "unset keys keep defaults")
}

func TestLoadFromRejectsBadEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	for key, value := range map[string]string{
		"SQLCHAT_CACHE_TTL":      "two hours",
		"SQLCHAT_MAX_ITERATIONS": "many",
		"SQLCHAT_LLM_STREAMING":  "maybe",
	} {
		_, err := LoadFrom(p, mapLookup(map[string]string{key: value}))
		assert.Error(t, err, key)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Defaults()
	cfg.DB.Driver = "postgres"
	cfg.DB.CacheTTL = Duration{45 * time.Minute}
	require.NoError(t, Save(cfg))

	p, err := path()
	require.NoError(t, err)
	got, err := LoadFrom(p, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
