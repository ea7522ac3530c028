// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; the LLM API key goes to the OS
// keychain and database passwords are never persisted.
//
// Precedence, lowest first: built-in defaults, config.json, .env, process
// environment (SQLCHAT_* variables).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"sqlchat/cli/internal/xdg"
)

// LookupFunc resolves an environment variable; os.LookupEnv in production.
type LookupFunc func(string) (string, bool)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel string      `json:"log_level"`
	LLM      LLMConfig   `json:"llm"`
	DB       DBConfig    `json:"db"`
	Agent    AgentConfig `json:"agent"`
}

// LLMConfig selects the hosted model.
type LLMConfig struct {
	BaseURL     string   `json:"base_url"`
	Model       string   `json:"model"`
	Streaming   bool     `json:"streaming"`
	Temperature float64  `json:"temperature"`
	Timeout     Duration `json:"timeout"`
}

// DBConfig holds database connection settings.
type DBConfig struct {
	// LocalPath is the SQLite file, relative to BaseDir unless absolute.
	LocalPath string `json:"local_path"`
	// BaseDir anchors LocalPath; empty means the working directory.
	BaseDir string `json:"base_dir"`
	// Driver is the default remote driver: mysql or postgres.
	Driver   string   `json:"driver"`
	CacheTTL Duration `json:"cache_ttl"`
}

// AgentConfig tunes the SQL agent or points at a remote one.
type AgentConfig struct {
	MaxIterations int    `json:"max_iterations"`
	AllowWrites   bool   `json:"allow_writes"`
	RemoteAddr    string `json:"remote_addr"`
}

// Duration is a time.Duration that reads and writes as "2h", "30s" in JSON.
type Duration struct{ time.Duration }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		LLM: LLMConfig{
			BaseURL:   "https://api.groq.com/openai/v1",
			Model:     "llama3-8b-8192",
			Streaming: true,
			Timeout:   Duration{60 * time.Second},
		},
		DB: DBConfig{
			LocalPath: "student.db",
			Driver:    "mysql",
			CacheTTL:  Duration{2 * time.Hour},
		},
		Agent: AgentConfig{
			MaxIterations: 15,
		},
	}
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; a missing file yields defaults. A .env file in
// the working directory is loaded into the process environment first.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	p, err := path()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(p, os.LookupEnv)
}

// LoadFrom reads the config file at p and applies environment overrides.
func LoadFrom(p string, lookup LookupFunc) (Config, error) {
	c := Defaults()
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return c, err
	default:
		if err := json.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", p, err)
		}
	}
	if lookup == nil {
		return c, nil
	}
	if err := applyEnv(&c, lookup); err != nil {
		return c, err
	}
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

func applyEnv(c *Config, lookup LookupFunc) error {
	applyString(lookup, "SQLCHAT_LOG_LEVEL", &c.LogLevel)
	applyString(lookup, "SQLCHAT_LLM_BASE_URL", &c.LLM.BaseURL)
	applyString(lookup, "SQLCHAT_LLM_MODEL", &c.LLM.Model)
	applyString(lookup, "SQLCHAT_LOCAL_DB", &c.DB.LocalPath)
	applyString(lookup, "SQLCHAT_BASE_DIR", &c.DB.BaseDir)
	applyString(lookup, "SQLCHAT_DB_DRIVER", &c.DB.Driver)
	applyString(lookup, "SQLCHAT_AGENT_ADDR", &c.Agent.RemoteAddr)
	if err := applyBool(lookup, "SQLCHAT_LLM_STREAMING", &c.LLM.Streaming); err != nil {
		return err
	}
	if err := applyBool(lookup, "SQLCHAT_ALLOW_WRITES", &c.Agent.AllowWrites); err != nil {
		return err
	}
	if err := applyInt(lookup, "SQLCHAT_MAX_ITERATIONS", &c.Agent.MaxIterations); err != nil {
		return err
	}
	if err := applyDuration(lookup, "SQLCHAT_CACHE_TTL", &c.DB.CacheTTL.Duration); err != nil {
		return err
	}
	return applyDuration(lookup, "SQLCHAT_LLM_TIMEOUT", &c.LLM.Timeout.Duration)
}

func applyString(lookup LookupFunc, key string, target *string) {
	if raw, ok := lookup(key); ok && strings.TrimSpace(raw) != "" {
		*target = strings.TrimSpace(raw)
	}
}

func applyBool(lookup LookupFunc, key string, target *bool) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = v
	return nil
}

func applyInt(lookup LookupFunc, key string, target *int) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = v
	return nil
}

func applyDuration(lookup LookupFunc, key string, target *time.Duration) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = v
	return nil
}
