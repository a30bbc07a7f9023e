package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ZAI_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "NLFIND_LLM_PROVIDER", "NLFIND_ROOT", "NLFIND_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2, cfg.Search.RootMaxDepth)
	assert.Equal(t, 5, cfg.Search.MaxDepth)
	assert.Equal(t, 500, cfg.Search.ResultCap)
	assert.GreaterOrEqual(t, cfg.Search.StatWorkers, 4)
	assert.False(t, cfg.Search.FollowSymlinks)
	assert.Contains(t, cfg.Search.SkipDirs, ".git")
	assert.False(t, cfg.Classifier.Enabled())
	assert.Equal(t, 500*time.Millisecond, cfg.GetWatchDebounce())
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Search.DefaultRoot = "/srv/data"
	cfg.Search.ResultCap = 42
	cfg.Classifier.Provider = ProviderGemini
	cfg.Classifier.APIKey = "g-key"
	cfg.Logging.Level = "debug"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", loaded.Search.DefaultRoot)
	assert.Equal(t, 42, loaded.Search.ResultCap)
	assert.Equal(t, ProviderGemini, loaded.Classifier.Provider)
	assert.Equal(t, "g-key", loaded.Classifier.APIKey)
	assert.Equal(t, "debug", loaded.Logging.Level)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Search.MaxDepth, cfg.Search.MaxDepth)
}

func TestLoad_PartialYAMLKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  max_depth: 7\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.MaxDepth)
	assert.Equal(t, 2, cfg.Search.RootMaxDepth)
	assert.Equal(t, 500, cfg.Search.ResultCap)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unterminated"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero cap", func(c *Config) { c.Search.ResultCap = 0 }, "result_cap"},
		{"negative depth", func(c *Config) { c.Search.MaxDepth = -1 }, "max_depth"},
		{"no workers", func(c *Config) { c.Search.StatWorkers = 0 }, "stat_workers"},
		{"bad provider", func(c *Config) { c.Classifier.Provider = "carrier-pigeon" }, "invalid provider"},
		{"bad timeout", func(c *Config) { c.Classifier.Timeout = "soon" }, "invalid timeout"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "invalid level"},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "x" }, "debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClassifierDurations(t *testing.T) {
	c := ClassifierConfig{Timeout: "3s", BackoffBase: "", BackoffMax: "-1s"}
	assert.Equal(t, 3*time.Second, c.GetTimeout())
	assert.Equal(t, 250*time.Millisecond, c.GetBackoffBase())
	assert.Equal(t, 2*time.Second, c.GetBackoffMax())
}

func TestResolveDefaultRoot(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	root, err := SearchConfig{}.ResolveDefaultRoot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(home), root)

	root, err = SearchConfig{DefaultRoot: "~/Documents"}.ResolveDefaultRoot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Documents"), root)

	dir := t.TempDir()
	root, err = SearchConfig{DefaultRoot: dir}.ResolveDefaultRoot()
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestLoggingCategories(t *testing.T) {
	c := LoggingConfig{Categories: map[string]bool{"world": false}}
	assert.False(t, c.IsCategoryEnabled("world"))
	assert.True(t, c.IsCategoryEnabled("perception"))

	var empty LoggingConfig
	assert.True(t, empty.IsCategoryEnabled("world"))
}
