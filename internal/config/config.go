package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all nlfind configuration.
type Config struct {
	// Search engine limits and traversal policy
	Search SearchConfig `yaml:"search"`

	// Optional external classifier
	Classifier ClassifierConfig `yaml:"classifier"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Watch mode
	Watch WatchConfig `yaml:"watch"`
}

// WatchConfig configures `nlfind watch`.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Search:     DefaultSearchConfig(),
		Classifier: DefaultClassifierConfig(),
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// DefaultConfigPath returns ~/.config/nlfind/config.yaml (or the platform equivalent).
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".nlfind", "config.yaml")
	}
	return filepath.Join(dir, "nlfind", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// A .env file next to the config (or in the working directory) is loaded into
// the environment first; variables already set are left alone.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env")

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		// Malformed .env files are ignored; the YAML config still applies.
		_ = godotenv.Load(p)
	}
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Classifier API key from environment (later entries win)
	if key := os.Getenv("ZAI_API_KEY"); key != "" {
		c.Classifier.APIKey = key
		if c.Classifier.Provider == "" {
			c.Classifier.Provider = ProviderZAI
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Classifier.APIKey = key
		c.Classifier.Provider = ProviderOpenAI
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Classifier.APIKey = key
		c.Classifier.Provider = ProviderGemini
	}
	if p := os.Getenv("NLFIND_LLM_PROVIDER"); p != "" {
		c.Classifier.Provider = p
	}

	if root := os.Getenv("NLFIND_ROOT"); root != "" {
		c.Search.DefaultRoot = root
	}
	if level := os.Getenv("NLFIND_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("watch: invalid debounce %q", c.Watch.Debounce)
	}
	return nil
}

// GetWatchDebounce returns the watch debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}
