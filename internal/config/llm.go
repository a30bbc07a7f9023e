package config

import (
	"fmt"
	"time"
)

// Classifier providers.
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderZAI    = "zai"
	ProviderGemini = "gemini"
)

// ValidProviders lists all supported classifier providers. The empty string
// is accepted and means "no external classifier".
var ValidProviders = []string{ProviderNone, ProviderOpenAI, ProviderZAI, ProviderGemini}

// ClassifierConfig configures the optional LLM intent classifier.
type ClassifierConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`

	// Timeout bounds one classifier attempt.
	Timeout string `yaml:"timeout"`

	// Retry policy around the classifier call.
	MaxAttempts       int     `yaml:"max_attempts"`
	BackoffBase       string  `yaml:"backoff_base"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	BackoffMax        string  `yaml:"backoff_max"`
}

// DefaultClassifierConfig returns defaults with no provider selected.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Timeout:           "8s",
		MaxAttempts:       3,
		BackoffBase:       "250ms",
		BackoffMultiplier: 2,
		BackoffMax:        "2s",
	}
}

// Enabled reports whether an external classifier should be consulted.
func (c ClassifierConfig) Enabled() bool {
	return c.Provider != "" && c.Provider != ProviderNone && c.APIKey != ""
}

// Validate checks provider name and durations.
func (c ClassifierConfig) Validate() error {
	if c.Provider != "" {
		valid := false
		for _, p := range ValidProviders {
			if c.Provider == p {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid provider: %s (valid: %v)", c.Provider, ValidProviders)
		}
	}
	for name, v := range map[string]string{"timeout": c.Timeout, "backoff_base": c.BackoffBase, "backoff_max": c.BackoffMax} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q", name, v)
		}
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be >= 0")
	}
	return nil
}

// GetTimeout returns the per-attempt timeout as a duration.
func (c ClassifierConfig) GetTimeout() time.Duration {
	return parseDurationOr(c.Timeout, 8*time.Second)
}

// GetBackoffBase returns the base retry delay.
func (c ClassifierConfig) GetBackoffBase() time.Duration {
	return parseDurationOr(c.BackoffBase, 250*time.Millisecond)
}

// GetBackoffMax returns the retry delay cap.
func (c ClassifierConfig) GetBackoffMax() time.Duration {
	return parseDurationOr(c.BackoffMax, 2*time.Second)
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
