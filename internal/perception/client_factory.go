package perception

import (
	"context"
	"fmt"

	"nlfind/internal/config"
)

// Default endpoints for OpenAI-compatible providers.
const (
	openAIBaseURL = "https://api.openai.com/v1"
	zaiBaseURL    = "https://api.z.ai/api/paas/v4"
	zaiModel      = "glm-4.5-flash"
)

// NewClientFromConfig builds the configured classifier client. It returns
// (nil, nil) when no external classifier is enabled.
func NewClientFromConfig(ctx context.Context, cfg config.ClassifierConfig) (LLMClient, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		hc := DefaultHTTPConfig(cfg.APIKey)
		hc.Timeout = cfg.GetTimeout()
		if cfg.BaseURL != "" {
			hc.BaseURL = cfg.BaseURL
		}
		if cfg.Model != "" {
			hc.Model = cfg.Model
		}
		return NewHTTPClient(hc), nil

	case config.ProviderZAI:
		hc := DefaultHTTPConfig(cfg.APIKey)
		hc.BaseURL = zaiBaseURL
		hc.Model = zaiModel
		hc.Timeout = cfg.GetTimeout()
		if cfg.BaseURL != "" {
			hc.BaseURL = cfg.BaseURL
		}
		if cfg.Model != "" {
			hc.Model = cfg.Model
		}
		return NewHTTPClient(hc), nil

	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)

	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", cfg.Provider)
	}
}

// RetryPolicyFromConfig converts the classifier retry settings.
func RetryPolicyFromConfig(cfg config.ClassifierConfig) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.GetBackoffBase(),
		Multiplier:  cfg.BackoffMultiplier,
		MaxDelay:    cfg.GetBackoffMax(),
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	return p
}

// NewTransducerFromConfig wires a Transducer from config. A client that
// cannot be built is reported so callers can log it; the returned
// Transducer still works on local rules.
func NewTransducerFromConfig(ctx context.Context, cfg config.ClassifierConfig, opts ...TransducerOption) (*Transducer, error) {
	client, err := NewClientFromConfig(ctx, cfg)
	base := []TransducerOption{
		WithRetryPolicy(RetryPolicyFromConfig(cfg)),
		WithTimeout(cfg.GetTimeout()),
	}
	if err != nil {
		return NewTransducer(nil, append(base, opts...)...), err
	}
	return NewTransducer(client, append(base, opts...)...), nil
}
