package provider

import (
	"context"
	"fmt"

	"github.com/lavudyaraja/nextgenai-sub000/internal/config"
)

// FromConfig builds an adapter for every provider that has an API key
// configured. Providers without a key are simply absent from the returned
// map; the router reports them as unconfigured if a request names one.
func FromConfig(ctx context.Context, cfg *config.Config) (map[string]Provider, error) {
	adapters := make(map[string]Provider)

	for _, name := range config.KnownProviders() {
		key := cfg.APIKey(name)
		if key == "" {
			continue
		}
		model := cfg.Model(name)

		switch name {
		case config.ProviderGPT:
			adapters[name] = NewOpenAI(key, model)
		case config.ProviderGemini:
			g, err := NewGemini(ctx, key, model)
			if err != nil {
				return nil, fmt.Errorf("create gemini adapter: %w", err)
			}
			adapters[name] = g
		case config.ProviderClaude:
			adapters[name] = NewClaude(key, model)
		case config.ProviderOpenRouter:
			adapters[name] = NewOpenRouter(key, model)
		}
	}

	return adapters, nil
}
