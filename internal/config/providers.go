package config

// AI provider identifiers. These are the caller-facing names accepted in the
// chat request's provider preference and used throughout the failover chain.
const (
	ProviderGPT        = "gpt"
	ProviderGemini     = "gemini"
	ProviderClaude     = "claude"
	ProviderOpenRouter = "openrouter"
)

// KnownProviders lists every supported provider identifier.
func KnownProviders() []string {
	return []string{ProviderGPT, ProviderGemini, ProviderClaude, ProviderOpenRouter}
}

// DefaultFallbackOrder returns the static fallback priority order used when
// the primary provider fails with a quota-shaped error. Operator-set via
// fallback_order in the config file; not caller-configurable.
func DefaultFallbackOrder() []string {
	return []string{ProviderGPT, ProviderGemini, ProviderClaude, ProviderOpenRouter}
}

// APIKey returns the configured credential for the named provider.
// An empty string means the provider is not configured and must be skipped
// by the failover chain.
func (c *Config) APIKey(provider string) string {
	switch provider {
	case ProviderGPT:
		return c.OpenAIAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderClaude:
		return c.AnthropicAPIKey
	case ProviderOpenRouter:
		return c.OpenRouterAPIKey
	default:
		return ""
	}
}

// Model returns the configured model name for the named provider.
func (c *Config) Model(provider string) string {
	switch provider {
	case ProviderGPT:
		return c.OpenAIModel
	case ProviderGemini:
		return c.GeminiModel
	case ProviderClaude:
		return c.ClaudeModel
	case ProviderOpenRouter:
		return c.OpenRouterModel
	default:
		return ""
	}
}
