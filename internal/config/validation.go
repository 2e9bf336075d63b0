package config

import (
	"fmt"
	"log/slog"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
//
// Note: provider API keys are deliberately NOT required here. An unconfigured
// provider is legal at startup; the failover chain skips it, and choosing it
// explicitly surfaces a configuration error on that request only.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Failover configuration
	known := KnownProviders()
	if !slices.Contains(known, c.PrimaryProvider) {
		return fmt.Errorf("%w: primary_provider %q, must be one of %v",
			ErrInvalidProvider, c.PrimaryProvider, known)
	}

	if len(c.FallbackOrder) == 0 {
		return fmt.Errorf("%w: fallback_order cannot be empty", ErrInvalidFallbackOrder)
	}
	seen := make(map[string]bool, len(c.FallbackOrder))
	for _, p := range c.FallbackOrder {
		if !slices.Contains(known, p) {
			return fmt.Errorf("%w: unknown provider %q in fallback_order", ErrInvalidFallbackOrder, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: duplicate provider %q in fallback_order", ErrInvalidFallbackOrder, p)
		}
		seen[p] = true
	}

	// 2. Model configuration
	for _, p := range known {
		if c.Model(p) == "" {
			return fmt.Errorf("%w: model for provider %q cannot be empty", ErrInvalidModelName, p)
		}
	}

	// 3. History bounds
	if c.MaxHistoryMessages <= 0 || c.MaxHistoryMessages > MaxAllowedHistoryMessages {
		return fmt.Errorf("max_history_messages must be between 1 and %d, got %d",
			MaxAllowedHistoryMessages, c.MaxHistoryMessages)
	}

	// 4. Rate limiting
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("%w: rate_limit_rps must be positive, got %v", ErrInvalidRateLimit, c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("%w: rate_limit_burst must be at least 1, got %d", ErrInvalidRateLimit, c.RateLimitBurst)
	}

	// 5. PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "nextgen_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable)
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
