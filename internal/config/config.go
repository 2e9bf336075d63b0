// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.nextgenai/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Providers: API keys and model names for the AI backends (see providers.go)
//   - Failover: primary provider and the fixed fallback priority order
//   - Storage: PostgreSQL connection (see storage.go)
//   - Server: HTTP listen address
//
// Security: API keys and the database password are never logged; MarshalJSON
// masks them explicitly.
// Error Handling: sentinel errors checked with errors.Is(), wrapped with
// fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates a provider name is not one of the known backends.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidFallbackOrder indicates the fallback priority list is malformed.
	ErrInvalidFallbackOrder = errors.New("invalid fallback order")

	// ErrInvalidModelName indicates a provider model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidRateLimit indicates the provider rate limit settings are out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")
)

const (
	// DefaultMaxHistoryMessages is the default number of messages loaded as
	// provider context per turn.
	DefaultMaxHistoryMessages int32 = 100

	// MaxAllowedHistoryMessages is the absolute maximum to prevent OOM.
	MaxAllowedHistoryMessages int32 = 10000
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// Provider API keys (environment only, see bindEnvVariables)
	OpenAIAPIKey     string `mapstructure:"openai_api_key" json:"openai_api_key"`         // SENSITIVE: masked in MarshalJSON
	GeminiAPIKey     string `mapstructure:"gemini_api_key" json:"gemini_api_key"`         // SENSITIVE: masked in MarshalJSON
	AnthropicAPIKey  string `mapstructure:"anthropic_api_key" json:"anthropic_api_key"`   // SENSITIVE: masked in MarshalJSON
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key" json:"openrouter_api_key"` // SENSITIVE: masked in MarshalJSON

	// Provider model names
	OpenAIModel     string `mapstructure:"openai_model" json:"openai_model"`
	GeminiModel     string `mapstructure:"gemini_model" json:"gemini_model"`
	ClaudeModel     string `mapstructure:"claude_model" json:"claude_model"`
	OpenRouterModel string `mapstructure:"openrouter_model" json:"openrouter_model"`

	// Failover configuration. PrimaryProvider is the default when the caller
	// declares no preference; FallbackOrder is the fixed, operator-set
	// priority order tried when the primary fails with a quota-shaped error.
	PrimaryProvider string   `mapstructure:"primary_provider" json:"primary_provider"`
	FallbackOrder   []string `mapstructure:"fallback_order" json:"fallback_order"`

	// Conversation history configuration
	MaxHistoryMessages int32 `mapstructure:"max_history_messages" json:"max_history_messages"`

	// Provider rate limiting (proactive, applied per adapter attempt)
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Server configuration
	HTTPAddr string `mapstructure:"http_addr" json:"http_addr"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".nextgenai")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Parse DATABASE_URL if set (highest priority for PostgreSQL config)
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Provider model defaults
	viper.SetDefault("openai_model", "gpt-4o")
	viper.SetDefault("gemini_model", "gemini-2.5-flash")
	viper.SetDefault("claude_model", "claude-sonnet-4-20250514")
	viper.SetDefault("openrouter_model", "deepseek/deepseek-chat-v3-0324:free")

	// Failover defaults
	viper.SetDefault("primary_provider", ProviderGPT)
	viper.SetDefault("fallback_order", DefaultFallbackOrder())

	// History defaults
	viper.SetDefault("max_history_messages", DefaultMaxHistoryMessages)

	// Rate limit defaults: 10 requests/sec sustained, burst of 30
	viper.SetDefault("rate_limit_rps", 10.0)
	viper.SetDefault("rate_limit_burst", 30)

	// PostgreSQL defaults for local development
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "nextgen")
	viper.SetDefault("postgres_password", "nextgen_dev_password")
	viper.SetDefault("postgres_db_name", "nextgen")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	viper.SetDefault("http_addr", "127.0.0.1:8080")

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly.
// Provider credentials come exclusively from the environment, never from the
// config file, so they cannot end up committed to disk by accident.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Provider credentials
	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("anthropic_api_key", "ANTHROPIC_API_KEY")
	mustBind("openrouter_api_key", "OPENROUTER_API_KEY")

	// Runtime overrides
	mustBind("primary_provider", "NEXTGEN_PRIMARY_PROVIDER")
	mustBind("http_addr", "NEXTGEN_HTTP_ADDR")
	mustBind("log_level", "NEXTGEN_LOG_LEVEL")
	mustBind("log_json", "NEXTGEN_LOG_JSON")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matching against real secret content.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked; longer ones keep the first
// and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.AnthropicAPIKey = maskSecret(a.AnthropicAPIKey)
	a.OpenRouterAPIKey = maskSecret(a.OpenRouterAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
