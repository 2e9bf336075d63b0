package config

import (
	"errors"
	"strings"
	"testing"
)

// validConfig returns a config that passes Validate(). Tests mutate one
// field at a time to exercise individual checks.
func validConfig() *Config {
	return &Config{
		OpenAIModel:        "gpt-4o",
		GeminiModel:        "gemini-2.5-flash",
		ClaudeModel:        "claude-sonnet-4-20250514",
		OpenRouterModel:    "deepseek/deepseek-chat-v3-0324:free",
		PrimaryProvider:    ProviderGPT,
		FallbackOrder:      DefaultFallbackOrder(),
		MaxHistoryMessages: DefaultMaxHistoryMessages,
		RateLimitRPS:       10,
		RateLimitBurst:     30,
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresUser:       "nextgen",
		PostgresPassword:   "secret-password",
		PostgresDBName:     "nextgen",
		PostgresSSLMode:    "disable",
		HTTPAddr:           "127.0.0.1:8080",
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() on valid config: %v", err)
	}
}

func TestValidate_NilConfig(t *testing.T) {
	t.Parallel()
	var c *Config
	if err := c.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil config = %v, want ErrConfigNil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "unknown primary provider",
			mutate:  func(c *Config) { c.PrimaryProvider = "grok" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty fallback order",
			mutate:  func(c *Config) { c.FallbackOrder = nil },
			wantErr: ErrInvalidFallbackOrder,
		},
		{
			name:    "unknown provider in fallback order",
			mutate:  func(c *Config) { c.FallbackOrder = []string{ProviderGPT, "grok"} },
			wantErr: ErrInvalidFallbackOrder,
		},
		{
			name:    "duplicate provider in fallback order",
			mutate:  func(c *Config) { c.FallbackOrder = []string{ProviderGPT, ProviderGPT} },
			wantErr: ErrInvalidFallbackOrder,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.GeminiModel = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "zero rate limit rps",
			mutate:  func(c *Config) { c.RateLimitRPS = 0 },
			wantErr: ErrInvalidRateLimit,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "postgres port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty postgres db name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "deprecated ssl mode",
			mutate:  func(c *Config) { c.PostgresSSLMode = "prefer" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPIKey_UnknownProvider(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.OpenAIAPIKey = "sk-test"
	if got := cfg.APIKey("grok"); got != "" {
		t.Errorf("APIKey(unknown) = %q, want empty", got)
	}
	if got := cfg.APIKey(ProviderGPT); got != "sk-test" {
		t.Errorf("APIKey(gpt) = %q, want sk-test", got)
	}
}

func TestMarshalJSON_MasksSecrets(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.OpenAIAPIKey = "sk-verysecretapikey123"
	cfg.PostgresPassword = "hunter2hunter2"

	data, err := cfg.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	s := string(data)
	if strings.Contains(s, "sk-verysecretapikey123") {
		t.Error("MarshalJSON leaked OpenAI API key")
	}
	if strings.Contains(s, "hunter2hunter2") {
		t.Error("MarshalJSON leaked postgres password")
	}
}
