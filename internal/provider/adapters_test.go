package provider

import (
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

func TestClassifyOpenAIErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "insufficient quota code",
			err:  &openai.APIError{HTTPStatusCode: 429, Code: "insufficient_quota"},
			want: KindQuotaExceeded,
		},
		{
			name: "rate limited",
			err:  &openai.APIError{HTTPStatusCode: 429, Code: "rate_limit_exceeded"},
			want: KindQuotaExceeded,
		},
		{
			name: "bad key",
			err:  &openai.APIError{HTTPStatusCode: 401, Code: "invalid_api_key"},
			want: KindUnauthenticated,
		},
		{
			name: "server error",
			err:  &openai.APIError{HTTPStatusCode: 500},
			want: KindProviderError,
		},
		{
			name: "gateway timeout",
			err:  &openai.APIError{HTTPStatusCode: 504},
			want: KindTimeout,
		},
		{
			name: "non-API error falls back to text",
			err:  errors.New("You exceeded your current quota"),
			want: KindQuotaExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := classifyOpenAIErr(tt.err); got != tt.want {
				t.Errorf("classifyOpenAIErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyGeminiErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "resource exhausted",
			err:  genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"},
			want: KindQuotaExceeded,
		},
		{
			name: "permission denied",
			err:  genai.APIError{Code: 403, Status: "PERMISSION_DENIED"},
			want: KindUnauthenticated,
		},
		{
			name: "internal",
			err:  genai.APIError{Code: 500, Status: "INTERNAL"},
			want: KindProviderError,
		},
		{
			name: "plain error",
			err:  errors.New("connection reset"),
			want: KindProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := classifyGeminiErr(tt.err); got != tt.want {
				t.Errorf("classifyGeminiErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyClaudeErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "rate limited",
			err:  &anthropic.Error{StatusCode: 429},
			want: KindQuotaExceeded,
		},
		{
			name: "bad key",
			err:  &anthropic.Error{StatusCode: 401},
			want: KindUnauthenticated,
		},
		{
			name: "overloaded",
			err:  &anthropic.Error{StatusCode: 529},
			want: KindProviderError,
		},
		{
			name: "plain error",
			err:  errors.New("request timeout"),
			want: KindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := classifyClaudeErr(tt.err); got != tt.want {
				t.Errorf("classifyClaudeErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
