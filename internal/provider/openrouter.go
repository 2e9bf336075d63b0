package provider

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lavudyaraja/nextgenai-sub000/internal/config"
)

// openRouterBaseURL is OpenRouter's OpenAI-compatible endpoint.
const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouter is the OpenRouter adapter. OpenRouter speaks the OpenAI wire
// protocol, so it reuses the go-openai client with a custom base URL; only
// the error signatures differ (402 insufficient credits instead of 429
// insufficient_quota).
type OpenRouter struct {
	client *openai.Client
	model  string
}

// NewOpenRouter creates an OpenRouter adapter.
func NewOpenRouter(apiKey, model string) *OpenRouter {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = openRouterBaseURL
	return &OpenRouter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenRouter) Name() string { return config.ProviderOpenRouter }

// GenerateResponse produces a completion for the message history.
func (p *OpenRouter) GenerateResponse(ctx context.Context, history []Message) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: toOpenAIMessages(history),
	})
	if err != nil {
		return "", &Error{Provider: p.Name(), Kind: classifyOpenAIErr(err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Provider: p.Name(), Kind: KindProviderError, Err: errors.New("empty completion")}
	}
	return resp.Choices[0].Message.Content, nil
}
