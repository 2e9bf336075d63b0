package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lavudyaraja/nextgenai-sub000/internal/config"
)

// OpenAI is the GPT adapter.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a GPT adapter using the OpenAI API.
func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAI) Name() string { return config.ProviderGPT }

// GenerateResponse produces a completion for the message history.
func (p *OpenAI) GenerateResponse(ctx context.Context, history []Message) (string, error) {
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

// toOpenAIMessages maps the unified history onto the OpenAI wire format.
// Shared with the OpenRouter adapter, which speaks the same protocol.
func toOpenAIMessages(history []Message) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return msgs
}

// classifyOpenAIErr maps go-openai errors onto the fixed taxonomy.
func classifyOpenAIErr(err error) Kind {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		// insufficient_quota arrives with status 429 but is worth naming:
		// it is the unbilled-account signal, not a transient rate limit.
		if code, ok := apiErr.Code.(string); ok && strings.Contains(code, "insufficient_quota") {
			return KindQuotaExceeded
		}
		if kind, ok := classifyStatus(apiErr.HTTPStatusCode); ok {
			return kind
		}
		return classifyMessage(fmt.Errorf("%s", apiErr.Message))
	}
	return classifyMessage(err)
}
