package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lavudyaraja/nextgenai-sub000/internal/config"
)

// claudeMaxTokens bounds the completion length requested from the API; the
// Messages endpoint requires an explicit value.
const claudeMaxTokens = 2048

// Claude is the Anthropic adapter.
type Claude struct {
	client anthropic.Client
	model  string
}

// NewClaude creates a Claude adapter.
func NewClaude(apiKey, model string) *Claude {
	return &Claude{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *Claude) Name() string { return config.ProviderClaude }

// GenerateResponse produces a completion for the message history.
func (p *Claude) GenerateResponse(ctx context.Context, history []Message) (string, error) {
	msgs := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		if m.Role == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: claudeMaxTokens,
		Messages:  msgs,
	})
	if err != nil {
		return "", &Error{Provider: p.Name(), Kind: classifyClaudeErr(err), Err: err}
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &Error{Provider: p.Name(), Kind: KindProviderError, Err: errors.New("empty completion")}
	}
	return sb.String(), nil
}

// classifyClaudeErr maps Anthropic SDK errors onto the fixed taxonomy.
func classifyClaudeErr(err error) Kind {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if kind, ok := classifyStatus(apiErr.StatusCode); ok {
			return kind
		}
	}
	return classifyMessage(err)
}
