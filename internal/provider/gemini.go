package provider

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/lavudyaraja/nextgenai-sub000/internal/config"
)

// Gemini is the Gemini adapter built on the Google GenAI SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini adapter. The SDK client performs no network
// calls at construction time.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &Error{Provider: config.ProviderGemini, Kind: KindProviderError, Err: err}
	}
	return &Gemini{client: client, model: model}, nil
}

func (p *Gemini) Name() string { return config.ProviderGemini }

// GenerateResponse produces a completion for the message history.
func (p *Gemini) GenerateResponse(ctx context.Context, history []Message) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", &Error{Provider: p.Name(), Kind: classifyGeminiErr(err), Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &Error{Provider: p.Name(), Kind: KindProviderError, Err: errors.New("empty completion")}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// classifyGeminiErr maps GenAI SDK errors onto the fixed taxonomy. The
// Gemini API reports quota exhaustion as RESOURCE_EXHAUSTED with HTTP 429.
func classifyGeminiErr(err error) Kind {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == "RESOURCE_EXHAUSTED" {
			return KindQuotaExceeded
		}
		if kind, ok := classifyStatus(apiErr.Code); ok {
			return kind
		}
	}
	return classifyMessage(err)
}
