// Package provider defines the adapter contract for AI completion backends,
// the concrete adapters (GPT, Gemini, Claude, OpenRouter), and the
// quota-aware failover router that chooses between them.
//
// Every backend implements the Provider interface. The rest of the
// application works with these unified types and the fixed error taxonomy in
// errors.go; backend-native error shapes never leak past an adapter.
package provider

import "context"

// Message is one entry of the conversation history handed to an adapter.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Provider is the uniform contract every AI backend adapter satisfies.
type Provider interface {
	// Name returns the provider identifier ("gpt", "gemini", "claude",
	// "openrouter") used for routing, logging, and metrics labels.
	Name() string

	// GenerateResponse produces a completion for the ordered message
	// history. Failures are always *Error values carrying one of the fixed
	// kinds; callers never see backend-native error types.
	GenerateResponse(ctx context.Context, history []Message) (string, error)
}
