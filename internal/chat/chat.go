// Package chat implements the orchestration core: one call appends a user
// turn, obtains an assistant turn from a provider, and persists both.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lavudyaraja/nextgenai-sub000/internal/conversation"
	"github.com/lavudyaraja/nextgenai-sub000/internal/log"
	"github.com/lavudyaraja/nextgenai-sub000/internal/provider"
	"github.com/lavudyaraja/nextgenai-sub000/internal/sanitize"
	"github.com/lavudyaraja/nextgenai-sub000/internal/telemetry"
)

// Configuration validation errors.
var (
	ErrGatewayNil = errors.New("chat: gateway is required")
	ErrRouterNil  = errors.New("chat: router is required")
)

// Request validation errors. These are caller mistakes and surface as hard
// errors to the transport layer.
var (
	ErrEmptyOwner = errors.New("chat: owner id is required")
	ErrEmptyText  = errors.New("chat: message text is required")
)

// Config holds the orchestrator's collaborators.
type Config struct {
	Gateway *conversation.Gateway
	Router  *provider.Router

	// MaxHistory bounds how many stored messages are replayed to the
	// provider per turn. Zero means the gateway's own listing cap.
	MaxHistory int32

	Logger log.Logger
}

func (c *Config) validate() error {
	if c.Gateway == nil {
		return ErrGatewayNil
	}
	if c.Router == nil {
		return ErrRouterNil
	}
	return nil
}

// Orchestrator handles one chat turn end to end. It is stateless between
// calls; concurrent calls, including calls against the same conversation,
// are safe.
type Orchestrator struct {
	gateway    *conversation.Gateway
	router     *provider.Router
	maxHistory int32
	logger     log.Logger
}

// New creates an Orchestrator from cfg.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Orchestrator{
		gateway:    cfg.Gateway,
		router:     cfg.Router,
		maxHistory: cfg.MaxHistory,
		logger:     logger.With("component", "chat"),
	}, nil
}

// Request is one inbound chat turn.
type Request struct {
	// OwnerID is the caller identity resolved by the transport layer.
	OwnerID string

	// ConversationID continues an existing conversation when set; empty
	// starts a new one.
	ConversationID string

	// Provider optionally names the preferred provider. Empty selects the
	// configured primary.
	Provider string

	// Text is the user's message.
	Text string
}

// Result is the outcome of a handled turn. AssistantText is filled on both
// the success path and the handled provider-failure path.
type Result struct {
	ConversationID uuid.UUID
	AssistantText  string
	Provider       string
	Created        bool
}

// Handle runs one chat turn.
//
// Provider-side failures are recovered locally: the user's message and a
// sanitized human-readable explanation are persisted as a normal turn and
// the explanation is returned as the assistant's reply. Only caller
// mistakes (empty input, unknown conversation, owner mismatch) and
// storage-tier exhaustion surface as errors.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, ErrEmptyOwner
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	convID, created, err := o.gateway.EnsureConversation(ctx, req.ConversationID,
		conversation.TruncateTitle(req.Text), req.OwnerID)
	if err != nil {
		telemetry.CountTurnFailed()
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}

	history, err := o.buildHistory(ctx, convID, created, req.Text)
	if err != nil {
		telemetry.CountTurnFailed()
		return nil, fmt.Errorf("load history: %w", err)
	}

	text, used, err := o.router.Complete(ctx, req.Provider, history)
	if err != nil {
		text = replyForError(err)
		o.logger.Warn("provider call failed, recording explanation as reply",
			"conversation_id", convID,
			"provider", req.Provider,
			"error", err,
		)
	}
	clean := sanitize.Clean(text)

	if _, err := o.gateway.AppendTurn(ctx, convID, req.Text, clean); err != nil {
		telemetry.CountTurnFailed()
		return nil, fmt.Errorf("persist turn: %w", err)
	}

	telemetry.CountTurnHandled()
	telemetry.ObserveDuration(telemetry.TurnDuration, time.Since(start))

	return &Result{
		ConversationID: convID,
		AssistantText:  clean,
		Provider:       used,
		Created:        created,
	}, nil
}

// buildHistory loads the stored transcript and appends the in-flight user
// message as the final entry. For a brand-new conversation there is nothing
// to load.
func (o *Orchestrator) buildHistory(ctx context.Context, convID uuid.UUID, created bool, userText string) ([]provider.Message, error) {
	if created {
		return []provider.Message{{Role: conversation.RoleUser, Content: userText}}, nil
	}

	stored, err := o.gateway.ListMessages(ctx, convID, 0)
	if err != nil {
		return nil, err
	}
	if o.maxHistory > 0 && int32(len(stored)) > o.maxHistory {
		stored = stored[int32(len(stored))-o.maxHistory:]
	}

	history := make([]provider.Message, 0, len(stored)+1)
	for _, m := range stored {
		history = append(history, provider.Message{Role: m.Role, Content: m.Content})
	}
	return append(history, provider.Message{Role: conversation.RoleUser, Content: userText}), nil
}

// replyForError turns a provider-side failure into the explanation shown to
// the user in place of an assistant reply.
func replyForError(err error) string {
	var cfgErr *provider.ConfigError
	if errors.As(err, &cfgErr) {
		return fmt.Sprintf("The %s provider is not configured on this server. "+
			"Choose a different provider or ask the operator to add its credentials.", cfgErr.Provider)
	}

	var exhausted *provider.ExhaustedError
	if errors.As(err, &exhausted) {
		return "Every configured AI provider is currently unavailable. Please try again in a few minutes."
	}

	var perr *provider.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case provider.KindUnauthenticated:
			return fmt.Sprintf("The %s provider rejected this server's credentials. "+
				"Ask the operator to check the configured API key.", perr.Provider)
		case provider.KindQuotaExceeded:
			return fmt.Sprintf("The %s provider is over its usage quota. "+
				"Please try again later or choose a different provider.", perr.Provider)
		case provider.KindTimeout:
			return fmt.Sprintf("The %s provider did not respond in time. Please try again.", perr.Provider)
		default:
			return fmt.Sprintf("The %s provider returned an error. Please try again.", perr.Provider)
		}
	}

	return "The AI provider returned an error. Please try again."
}
