package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/lavudyaraja/nextgenai-sub000/internal/log"
	"github.com/lavudyaraja/nextgenai-sub000/internal/telemetry"
)

// tier identifies which store holds a conversation's authoritative record.
type tier int

const (
	tierDurable tier = iota
	tierDegraded
)

func (t tier) String() string {
	if t == tierDegraded {
		return "degraded"
	}
	return "durable"
}

// Gateway unifies the durable store and the degraded-mode fallback behind one
// interface. It decides per conversation which tier serves a request and logs
// every degradation.
//
// Tier affinity is sticky: once a conversation is resolved in a tier, all
// subsequent reads and writes for that conversation target the same tier, so
// one conversation's record never splits across tiers.
//
// Gateway is safe for concurrent use.
type Gateway struct {
	durable  Store
	degraded Store
	logger   log.Logger

	mu       sync.Mutex
	affinity map[uuid.UUID]tier
	// Conversation metadata cached at resolution time so a durable
	// conversation can be re-homed to the degraded tier when the durable
	// store becomes unreachable mid-lifetime.
	known map[uuid.UUID]*Conversation
}

// NewGateway creates a persistence gateway over the two tiers.
func NewGateway(durable, degraded Store, logger log.Logger) *Gateway {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Gateway{
		durable:  durable,
		degraded: degraded,
		logger:   logger,
		affinity: make(map[uuid.UUID]tier),
		known:    make(map[uuid.UUID]*Conversation),
	}
}

// EnsureConversation resolves or creates the conversation for a turn.
//
// With an empty id it creates a new conversation owned by owner and returns
// created=true; if the durable tier is unreachable the conversation is
// created in the degraded tier instead. With a supplied id it looks the
// conversation up (durable first, degraded second) and verifies ownership:
// ErrNotFound when absent in both tiers, ErrForbidden on owner mismatch.
func (g *Gateway) EnsureConversation(ctx context.Context, id, title, owner string) (uuid.UUID, bool, error) {
	if id == "" {
		conv := NewConversation(owner, title)
		if err := g.durable.CreateConversation(ctx, conv); err != nil {
			if !errors.Is(err, ErrStorageUnavailable) {
				return uuid.Nil, false, fmt.Errorf("creating conversation: %w", err)
			}
			g.degrade("create conversation", conv.ID, err)
			if err := g.degraded.CreateConversation(ctx, conv); err != nil {
				return uuid.Nil, false, fmt.Errorf("creating conversation in degraded store: %w", err)
			}
			g.remember(conv, tierDegraded)
			return conv.ID, true, nil
		}
		g.remember(conv, tierDurable)
		return conv.ID, true, nil
	}

	convID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: invalid conversation id %q", ErrNotFound, id)
	}

	conv, t, err := g.resolve(ctx, convID)
	if err != nil {
		return uuid.Nil, false, err
	}
	if conv.OwnerID != owner {
		return uuid.Nil, false, ErrForbidden
	}
	g.remember(conv, t)
	return convID, false, nil
}

// AppendMessage writes one message to the conversation's tier and returns it
// with its assigned sequence number.
func (g *Gateway) AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string) (*Message, error) {
	msg := NewMessage(conversationID, role, content)
	if err := g.append(ctx, conversationID, []*Message{msg}); err != nil {
		return nil, err
	}
	return msg, nil
}

// AppendTurn writes the user/assistant message pair atomically: both land in
// one transaction (durable tier) or one critical section (degraded tier).
func (g *Gateway) AppendTurn(ctx context.Context, conversationID uuid.UUID, userContent, assistantContent string) ([]*Message, error) {
	msgs := []*Message{
		NewMessage(conversationID, RoleUser, userContent),
		NewMessage(conversationID, RoleAssistant, assistantContent),
	}
	if err := g.append(ctx, conversationID, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListMessages returns the conversation's messages in order, from the tier
// that holds its authoritative record. Tiers are never mixed for one
// conversation.
func (g *Gateway) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int32) ([]*Message, error) {
	if g.tierOf(conversationID) == tierDegraded {
		return g.degraded.ListMessages(ctx, conversationID, limit)
	}
	msgs, err := g.durable.ListMessages(ctx, conversationID, limit)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Degraded-created conversation not yet seen by this gateway
			// instance.
			if dm, derr := g.degraded.ListMessages(ctx, conversationID, limit); derr == nil {
				return dm, nil
			}
		}
		return nil, err
	}
	return msgs, nil
}

// ListConversations returns the owner's conversations across both tiers,
// most recently updated first. If the durable tier is unreachable, the
// degraded tier's view is returned alone.
func (g *Gateway) ListConversations(ctx context.Context, ownerID string, limit, offset int32) ([]*Conversation, error) {
	durable, err := g.durable.ListConversations(ctx, ownerID, limit, offset)
	if err != nil {
		if !errors.Is(err, ErrStorageUnavailable) {
			return nil, err
		}
		g.degrade("list conversations", uuid.Nil, err)
		return g.degraded.ListConversations(ctx, ownerID, limit, offset)
	}

	degraded, err := g.degraded.ListConversations(ctx, ownerID, limit, 0)
	if err != nil || len(degraded) == 0 {
		return durable, nil
	}

	// Union both tiers; a re-homed conversation may appear in both, the
	// degraded copy wins since it is the authoritative one.
	seen := make(map[uuid.UUID]bool, len(degraded))
	merged := make([]*Conversation, 0, len(durable)+len(degraded))
	for _, conv := range degraded {
		seen[conv.ID] = true
		merged = append(merged, conv)
	}
	for _, conv := range durable {
		if !seen[conv.ID] {
			merged = append(merged, conv)
		}
	}
	return merged, nil
}

// GetConversation returns a conversation after verifying ownership.
func (g *Gateway) GetConversation(ctx context.Context, conversationID uuid.UUID, owner string) (*Conversation, error) {
	conv, t, err := g.resolve(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.OwnerID != owner {
		return nil, ErrForbidden
	}
	g.remember(conv, t)
	return conv, nil
}

// DeleteConversation removes a conversation after verifying ownership.
// Deletion is always an explicit caller-initiated operation; the chat path
// never deletes.
func (g *Gateway) DeleteConversation(ctx context.Context, conversationID uuid.UUID, owner string) error {
	conv, t, err := g.resolve(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.OwnerID != owner {
		return ErrForbidden
	}

	store := g.durable
	if t == tierDegraded {
		store = g.degraded
	}
	if err := store.DeleteConversation(ctx, conversationID); err != nil {
		return err
	}

	g.mu.Lock()
	delete(g.affinity, conversationID)
	delete(g.known, conversationID)
	g.mu.Unlock()
	return nil
}

// append routes a message batch to the conversation's tier. A durable-tier
// conversation whose store has become unreachable is re-homed to the
// degraded tier so the turn is not lost.
func (g *Gateway) append(ctx context.Context, conversationID uuid.UUID, msgs []*Message) error {
	if g.tierOf(conversationID) == tierDegraded {
		return g.degraded.AppendMessages(ctx, conversationID, msgs)
	}

	err := g.durable.AppendMessages(ctx, conversationID, msgs)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrStorageUnavailable) {
		return err
	}

	g.degrade("append messages", conversationID, err)
	if err := g.rehome(ctx, conversationID); err != nil {
		return err
	}
	return g.degraded.AppendMessages(ctx, conversationID, msgs)
}

// resolve finds the conversation in its tier: affinity first, then durable,
// then degraded. On a durable transport failure the degraded tier is
// consulted; if the conversation is absent there too, ownership cannot be
// verified and ErrStorageUnavailable propagates.
func (g *Gateway) resolve(ctx context.Context, conversationID uuid.UUID) (*Conversation, tier, error) {
	if g.tierOf(conversationID) == tierDegraded {
		conv, err := g.degraded.GetConversation(ctx, conversationID)
		if err != nil {
			return nil, tierDegraded, err
		}
		return conv, tierDegraded, nil
	}

	conv, err := g.durable.GetConversation(ctx, conversationID)
	if err == nil {
		return conv, tierDurable, nil
	}

	switch {
	case errors.Is(err, ErrNotFound):
		conv, derr := g.degraded.GetConversation(ctx, conversationID)
		if derr != nil {
			return nil, tierDegraded, ErrNotFound
		}
		return conv, tierDegraded, nil
	case errors.Is(err, ErrStorageUnavailable):
		g.degrade("get conversation", conversationID, err)
		conv, derr := g.degraded.GetConversation(ctx, conversationID)
		if derr != nil {
			// Absent from the degraded tier and the durable tier is down:
			// existence and ownership cannot be verified.
			return nil, tierDurable, err
		}
		return conv, tierDegraded, nil
	default:
		return nil, tierDurable, err
	}
}

// rehome moves a durable conversation's affinity to the degraded tier,
// creating its record there from cached metadata.
func (g *Gateway) rehome(ctx context.Context, conversationID uuid.UUID) error {
	g.mu.Lock()
	conv := g.known[conversationID]
	g.mu.Unlock()
	if conv == nil {
		// Never resolved through this gateway; without metadata there is no
		// record to re-home.
		return fmt.Errorf("%w: conversation %s unknown to degraded tier", ErrStorageUnavailable, conversationID)
	}

	if _, err := g.degraded.GetConversation(ctx, conversationID); errors.Is(err, ErrNotFound) {
		if err := g.degraded.CreateConversation(ctx, conv); err != nil {
			return fmt.Errorf("re-homing conversation: %w", err)
		}
	}

	g.mu.Lock()
	g.affinity[conversationID] = tierDegraded
	g.mu.Unlock()
	return nil
}

// remember records a conversation's tier affinity and caches its metadata.
func (g *Gateway) remember(conv *Conversation, t tier) {
	cp := *conv
	g.mu.Lock()
	g.affinity[conv.ID] = t
	g.known[conv.ID] = &cp
	g.mu.Unlock()
}

// tierOf returns the recorded affinity, defaulting to durable.
func (g *Gateway) tierOf(conversationID uuid.UUID) tier {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.affinity[conversationID]
}

// degrade logs and counts one degradation event.
func (g *Gateway) degrade(op string, conversationID uuid.UUID, err error) {
	telemetry.CountDegradedFallback()
	if conversationID == uuid.Nil {
		g.logger.Warn("durable store unavailable, serving from degraded tier", "op", op, "error", err)
		return
	}
	g.logger.Warn("durable store unavailable, serving from degraded tier",
		"op", op, "conversation_id", conversationID, "error", err)
}
