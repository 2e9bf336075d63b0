// Package conversation provides the conversation persistence tier: a durable
// PostgreSQL store, an in-memory degraded-mode fallback, and the gateway that
// unifies them behind one interface.
package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role constants define valid message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TitleMaxLength is the maximum length of a conversation title in runes.
// Longer derived titles are truncated with an ellipsis.
const TitleMaxLength = 100

// Conversation represents an owned thread of alternating user/assistant
// messages. The owner is set at creation and never changes.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single conversation message. Messages are immutable once
// created; ordering within a conversation follows the sequence number, which
// is assigned monotonically by the owning store.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	SequenceNumber int       `json:"sequence_number"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is the contract both persistence tiers implement. The gateway is the
// only consumer; it decides per conversation which tier serves a request.
type Store interface {
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	ListConversations(ctx context.Context, ownerID string, limit, offset int32) ([]*Conversation, error)
	DeleteConversation(ctx context.Context, id uuid.UUID) error

	// AppendMessages appends messages atomically, assigns sequence numbers,
	// and bumps the conversation's updated_at.
	AppendMessages(ctx context.Context, conversationID uuid.UUID, messages []*Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int32) ([]*Message, error)
}

// NewConversation constructs a conversation record with a generated id.
func NewConversation(ownerID, title string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     TruncateTitle(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewMessage constructs a message record with a generated id. The sequence
// number is assigned by the store on append.
func NewMessage(conversationID uuid.UUID, role, content string) *Message {
	return &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
}

// TruncateTitle bounds a title to TitleMaxLength runes, appending an
// ellipsis when truncation occurs.
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= TitleMaxLength {
		return title
	}
	return string(runes[:TitleMaxLength-3]) + "..."
}
