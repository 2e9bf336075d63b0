package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the process-lifetime degraded-mode fallback store. It holds
// the same entities as PostgresStore in plain maps behind a single mutex.
//
// It is explicitly constructed and dependency-injected, never a package-level
// singleton. Contents are lost on process restart; that is an accepted,
// documented property of degraded mode, not a bug.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]*Conversation
	messages      map[uuid.UUID][]*Message
}

// NewMemoryStore creates an empty degraded-mode store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[uuid.UUID]*Conversation),
		messages:      make(map[uuid.UUID][]*Message),
	}
}

// CreateConversation stores a copy of the conversation record.
func (s *MemoryStore) CreateConversation(_ context.Context, conv *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *conv
	s.conversations[conv.ID] = &cp
	return nil
}

// GetConversation returns a copy of the conversation, or ErrNotFound.
func (s *MemoryStore) GetConversation(_ context.Context, id uuid.UUID) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

// ListConversations returns the owner's conversations ordered by most recent
// activity first.
func (s *MemoryStore) ListConversations(_ context.Context, ownerID string, limit, offset int32) ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var convs []*Conversation
	for _, conv := range s.conversations {
		if conv.OwnerID == ownerID {
			cp := *conv
			convs = append(convs, &cp)
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	start := int(offset)
	if start > len(convs) {
		return nil, nil
	}
	end := start + int(limit)
	if limit <= 0 || end > len(convs) {
		end = len(convs)
	}
	return convs[start:end], nil
}

// DeleteConversation removes a conversation and its messages.
func (s *MemoryStore) DeleteConversation(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	return nil
}

// AppendMessages appends the messages in one critical section, assigning
// sequence numbers and bumping the conversation's updated_at. The whole
// batch is visible atomically to concurrent readers.
func (s *MemoryStore) AppendMessages(_ context.Context, conversationID uuid.UUID, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}

	seq := len(s.messages[conversationID])
	for i, msg := range messages {
		cp := *msg
		cp.ConversationID = conversationID
		cp.SequenceNumber = seq + i + 1
		s.messages[conversationID] = append(s.messages[conversationID], &cp)
		// Callers observe assigned sequence numbers, matching PostgresStore.
		msg.SequenceNumber = cp.SequenceNumber
	}
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

// ListMessages returns up to limit messages in append order.
func (s *MemoryStore) ListMessages(_ context.Context, conversationID uuid.UUID, limit int32) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, ErrNotFound
	}

	msgs := s.messages[conversationID]
	if limit > 0 && int(limit) < len(msgs) {
		msgs = msgs[:limit]
	}

	out := make([]*Message, len(msgs))
	for i, msg := range msgs {
		cp := *msg
		out[i] = &cp
	}
	return out, nil
}

// Len reports the number of stored conversations. Used by health reporting.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
