package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lavudyaraja/nextgenai-sub000/internal/log"
)

// PostgresStore is the durable conversation store backed by PostgreSQL.
// It is safe for concurrent use by multiple goroutines.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewPostgresStore creates a PostgresStore on the given pool.
func NewPostgresStore(pool *pgxpool.Pool, logger log.Logger) *PostgresStore {
	if logger == nil {
		logger = log.NewNop()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// CreateConversation inserts a new conversation row.
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, owner_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		conv.ID, conv.OwnerID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return wrapStoreErr("create conversation", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID, "owner", conv.OwnerID)
	return nil
}

// GetConversation retrieves a conversation by id.
func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var conv Conversation
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, created_at, updated_at
		 FROM conversations WHERE id = $1`, id).
		Scan(&conv.ID, &conv.OwnerID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, wrapStoreErr("get conversation", err)
	}
	return &conv, nil
}

// ListConversations lists an owner's conversations ordered by most recent
// activity first.
func (s *PostgresStore) ListConversations(ctx context.Context, ownerID string, limit, offset int32) ([]*Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, title, created_at, updated_at
		 FROM conversations WHERE owner_id = $1
		 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset)
	if err != nil {
		return nil, wrapStoreErr("list conversations", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.OwnerID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, wrapStoreErr("scan conversation", err)
		}
		convs = append(convs, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list conversations", err)
	}
	return convs, nil
}

// DeleteConversation removes a conversation and all its messages (CASCADE).
func (s *PostgresStore) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return wrapStoreErr("delete conversation", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted conversation", "id", id)
	return nil
}

// AppendMessages appends messages in one transaction, assigning sequential
// sequence numbers and bumping the conversation's updated_at. The row lock
// serializes concurrent appends to one conversation so sequence numbers
// never collide.
func (s *PostgresStore) AppendMessages(ctx context.Context, conversationID uuid.UUID, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapStoreErr("begin transaction", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, conversationID).Scan(&locked)
	if err != nil {
		return wrapStoreErr("lock conversation", err)
	}

	var maxSeq int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM messages WHERE conversation_id = $1`,
		conversationID).Scan(&maxSeq)
	if err != nil {
		return wrapStoreErr("get max sequence number", err)
	}

	for i, msg := range messages {
		msg.ConversationID = conversationID
		msg.SequenceNumber = maxSeq + i + 1
		_, err = tx.Exec(ctx,
			`INSERT INTO messages (id, conversation_id, role, content, sequence_number, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.SequenceNumber, msg.CreatedAt)
		if err != nil {
			return wrapStoreErr(fmt.Sprintf("insert message %d", i), err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`, conversationID)
	if err != nil {
		return wrapStoreErr("update conversation timestamp", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapStoreErr("commit transaction", err)
	}

	s.logger.Debug("appended messages", "conversation_id", conversationID, "count", len(messages))
	return nil
}

// ListMessages retrieves up to limit messages ordered by sequence number
// ascending. A non-positive limit loads the full history.
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int32) ([]*Message, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, sequence_number, created_at
		 FROM messages WHERE conversation_id = $1
		 ORDER BY sequence_number ASC LIMIT $2`,
		conversationID, limit)
	if err != nil {
		return nil, wrapStoreErr("list messages", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.SequenceNumber, &msg.CreatedAt); err != nil {
			return nil, wrapStoreErr("scan message", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list messages", err)
	}
	return messages, nil
}

// wrapStoreErr maps a pgx error onto the package's error taxonomy.
//
// Server-reported SQL errors (constraint violations, bad input) pass through
// wrapped with context. Anything that indicates the tier itself is
// unreachable (dial failures, closed pools, connection-class PgErrors) maps
// to ErrStorageUnavailable so the gateway can fall back to the degraded
// tier.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception. Class 57: operator intervention
		// (e.g. admin shutdown). Class 53: insufficient resources.
		if strings.HasPrefix(pgErr.Code, "08") ||
			strings.HasPrefix(pgErr.Code, "57") ||
			strings.HasPrefix(pgErr.Code, "53") {
			return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	// Everything else from the driver is transport-level: dial errors,
	// closed pools, broken connections, timeouts reaching the server.
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}
