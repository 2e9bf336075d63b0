package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lavudyaraja/nextgenai-sub000/internal/conversation"
	"github.com/lavudyaraja/nextgenai-sub000/internal/log"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// conversationHandler serves the conversation CRUD endpoints.
type conversationHandler struct {
	gateway *conversation.Gateway
	logger  log.Logger
}

type conversationView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type messageView struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// list handles GET /api/v1/conversations.
func (h *conversationHandler) list(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity is required", h.logger)
		return
	}

	limit := queryInt(r, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := queryInt(r, "offset", 0)

	convs, err := h.gateway.ListConversations(r.Context(), owner, int32(limit), int32(offset))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	views := make([]conversationView, 0, len(convs))
	for _, c := range convs {
		views = append(views, conversationView{
			ID:        c.ID.String(),
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": views}, h.logger)
}

// messages handles GET /api/v1/conversations/{id}/messages.
func (h *conversationHandler) messages(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity is required", h.logger)
		return
	}

	convID, ok := pathUUID(w, r, h.logger)
	if !ok {
		return
	}

	// Ownership is checked before any transcript content is returned.
	if _, err := h.gateway.GetConversation(r.Context(), convID, owner); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	msgs, err := h.gateway.ListMessages(r.Context(), convID, int32(queryInt(r, "limit", 0)))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{
			ID:        m.ID.String(),
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": views}, h.logger)
}

// remove handles DELETE /api/v1/conversations/{id}.
func (h *conversationHandler) remove(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity is required", h.logger)
		return
	}

	convID, ok := pathUUID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.gateway.DeleteConversation(r.Context(), convID, owner); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathUUID parses the {id} path segment, answering 404 on a malformed id.
func pathUUID(w http.ResponseWriter, r *http.Request, logger log.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "conversation not found", logger)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
