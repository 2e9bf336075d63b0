package api

import (
	"encoding/json"
	"net/http"

	"github.com/lavudyaraja/nextgenai-sub000/internal/chat"
	"github.com/lavudyaraja/nextgenai-sub000/internal/log"
)

// chatHandler serves the chat turn endpoint.
type chatHandler struct {
	orchestrator *chat.Orchestrator
	logger       log.Logger
}

// chatRequest is the POST /api/v1/chat body.
type chatRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	Provider       string `json:"provider,omitempty"`
	Message        string `json:"message"`
}

// chatResponse is returned on both the success path and the handled
// provider-failure path; in the latter case Reply carries the explanation
// recorded as the assistant's turn.
type chatResponse struct {
	ConversationID string `json:"conversationId"`
	Reply          string `json:"reply"`
	Provider       string `json:"provider,omitempty"`
	Created        bool   `json:"created"`
}

// send handles POST /api/v1/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body", h.logger)
		return
	}

	res, err := h.orchestrator.Handle(r.Context(), chat.Request{
		OwnerID:        ownerID(r),
		ConversationID: req.ConversationID,
		Provider:       req.Provider,
		Text:           req.Message,
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: res.ConversationID.String(),
		Reply:          res.AssistantText,
		Provider:       res.Provider,
		Created:        res.Created,
	}, h.logger)
}
