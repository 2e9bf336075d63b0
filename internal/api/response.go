package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lavudyaraja/nextgenai-sub000/internal/chat"
	"github.com/lavudyaraja/nextgenai-sub000/internal/conversation"
	"github.com/lavudyaraja/nextgenai-sub000/internal/log"
)

// ErrorResponse is the JSON shape of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
// Uses buffer-first strategy so headers are only sent after successful
// encoding; an encoding failure still gets a proper 500.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("failed to write response body", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message}, logger)
}

// writeDomainError maps a domain error onto its HTTP shape.
func writeDomainError(w http.ResponseWriter, err error, logger log.Logger) {
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "conversation not found", logger)
	case errors.Is(err, conversation.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "conversation belongs to another owner", logger)
	case errors.Is(err, conversation.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage is temporarily unavailable", logger)
	case errors.Is(err, chat.ErrEmptyOwner):
		writeError(w, http.StatusUnauthorized, "missing_owner", "owner identity is required", logger)
	case errors.Is(err, chat.ErrEmptyText):
		writeError(w, http.StatusBadRequest, "invalid_request", "message text is required", logger)
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", logger)
	}
}
