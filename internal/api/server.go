// Package api exposes the chat orchestration core over a JSON HTTP API.
//
// Caller identity arrives pre-resolved in the X-Owner-ID header; this layer
// performs no authentication of its own.
package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lavudyaraja/nextgenai-sub000/internal/chat"
	"github.com/lavudyaraja/nextgenai-sub000/internal/conversation"
	"github.com/lavudyaraja/nextgenai-sub000/internal/log"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       log.Logger
	Orchestrator *chat.Orchestrator    // Required
	Gateway      *conversation.Gateway // Required
	Pool         *pgxpool.Pool         // Optional: nil disables storage ping in /ready
	RateRPS      float64               // Tokens per second per IP (0 = default 10)
	RateBurst    int                   // Rate limiter burst size per IP (0 = default 30)
	TrustProxy   bool                  // Trust X-Real-IP/X-Forwarded-For headers
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cfg.Gateway == nil {
		return nil, errors.New("gateway is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := &chatHandler{orchestrator: cfg.Orchestrator, logger: logger}
	cv := &conversationHandler{gateway: cfg.Gateway, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("GET /api/v1/conversations", cv.list)
	mux.HandleFunc("GET /api/v1/conversations/{id}/messages", cv.messages)
	mux.HandleFunc("DELETE /api/v1/conversations/{id}", cv.remove)

	rps := cfg.RateRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 30
	}
	rl := newRateLimiter(rps, burst)

	// Middleware stack, outermost first:
	//   Recovery → RequestID → Logging → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes and metrics bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("GET /metrics", promhttp.Handler())
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
