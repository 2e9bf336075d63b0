package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lavudyaraja/nextgenai-sub000/internal/log"
)

const readinessTimeout = 2 * time.Second

// health is a liveness probe. Returns 200 OK with {"status":"ok"}.
func health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readiness is a readiness probe. With a pool it pings the durable store;
// the server stays ready even when the store is down because the degraded
// tier still serves chat turns, so a failed ping is reported but not fatal.
func readiness(pool *pgxpool.Pool, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storage := "unconfigured"
		if pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := pool.Ping(ctx); err != nil {
				logger.Warn("readiness: durable store ping failed", "error", err)
				storage = "degraded"
			} else {
				storage = "ok"
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"storage": storage,
		}, logger)
	}
}
