package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/lavudyaraja/nextgenai-sub000/db"
	"github.com/lavudyaraja/nextgenai-sub000/internal/api"
	"github.com/lavudyaraja/nextgenai-sub000/internal/chat"
	"github.com/lavudyaraja/nextgenai-sub000/internal/config"
	"github.com/lavudyaraja/nextgenai-sub000/internal/conversation"
	"github.com/lavudyaraja/nextgenai-sub000/internal/provider"
	"github.com/lavudyaraja/nextgenai-sub000/internal/telemetry"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
	startupPingWait   = 3 * time.Second
)

var (
	serveAddr       string
	serveTrustProxy bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (host:port), overrides http_addr")
	serveCmd.Flags().BoolVar(&serveTrustProxy, "trust-proxy", false, "trust X-Real-IP/X-Forwarded-For headers")
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := newLogger(cfg)
	telemetry.Init()

	addr := serveAddr
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting HTTP API server", "version", AppVersion)

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	defer pool.Close()

	// The durable store being down at startup is not fatal: the degraded
	// tier serves chat turns until it recovers.
	pingCtx, pingCancel := context.WithTimeout(ctx, startupPingWait)
	if err := pool.Ping(pingCtx); err != nil {
		logger.Warn("durable store unreachable at startup, serving in degraded mode", "error", err)
	} else if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		logger.Warn("schema migration failed", "error", err)
	}
	pingCancel()

	gateway := conversation.NewGateway(
		conversation.NewPostgresStore(pool, logger),
		conversation.NewMemoryStore(),
		logger,
	)

	adapters, err := provider.FromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating provider adapters: %w", err)
	}
	if len(adapters) == 0 {
		logger.Warn("no provider API keys configured, every chat turn will fail")
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	router := provider.NewRouter(adapters, cfg.PrimaryProvider, cfg.FallbackOrder, limiter, logger)

	orchestrator, err := chat.New(chat.Config{
		Gateway:    gateway,
		Router:     router,
		MaxHistory: cfg.MaxHistoryMessages,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:       logger,
		Orchestrator: orchestrator,
		Gateway:      gateway,
		Pool:         pool,
		RateRPS:      cfg.RateLimitRPS,
		RateBurst:    cfg.RateLimitBurst,
		TrustProxy:   serveTrustProxy,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/v1/*",
		"health", "/health, /ready",
		"primary_provider", cfg.PrimaryProvider,
		"configured_providers", len(adapters),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
