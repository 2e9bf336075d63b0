// Package cmd wires configuration, storage, providers, and the HTTP server
// into the nextgenai binary's commands.
package cmd

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lavudyaraja/nextgenai-sub000/internal/config"
	"github.com/lavudyaraja/nextgenai-sub000/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "nextgenai",
	Short: "AI chat service with provider failover and degraded-mode persistence",
	Long: `nextgenai serves a JSON chat API over multiple AI completion providers.

A quota failure on the primary provider fails over across the configured
fallback order; conversations survive durable-store outages in an in-memory
degraded tier.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) log.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return log.New(log.Config{Level: level, JSON: cfg.LogJSON})
}
