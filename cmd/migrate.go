package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lavudyaraja/nextgenai-sub000/db"
	"github.com/lavudyaraja/nextgenai-sub000/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database schema migrations",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runMigrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	return db.Migrate(cfg.PostgresURL(), newLogger(cfg))
}
