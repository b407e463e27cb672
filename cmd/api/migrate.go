package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikonekti/nikonekti_backend/internal/config"
	"github.com/nikonekti/nikonekti_backend/internal/infra"
	"github.com/nikonekti/nikonekti_backend/internal/logging"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := logging.New(cfg.LogLevel, cfg.LogFormat)

			db, err := infra.OpenDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := infra.Migrate(cmd.Context(), db, logger); err != nil {
				return err
			}
			logger.Info("migrations up to date")
			return nil
		},
	}
}
