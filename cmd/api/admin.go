package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikonekti/nikonekti_backend/internal/config"
	"github.com/nikonekti/nikonekti_backend/internal/identity"
	"github.com/nikonekti/nikonekti_backend/internal/infra"
	"github.com/nikonekti/nikonekti_backend/internal/logging"
	"github.com/nikonekti/nikonekti_backend/internal/notification"
)

func createAdminCmd() *cobra.Command {
	var phone, name, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a staff account",
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

			svc := identity.NewService(identity.NewPostgresRepository(db), notification.NewLoggerNotifier(logger), logger, cfg.BcryptCost)
			user, err := svc.CreateAdmin(cmd.Context(), phone, name, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %d (%s)\n", user.ID, user.PhoneNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "phone number in +255XXXXXXXXX format")
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	for _, flag := range []string{"phone", "name", "password"} {
		_ = cmd.MarkFlagRequired(flag)
	}
	return cmd
}
