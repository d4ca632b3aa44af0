package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Proton-105/interview-coach/internal/database"
	"github.com/Proton-105/interview-coach/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log, closer := logger.New(cfg.Logger, false)
			defer closer.Close()

			ctx := cmd.Context()
			db, dialect, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.NewMigrator(db, dialect, log).Up(ctx)
			if err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}

			log.Info("migrations applied", slog.String("driver", string(dialect)), slog.Int("applied", applied))
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	}
}
