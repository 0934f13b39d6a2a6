package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"survey-service/internal/config"
	"survey-service/internal/infra/postgres"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run Postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg)
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	return postgres.Migrate(ctx, cfg.Postgres.URL)
}
