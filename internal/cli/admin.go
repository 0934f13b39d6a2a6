package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"survey-service/internal/app"
	"survey-service/internal/config"
)

// NewSetAdminPasswordCmd stores a new hashed admin password, reading it from stdin.
func NewSetAdminPasswordCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-admin-password",
		Short: "Set the dashboard admin password (read from stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg)
			if cfg.Store.Driver == config.DriverMemory {
				return fmt.Errorf("set-admin-password needs a persistent store driver")
			}

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password := strings.TrimRight(line, "\r\n")

			rt, err := buildRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			settings := app.NewSettingsService(rt.storage.settings, cfg.Auth.DefaultAdminPassword)
			if err := settings.ResetAdminPassword(cmd.Context(), password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "admin password updated")
			return nil
		},
	}
}
