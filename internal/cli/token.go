package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"survey-service/internal/auth"
	"survey-service/internal/config"
	"survey-service/internal/domain"
)

// NewIssueTokenCmd mints an identity token with the shared secret, standing in for the
// identity provider in development.
func NewIssueTokenCmd(configPath *string) *cobra.Command {
	var (
		email string
		name  string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Issue an end-user identity token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)
			}
			tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer, nil)
			token, err := tokens.Sign(domain.Identity{Email: email, Name: name}, auth.RoleUser, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "identity email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
