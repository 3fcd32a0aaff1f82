package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quizforge-service/internal/auth"
	"quizforge-service/internal/config"
	"quizforge-service/internal/domain"
)

// NewTokenCmd mints a bearer token for local development.
func NewTokenCmd(configPath *string) *cobra.Command {
	var who domain.Identity
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for a user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth secret not configured")
			}
			issuer := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TTL, 0))
			token, err := issuer.Issue(who)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&who.UID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&who.DisplayName, "name", "", "display name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
