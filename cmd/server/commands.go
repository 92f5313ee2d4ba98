package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"freightdesk/internal/identity"
	"freightdesk/internal/platform/config"
	"freightdesk/internal/platform/database"
	"freightdesk/pkg/domain"
	"freightdesk/pkg/platform/middleware/servicekey"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}

// newDevTokenCommand mints an HS256 token accepted by a server running with
// the same config. Provider-issued tokens are used everywhere else.
func newDevTokenCommand(opts *options) *cobra.Command {
	var (
		id   identity.Identity
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "dev-token",
		Short: "Print a signed development token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.HS256Secret == "" {
				return errors.New("dev-token needs auth.hs256_secret")
			}
			if id.Subject == "" {
				return errors.New("--subject is required")
			}
			if role != "" {
				r, err := domain.ParseRole(role)
				if err != nil {
					return err
				}
				id.Role = r
			}
			tok, err := identity.NewSigner(verifierConfig(cfg.Auth)).Sign(id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&id.Subject, "subject", "", "provider user id (sub claim)")
	cmd.Flags().StringVar(&id.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&id.Name, "name", "", "name claim")
	cmd.Flags().StringVar(&id.OrgID, "org", "", "active organization claim")
	cmd.Flags().StringVar(&role, "role", "", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func newHashKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-service-key KEY",
		Short: "Print the bcrypt hash to configure as internal.service_key_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := servicekey.Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
