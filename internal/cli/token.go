package cli

import (
	"fmt"
	"time"

	"rest-polls/internal/auth"
	"rest-polls/internal/config"

	"github.com/spf13/cobra"
)

// NewTokenCmd issues a bearer token for local use.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		staff   bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			manager, err := auth.NewManager(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
			if err != nil {
				return err
			}
			token, err := manager.Issue(subject, staff)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().BoolVar(&staff, "staff", false, "grant write access to polls")
	return cmd
}
