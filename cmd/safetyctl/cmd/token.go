package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"safetyband-cloud/internal/auth"
)

type tokenOptions struct {
	org     string
	role    string
	subject string
	secret  string
	ttl     time.Duration
}

func newTokenCmd(root *rootOptions) *cobra.Command {
	opts := &tokenOptions{}
	c := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, root, opts)
		},
	}
	c.Flags().StringVar(&opts.org, "org", "", "organization id the token is scoped to")
	c.Flags().StringVar(&opts.role, "role", string(auth.RoleViewer), "role (viewer, operator, admin)")
	c.Flags().StringVar(&opts.subject, "subject", "safetyctl", "token subject")
	c.Flags().StringVar(&opts.secret, "secret", "", "signing secret (default $AUTH_JWT_SECRET)")
	c.Flags().DurationVar(&opts.ttl, "ttl", 24*time.Hour, "token lifetime")
	return c
}

func runToken(cmd *cobra.Command, root *rootOptions, opts *tokenOptions) error {
	secret := opts.secret
	if secret == "" {
		secret = os.Getenv("AUTH_JWT_SECRET")
	}
	if secret == "" {
		return errors.New("secret is required (--secret or AUTH_JWT_SECRET)")
	}
	role, ok := auth.NormalizeRole(opts.role)
	if !ok {
		return fmt.Errorf("unknown role %q", opts.role)
	}
	if opts.org == "" {
		return errors.New("--org is required")
	}
	if opts.ttl <= 0 {
		return errors.New("--ttl must be positive")
	}

	token, err := auth.IssueJWT([]byte(secret), opts.org, string(role), opts.subject, opts.ttl)
	if err != nil {
		return err
	}
	root.printVerbose(cmd, "token for org=%q role=%s expires in %s", opts.org, role, opts.ttl)
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
