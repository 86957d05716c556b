package main

import (
	"time"

	"github.com/spf13/cobra"

	jwttoken "misiones/internal/jwt_token"
)

func (c *cli) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Operator tokens for the admin API",
	}

	var (
		subject string
		role    string
		sites   []string
		ttl     time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Mint an admin or site_admin bearer token",
		Long: `Mint a bearer token for the admin API.

Examples:
  misionesctl token issue --subject coordinacion --role admin
  misionesctl token issue --subject ana --role site_admin --site <site-id> --site <site-id>`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			token, err := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer).
				IssueToken(subject, role, sites, ttl)
			if err != nil {
				return err
			}
			return c.printJSON(map[string]any{
				"token":      token,
				"role":       role,
				"expires_in": int(ttl.Seconds()),
			})
		},
	}
	issue.Flags().StringVar(&subject, "subject", "", "operator identifier recorded as the token subject")
	issue.Flags().StringVar(&role, "role", jwttoken.RoleSiteAdmin, "admin or site_admin")
	issue.Flags().StringArrayVar(&sites, "site", nil, "site id a site_admin may manage (repeatable)")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_TOKEN_TTL)")

	cmd.AddCommand(issue)
	return cmd
}
