package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/folio/internal/auth"
	"github.com/keithlinneman/folio/internal/xerrors"
)

func (a *app) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Development bearer tokens",
	}

	var (
		user auth.User
		ttl  time.Duration
	)
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Mint an HS256 admin token signed with --jwt-secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.conf.JWTSecret == "" {
				return xerrors.New("--jwt-secret (or FOLIO_JWT_SECRET) is required")
			}
			switch user.Role {
			case auth.RoleAdmin, auth.RoleEditor, auth.RoleAuthenticated:
			default:
				return xerrors.Newf("unknown role %q", user.Role)
			}
			tok, err := auth.HMACIssuer{
				Secret:   []byte(a.conf.JWTSecret),
				Issuer:   a.conf.JWTIssuer,
				Audience: a.conf.JWTAudience,
				TTL:      ttl,
			}.Mint(user)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", tok)
			return nil
		},
	}
	mint.Flags().StringVar(&user.ID, "sub", "", "subject (user id)")
	mint.Flags().StringVar(&user.Email, "email", "", "email claim")
	mint.Flags().StringVar(&user.Role, "role", auth.RoleEditor, "role claim: admin|editor|authenticated")
	mint.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = mint.MarkFlagRequired("sub")

	cmd.AddCommand(mint)
	return cmd
}
