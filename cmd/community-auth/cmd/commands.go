// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/communityapp/authsession/internal/app"
	"github.com/communityapp/authsession/jwt"
	"github.com/spf13/cobra"
)

func newLoginCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with the browser, even when a session exists",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, a *app.App) error {
			if _, err := a.Session.Authorize(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			return nil
		}),
	}
}

func newTokenCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a valid access token, signing in if needed",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, a *app.App) error {
			token, err := a.Session.AccessToken(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		}),
	}
}

func newUserInfoCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "userinfo",
		Short: "Print the signed in user's profile",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, a *app.App) error {
			info, err := a.Session.UserInfo(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}),
	}
}

func newLogoutCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session with the identity provider",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, a *app.App) error {
			if err := a.Session.EndSession(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		}),
	}
}

func newStatusCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session without contacting the provider",
		Args:  cobra.NoArgs,
		RunE: run(func(_ context.Context, cmd *cobra.Command, a *app.App) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "issuer:     %s\n", a.Config.Issuer)
			fmt.Fprintf(out, "client id:  %s\n", a.Config.ClientID)
			state := a.Store.Get()
			if state == nil || !a.Session.IsAuthorized() {
				fmt.Fprintln(out, "status:     logged out")
				return nil
			}
			fmt.Fprintln(out, "status:     logged in")
			tr := state.LastTokenResponse
			if tr == nil {
				return nil
			}
			var id struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			}
			if err := tr.IdToken.Claims(&id); err == nil && id.Email != "" {
				fmt.Fprintf(out, "user:       %s <%s>\n", id.Name, id.Email)
			}
			if !tr.Expiry.IsZero() {
				fmt.Fprintf(out, "expires:    %s\n", tr.Expiry.Local().Format(time.RFC3339))
			}
			claims, err := jwt.ParseClaims(string(tr.AccessToken))
			if err != nil {
				return nil
			}
			roles, _ := claims.Roles(a.Config.ClientID)
			fmt.Fprintf(out, "subject:    %s\n", claims.Subject)
			fmt.Fprintf(out, "roles:      %s\n", strings.Join(roles, ", "))
			return nil
		}),
	}
}
