// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/communityapp/authsession/internal/app"
	"github.com/communityapp/authsession/internal/appconfig"
	"github.com/communityapp/authsession/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configFile  string
	envFile     string
	environment string
	verbose     bool
}

// Execute runs the community-auth command and returns the exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		printError(root, err)
		return 1
	}
	return 0
}

// NewRootCommand returns the community-auth command tree.  The options are
// passed to every App the commands open.
func NewRootCommand(opt ...app.Option) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "community-auth",
		Short:         "Sign in to the community app identity provider",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config-file", "f", "community-auth.yaml", "config file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "file with environment overrides")
	pf.StringVarP(&flags.environment, "environment", "e", "", "environment to sign in to, overrides the config file")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output")

	run := func(fn func(ctx context.Context, cmd *cobra.Command, a *app.App) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, opt, fn)
		}
	}
	root.AddCommand(
		newLoginCommand(run),
		newTokenCommand(run),
		newUserInfoCommand(run),
		newLogoutCommand(run),
		newStatusCommand(run),
	)
	return root
}

type runFunc func(fn func(ctx context.Context, cmd *cobra.Command, a *app.App) error) func(*cobra.Command, []string) error

// withApp loads the config, opens the App and runs fn with a context
// canceled by ctrl-c.
func withApp(cmd *cobra.Command, flags *rootFlags, opt []app.Option, fn func(ctx context.Context, cmd *cobra.Command, a *app.App) error) error {
	if err := appconfig.LoadEnvFile(flags.envFile); err != nil {
		return err
	}
	cfg, err := appconfig.Load(flags.configFile)
	if err != nil {
		return err
	}
	if flags.environment != "" {
		cfg.Environment = flags.environment
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	level := hclog.LevelFromString(cfg.LogLevel)
	if flags.verbose {
		level = hclog.Debug
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "community-auth",
		Level:  level,
		Output: cmd.ErrOrStderr(),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	opts := append([]app.Option{app.WithLogger(logger), app.WithOutput(cmd.ErrOrStderr())}, opt...)
	a, err := app.Open(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close", "error", err)
		}
	}()
	return fn(ctx, cmd, a)
}

// printError writes a user facing message for err, followed by the error
// itself when it adds detail.
func printError(cmd *cobra.Command, err error) {
	msg := oidc.UserMessage(err)
	var authErr bool
	for _, target := range []error{
		oidc.ErrUserCanceledAuthorizationFlow, oidc.ErrFlowSuperseded, oidc.ErrInvalidUserRole,
		oidc.ErrInvalidGrant, oidc.ErrNoPreviousState,
	} {
		if errors.Is(err, target) {
			authErr = true
			break
		}
	}
	if authErr {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n  %v\n", msg, err)
}
