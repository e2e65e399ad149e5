// Package cmd implements ghlctl, the operator CLI of the installation
// service. It reads the same environment as the server and works on the
// same store.
package cmd

import (
	"context"

	"ghl-oauth-manager/internal/app"
	"ghl-oauth-manager/internal/common/logging"
	"ghl-oauth-manager/internal/config"

	"github.com/spf13/cobra"
)

type cliState struct {
	version  string
	envFiles []string
	cfg      *config.Config
}

// NewRootCommand builds the command tree. Running it without a subcommand serves the API.
func NewRootCommand(version string) *cobra.Command {
	state := &cliState{version: version}

	root := &cobra.Command{
		Use:           "ghlctl",
		Short:         "GoHighLevel OAuth installation manager",
		Long:          `Runs the OAuth installation service and inspects or refreshes stored installations.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Bootstrap(state.envFiles...)
			if err != nil {
				return err
			}
			state.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.MustSync()
		},
	}
	root.PersistentFlags().StringSliceVar(&state.envFiles, "env-file", nil, "env files to load (default .env)")

	serve := newServeCommand(state)
	root.RunE = serve.RunE

	root.AddCommand(
		serve,
		newInstallationsCommand(state),
		newRefreshCommand(state),
		newInstallURLCommand(state),
	)
	return root
}

// withApp builds the service components without starting timers or the listener.
func (s *cliState) withApp(fn func(a *app.App) error) error {
	a, err := app.New(s.cfg, s.version)
	if err != nil {
		return err
	}
	defer a.Cleanup()
	return fn(a)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
