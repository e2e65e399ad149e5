package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"ghl-oauth-manager/internal/app"
	"ghl-oauth-manager/internal/common/logging"

	"github.com/spf13/cobra"
)

func newServeCommand(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background refresh scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Info("Starting GHL OAuth manager",
				logging.Field{Key: "version", Value: state.version},
				logging.Field{Key: "store", Value: state.cfg.StoreType},
			)

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Serve(ctx, state.cfg, state.version)
		},
	}
}
