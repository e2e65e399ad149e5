package cmd

import (
	"fmt"

	"ghl-oauth-manager/internal/app"
	"ghl-oauth-manager/internal/common/utils"

	"github.com/spf13/cobra"
)

func newInstallURLCommand(state *cliState) *cobra.Command {
	var stateParam string

	cmd := &cobra.Command{
		Use:   "install-url",
		Short: "Print the marketplace consent URL for the configured app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stateParam == "" {
				stateParam = utils.GenerateRequestID()
			}
			return state.withApp(func(a *app.App) error {
				target, err := a.Manager.AuthCodeURL(stateParam)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), target)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&stateParam, "state", "", "opaque state echoed to the callback (random when empty)")
	return cmd
}
