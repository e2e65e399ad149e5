package cmd

import (
	"fmt"
	"time"

	"ghl-oauth-manager/internal/app"
	"ghl-oauth-manager/internal/oauth2"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newRefreshCommand(state *cliState) *cobra.Command {
	var expiring time.Duration

	cmd := &cobra.Command{
		Use:   "refresh [installation-id...]",
		Short: "Refresh the access token of one or more installations",
		Long: `Refreshes the given installations through the provider. With --expiring,
every installation expiring inside the window is refreshed instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && expiring <= 0 {
				return fmt.Errorf("pass installation ids or --expiring")
			}

			return state.withApp(func(a *app.App) error {
				ctx := commandContext(cmd)
				ids := lo.Uniq(args)
				if expiring > 0 {
					list, err := a.Manager.Expiring(ctx, expiring)
					if err != nil {
						return err
					}
					for _, inst := range list {
						ids = append(ids, inst.ID)
					}
					ids = lo.Uniq(ids)
				}
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to refresh")
					return nil
				}

				summary := a.Manager.BulkRefresh(ctx, ids)
				out := cmd.OutOrStdout()
				for _, res := range summary.Results {
					if res.Status == oauth2.BulkRefreshed && res.ExpiresAt != nil {
						fmt.Fprintf(out, "%s\t%s\texpires %s\n", res.InstallationID, res.Status, res.ExpiresAt.Format(time.RFC3339))
						continue
					}
					fmt.Fprintf(out, "%s\t%s\t%s\n", res.InstallationID, res.Status, res.Error)
				}
				fmt.Fprintf(out, "%d refreshed, %d failed\n", summary.Successful, summary.Failed)

				if summary.Failed > 0 {
					return fmt.Errorf("%d of %d refreshes failed", summary.Failed, summary.Total)
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&expiring, "expiring", 0, "refresh every installation expiring within this window")
	return cmd
}
