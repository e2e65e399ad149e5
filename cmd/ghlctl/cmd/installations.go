package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"ghl-oauth-manager/internal/app"
	"ghl-oauth-manager/internal/installations"

	"github.com/spf13/cobra"
)

type installationRow struct {
	ID               string                    `json:"id"`
	LocationID       string                    `json:"location_id"`
	AuthClass        string                    `json:"auth_class"`
	Status           installations.TokenStatus `json:"status"`
	ExpiresAt        time.Time                 `json:"expires_at"`
	ExpiresInMinutes int                       `json:"expires_in_minutes"`
	HasRefreshToken  bool                      `json:"has_refresh_token"`
}

func newInstallationsCommand(state *cliState) *cobra.Command {
	var (
		expiring time.Duration
		expired  bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:     "installations",
		Aliases: []string{"ls", "list"},
		Short:   "List stored installations without their tokens",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if expiring > 0 && expired {
				return fmt.Errorf("--expiring and --expired cannot be combined")
			}

			return state.withApp(func(a *app.App) error {
				ctx := commandContext(cmd)
				m := a.Manager

				var (
					list []*installations.Installation
					err  error
				)
				switch {
				case expiring > 0:
					list, err = m.Expiring(ctx, expiring)
				case expired:
					list, err = m.Expired(ctx)
				default:
					list, err = m.List(ctx)
				}
				if err != nil {
					return err
				}

				now := m.Now()
				rows := make([]installationRow, 0, len(list))
				for _, inst := range list {
					report := installations.Describe(inst, now, m.StatusBuffer())
					rows = append(rows, installationRow{
						ID:               inst.ID,
						LocationID:       inst.LocationID,
						AuthClass:        inst.AuthClass,
						Status:           report.Status,
						ExpiresAt:        inst.ExpiresAt,
						ExpiresInMinutes: report.ExpiresInMinutes,
						HasRefreshToken:  report.HasRefreshToken,
					})
				}

				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(rows)
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tLOCATION\tCLASS\tSTATUS\tEXPIRES IN\tREFRESHABLE")
				for _, row := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dm\t%t\n",
						row.ID, row.LocationID, row.AuthClass, row.Status, row.ExpiresInMinutes, row.HasRefreshToken)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().DurationVar(&expiring, "expiring", 0, "only installations expiring within this window")
	cmd.Flags().BoolVar(&expired, "expired", false, "only installations whose token has expired")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
