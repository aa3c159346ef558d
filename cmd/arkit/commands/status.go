package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/arkit/internal/config"
)

func NewStatusCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored wallet session",
		Long: `Show the stored session and whether its strategy can still connect.

Unlike the wallet commands, status does not fail when nothing is connected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()

			out := cmd.OutOrStdout()
			rec, err := rt.store.Load(ctx)
			if err != nil {
				return err
			}
			if rec == nil {
				_, _ = fmt.Fprintln(out, "No wallet connected")
				return nil
			}

			if err := wait(ctx, rt.machine.Restore(ctx)); err != nil {
				return err
			}
			snap := rt.machine.Session().Snapshot()

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "Strategy:\t%s\n", rec.StrategyID)
			_, _ = fmt.Fprintf(w, "Status:\t%s\n", snap.Status)
			_, _ = fmt.Fprintf(w, "Connected at:\t%s\n", rec.ConnectedAt.Format("2006-01-02 15:04:05 MST"))
			if snap.Connected() {
				_, _ = fmt.Fprintf(w, "Session:\t%s\n", snap.SessionID)
				if perms, err := rt.facade.Permissions(ctx); err == nil {
					_, _ = fmt.Fprintf(w, "Permissions:\t%s\n", perms)
				}
			}
			return w.Flush()
		},
	}
}
