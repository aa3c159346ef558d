package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/arkit/internal/config"
)

func NewDisconnectCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect the wallet and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()

			rec, err := rt.store.Load(ctx)
			if err != nil && cfg.Logger != nil {
				cfg.Logger.Warn("Could not read stored session: %v", err)
			}
			if rec != nil {
				// reconnect so the strategy can release its session
				if err := wait(ctx, rt.machine.Restore(ctx)); err != nil {
					return err
				}
			}

			if err := rt.machine.Disconnect(ctx); err != nil {
				return err
			}

			if rec == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No wallet connected")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Disconnected %s\n", rec.StrategyID)
			return nil
		},
	}
}
