package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/arkit/internal/config"
	arerrors "github.com/systmms/arkit/internal/errors"
	"github.com/systmms/arkit/internal/tui"
	"github.com/systmms/arkit/pkg/connect"
)

func NewConnectCommand(cfg *config.Config) *cobra.Command {
	var retries int

	cmd := &cobra.Command{
		Use:   "connect [strategy]",
		Short: "Connect a wallet",
		Long: `Connect a wallet with one of the configured strategies.

Without a strategy id an interactive picker is shown. The session is kept so
later commands reuse it until 'arkit disconnect'.

Examples:
  # Pick a strategy interactively
  arkit connect

  # Connect the JWK keyfile configured in arkit.yaml
  arkit connect keyfile

  # Retry a failing keychain connection twice
  arkit connect keychain --retries 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if retries < 0 {
				return arerrors.UserError{
					Message:    "Invalid retry count",
					Suggestion: "Use --retries with a value of 0 or more",
				}
			}

			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()

			var snap connect.Snapshot
			if len(args) == 0 {
				if cfg.NonInteractive {
					return arerrors.UserError{
						Message:    "A strategy id is required in non-interactive mode",
						Suggestion: fmt.Sprintf("Run 'arkit connect <id>' with one of: %s", strings.Join(rt.registry.IDs(), ", ")),
					}
				}
				snap, err = tui.Run(ctx, rt.machine, rt.registry.List())
				if err != nil {
					return err
				}
				if !snap.Connected() {
					if snap.SelectedStrategyID == "" {
						return nil
					}
					return rt.outcomeError(snap)
				}
			} else {
				snap, err = connectWithRetries(ctx, rt, args[0], retries)
				if err != nil {
					return err
				}
			}

			addr, err := rt.facade.ActiveAddress(ctx)
			if err != nil {
				return arerrors.StrategyError(snap.ActiveStrategyID, "address", err)
			}

			if cfg.Logger != nil {
				cfg.Logger.Info("Connected with %s", snap.ActiveStrategyID)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Address: %s\n", addr)
			_, _ = fmt.Fprintf(out, "Session: %s\n", snap.SessionID)
			return nil
		},
	}

	cmd.Flags().IntVar(&retries, "retries", 0, "Retry a failed connect this many times")

	return cmd
}

func connectWithRetries(ctx context.Context, rt *runtime, id string, retries int) (connect.Snapshot, error) {
	if _, err := rt.lookup(id); err != nil {
		return connect.Snapshot{}, err
	}

	if err := wait(ctx, rt.machine.Select(ctx, id)); err != nil {
		return connect.Snapshot{}, err
	}
	snap := rt.machine.Session().Snapshot()

	for attempt := 1; attempt <= retries && snap.Status == connect.StatusFailed; attempt++ {
		if rt.cfg.Logger != nil {
			rt.cfg.Logger.Warn("Connect failed, retrying (%d/%d)", attempt, retries)
		}
		if err := wait(ctx, rt.machine.Retry(ctx)); err != nil {
			return connect.Snapshot{}, err
		}
		snap = rt.machine.Session().Snapshot()
	}

	if !snap.Connected() {
		return snap, rt.outcomeError(snap)
	}
	return snap, nil
}
