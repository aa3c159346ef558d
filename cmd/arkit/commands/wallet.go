package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/arkit/internal/config"
	arerrors "github.com/systmms/arkit/internal/errors"
)

// withSession restores the persisted session and runs fn against it
func withSession(cmd *cobra.Command, cfg *config.Config, fn func(ctx context.Context, rt *runtime, id string) error) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()
	if err := rt.restore(ctx); err != nil {
		return err
	}
	return fn(ctx, rt, rt.machine.Session().Snapshot().ActiveStrategyID)
}

func NewAddressCommand(cfg *config.Config) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "address",
		Short: "Print the active wallet address",
		Long: `Print the address of the connected wallet.

With --all every address the wallet exposes is listed with its name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, func(ctx context.Context, rt *runtime, id string) error {
				out := cmd.OutOrStdout()
				if !all {
					addr, err := rt.facade.ActiveAddress(ctx)
					if err != nil {
						return arerrors.StrategyError(id, "address", err)
					}
					_, _ = fmt.Fprintln(out, addr)
					return nil
				}

				addrs, err := rt.facade.AllAddresses(ctx)
				if err != nil {
					return arerrors.StrategyError(id, "address listing", err)
				}
				names, err := rt.facade.WalletNames(ctx)
				if err != nil {
					names = nil
				}
				for _, addr := range addrs {
					if name := names[addr]; name != "" {
						_, _ = fmt.Fprintf(out, "%s\t%s\n", addr, name)
						continue
					}
					_, _ = fmt.Fprintln(out, addr)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "List every address of the wallet")

	return cmd
}

func NewPublicKeyCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "public-key",
		Short: "Print the active wallet's public key (owner)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, func(ctx context.Context, rt *runtime, id string) error {
				owner, err := rt.facade.ActivePublicKey(ctx)
				if err != nil {
					return arerrors.StrategyError(id, "public key", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), owner)
				return nil
			})
		},
	}
}

func NewPermissionsCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "permissions",
		Short: "List permissions granted to the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, func(ctx context.Context, rt *runtime, id string) error {
				perms, err := rt.facade.Permissions(ctx)
				if err != nil {
					return arerrors.StrategyError(id, "permissions", err)
				}
				for _, p := range perms.Slice() {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			})
		},
	}
}
