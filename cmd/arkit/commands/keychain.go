package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/arkit/internal/config"
	arerrors "github.com/systmms/arkit/internal/errors"
	"github.com/systmms/arkit/internal/strategies"
)

func NewKeychainCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keychain",
		Short: "Manage the wallet stored in the OS keychain",
		Long: `Manage the Arweave wallet used by the keychain strategy.

The item is stored under the service and account configured in
strategies.keychain (default arkit/default).`,
	}

	cmd.AddCommand(
		newKeychainImportCommand(cfg),
		newKeychainRemoveCommand(cfg),
	)

	return cmd
}

func newKeychainImportCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import <jwk-file>",
		Short: "Store a JWK keyfile in the OS keychain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return arerrors.UserError{
					Message:    fmt.Sprintf("Cannot read %s", args[0]),
					Details:    err.Error(),
					Suggestion: "Pass the path of an Arweave JWK keyfile",
					Err:        err,
				}
			}

			return withKeychain(cmd, cfg, func(ctx context.Context, kc *strategies.Keychain) error {
				addr, err := kc.Import(ctx, data)
				if err != nil {
					return arerrors.StrategyError(strategies.KeychainID, "import", err)
				}
				service, account := kc.Item()
				if cfg.Logger != nil {
					cfg.Logger.Info("Stored wallet in keychain item %s/%s", service, account)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Address: %s\n", addr)
				return nil
			})
		},
	}
}

func newKeychainRemoveCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Delete the wallet from the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeychain(cmd, cfg, func(ctx context.Context, kc *strategies.Keychain) error {
				if err := kc.Remove(ctx); err != nil {
					return arerrors.StrategyError(strategies.KeychainID, "remove", err)
				}
				service, account := kc.Item()
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed keychain item %s/%s\n", service, account)
				return nil
			})
		},
	}
}

func withKeychain(cmd *cobra.Command, cfg *config.Config, fn func(ctx context.Context, kc *strategies.Keychain) error) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	s, ok := rt.registry.Find(strategies.KeychainID)
	kc, isKeychain := s.(*strategies.Keychain)
	if !ok || !isKeychain {
		return arerrors.UserError{Message: "The keychain strategy is not registered"}
	}

	ctx := cmd.Context()
	return fn(ctx, kc)
}
