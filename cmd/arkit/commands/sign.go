package commands

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/arkit/internal/config"
	arerrors "github.com/systmms/arkit/internal/errors"
)

func NewSignCommand(cfg *config.Config) *cobra.Command {
	var asBase64 bool

	cmd := &cobra.Command{
		Use:   "sign [file|-]",
		Short: "Sign data with the connected wallet",
		Long: `Sign a file, or standard input, with the connected wallet.

The signature is RSA-PSS over SHA-256 as used by Arweave. It is printed as
hex, or as base64url with --base64.

Examples:
  arkit sign message.txt
  echo -n hello | arkit sign - --base64`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			return withSession(cmd, cfg, func(ctx context.Context, rt *runtime, id string) error {
				sig, err := rt.facade.Sign(ctx, data)
				if err != nil {
					return arerrors.StrategyError(id, "signing", err)
				}

				encoded := hex.EncodeToString(sig)
				if asBase64 {
					encoded = base64.RawURLEncoding.EncodeToString(sig)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), encoded)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asBase64, "base64", false, "Print the signature as base64url")

	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, arerrors.UserError{
			Message:    fmt.Sprintf("Cannot read %s", args[0]),
			Details:    err.Error(),
			Suggestion: "Check the file path, or pass '-' to sign standard input",
			Err:        err,
		}
	}
	return data, nil
}
