package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/arkit/cmd/arkit/commands"
	"github.com/systmms/arkit/internal/config"
	arerrors "github.com/systmms/arkit/internal/errors"
	"github.com/systmms/arkit/internal/logging"
	"github.com/systmms/arkit/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := run()
	secure.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", arerrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	// Global flags
	var (
		configFile     string
		noColor        bool
		debug          bool
		nonInteractive bool
		metricsAddr    string
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "arkit",
		Short: "Arweave wallet connections from the terminal",
		Long: `arkit connects an Arweave wallet through one of several strategies
and keeps the session for later commands.

Strategies:
  keyfile         JWK keyfile on disk
  keychain        JWK stored in the OS keychain
  readonly        watch-only address
  aws-secrets     AWS Secrets Manager
  aws-ssm         AWS SSM Parameter Store
  gcp-secrets     Google Secret Manager
  azure-keyvault  Azure Key Vault
  akeyless        Akeyless static secret`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(debug, noColor)

			cfg.Path = configFile
			cfg.Required = cmd.Flags().Changed("config")
			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive
			cfg.MetricsAddr = metricsAddr
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")

	rootCmd.AddCommand(
		commands.NewStrategiesCommand(cfg),
		commands.NewConnectCommand(cfg),
		commands.NewStatusCommand(cfg),
		commands.NewAddressCommand(cfg),
		commands.NewPublicKeyCommand(cfg),
		commands.NewPermissionsCommand(cfg),
		commands.NewSignCommand(cfg),
		commands.NewDisconnectCommand(cfg),
		commands.NewKeychainCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd
}
