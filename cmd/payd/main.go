// Command payd is a thin operational CLI over the payd payment core: fee
// recommendations, envelope dry runs, settlement initiation, and settlement
// status lookups against a configured anchor.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var Version = "dev"

// cliConfig holds shared connection settings. Flags override environment
// variables (PAYD_HORIZON_URL, PAYD_SOROBAN_RPC_URL, PAYD_NETWORK_PASSPHRASE,
// PAYD_SECRET_KEY).
type cliConfig struct {
	horizonURL        string
	rpcURL            string
	networkPassphrase string
	logLevel          string
}

func main() {
	cfg := &cliConfig{}

	rootCmd := &cobra.Command{
		Use:     "payd",
		Short:   "payd - payroll payments over Stellar anchors",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg.horizonURL == "" {
				cfg.horizonURL = envOr("PAYD_HORIZON_URL", "https://horizon-testnet.stellar.org")
			}
			if cfg.rpcURL == "" {
				cfg.rpcURL = os.Getenv("PAYD_SOROBAN_RPC_URL")
			}
			if cfg.networkPassphrase == "" {
				cfg.networkPassphrase = envOr("PAYD_NETWORK_PASSPHRASE", "Test SDF Network ; September 2015")
			}

			level, err := logrus.ParseLevel(cfg.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", cfg.logLevel, err)
			}
			logrus.SetLevel(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfg.horizonURL, "horizon", "", "Horizon base URL")
	rootCmd.PersistentFlags().StringVar(&cfg.rpcURL, "rpc", "", "Soroban RPC URL")
	rootCmd.PersistentFlags().StringVar(&cfg.networkPassphrase, "network-passphrase", "", "Stellar network passphrase")
	rootCmd.PersistentFlags().StringVar(&cfg.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(feesCmd(cfg))
	rootCmd.AddCommand(simulateCmd(cfg))
	rootCmd.AddCommand(payCmd(cfg))
	rootCmd.AddCommand(statusCmd(cfg))
	rootCmd.AddCommand(capabilitiesCmd(cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
