package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gildado/payd-go/core/account"
	"github.com/gildado/payd-go/sdk"
	"github.com/gildado/payd-go/signers"
)

// newClient builds an sdk.Client from the shared CLI configuration, with a
// recipient checker wired when a Horizon URL is available.
func newClient(cfg *cliConfig) (*sdk.Client, error) {
	opts := []sdk.ClientOption{
		sdk.WithHorizon(cfg.horizonURL),
	}
	if cfg.rpcURL != "" {
		opts = append(opts, sdk.WithSorobanRPC(cfg.rpcURL))
	}
	if cfg.horizonURL != "" {
		opts = append(opts, sdk.WithAccountChecker(account.NewHorizonAccountChecker(cfg.horizonURL)))
	}
	return sdk.NewClient(cfg.networkPassphrase, opts...)
}

func statusCmd(cfg *cliConfig) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <domain> <settlement-id>",
		Short: "Fetch the current status of a settlement from the anchor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, id := args[0], args[1]

			secret := os.Getenv("PAYD_SECRET_KEY")
			if secret == "" {
				return fmt.Errorf("PAYD_SECRET_KEY is not set")
			}
			signer, err := signers.FromSecret(secret)
			if err != nil {
				return err
			}

			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			ctx := context.Background()
			session, err := client.Login(ctx, signer.PublicKey(), domain, signer)
			if err != nil {
				return err
			}

			record, err := client.SettlementStatus(ctx, session, id)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(record)
			}

			fmt.Printf("Settlement %s at %s\n", record.ID, domain)
			fmt.Printf("  Status:  %s\n", record.Status)
			if record.AmountIn != "" {
				fmt.Printf("  In:      %s %s\n", record.AmountIn, record.AmountInAsset)
			}
			if record.AmountOut != "" {
				fmt.Printf("  Out:     %s %s\n", record.AmountOut, record.AmountOutAsset)
			}
			if record.AmountFee != "" {
				fmt.Printf("  Fee:     %s\n", record.AmountFee)
			}
			if record.Message != "" {
				fmt.Printf("  Message: %s\n", record.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func capabilitiesCmd(cfg *cliConfig) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "capabilities <domain>",
		Short: "Show which assets an anchor can receive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			info, err := client.Capabilities(context.Background(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(info)
			}

			if len(info.Receive) == 0 {
				fmt.Println("No receivable assets advertised.")
				return nil
			}
			for code, capability := range info.Receive {
				state := "disabled"
				if capability.Enabled {
					state = "enabled"
				}
				fmt.Printf("%s: %s", code, state)
				if capability.MinAmount > 0 || capability.MaxAmount > 0 {
					fmt.Printf(" (min %g, max %g)", capability.MinAmount, capability.MaxAmount)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
