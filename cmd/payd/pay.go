package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	payd "github.com/gildado/payd-go"
	"github.com/gildado/payd-go/sdk"
	"github.com/gildado/payd-go/signers"
)

func payCmd(cfg *cliConfig) *cobra.Command {
	var (
		domain    string
		amount    string
		asset     string
		receiver  string
		memo      string
		ref       string
		recipient string
		wait      bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Initiate a settlement through an anchor",
		Long: `Initiate a SEP-31 settlement through an anchor. The sending key is read
from PAYD_SECRET_KEY; it is used to answer the anchor's authentication
challenge and never leaves the process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			receipt, err := client.SendPayment(ctx, sdk.SendPaymentRequest{
				Domain: domain,
				Signer: signer,
				Ref:    ref,
				Payload: payd.PaymentPayload{
					Amount:     amount,
					AssetCode:  asset,
					ReceiverID: receiver,
					Memo:       memo,
				},
				RecipientAccount: recipient,
			})
			if err != nil {
				return err
			}

			if !asJSON {
				fmt.Printf("Payment %s submitted to %s\n", receipt.Payment.Ref, domain)
				fmt.Printf("  Settlement: %s (%s)\n", receipt.Settlement.ID, receipt.Settlement.Status)
				if receipt.Fee != nil {
					fmt.Printf("  Fee advice: %d stroops (%s)\n", receipt.Fee.RecommendedFee, receipt.Fee.CongestionLevel)
				}
			}

			if wait {
				record, err := receipt.Process().WaitForCompletion(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(record)
				}
				fmt.Printf("  Final status: %s\n", record.Status)
				return nil
			}

			if asJSON {
				return printJSON(receipt.Settlement)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Anchor home domain")
	cmd.Flags().StringVar(&amount, "amount", "", "Payment amount (decimal string)")
	cmd.Flags().StringVar(&asset, "asset", "", "Asset code (e.g. USDC)")
	cmd.Flags().StringVar(&receiver, "receiver", "", "Receiving customer id at the anchor")
	cmd.Flags().StringVar(&memo, "memo", "", "Optional settlement memo")
	cmd.Flags().StringVar(&ref, "ref", "", "Local payment reference (generated when empty)")
	cmd.Flags().StringVar(&recipient, "recipient-account", "", "Destination Stellar account to pre-validate")
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the settlement reaches a terminal status")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("asset")
	_ = cmd.MarkFlagRequired("receiver")

	return cmd
}
