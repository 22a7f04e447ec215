package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gildado/payd-go/core/net"
	"github.com/gildado/payd-go/fees"
)

func feesCmd(cfg *cliConfig) *cobra.Command {
	var count int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Show the current fee recommendation from Horizon",
		RunE: func(cmd *cobra.Command, args []string) error {
			advisor := fees.NewAdvisor(net.NewClient(), cfg.horizonURL)
			ctx := context.Background()

			if count > 1 {
				estimate, err := advisor.EstimateBatch(ctx, count)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(estimate)
				}
				fmt.Printf("Batch budget for %d transactions (%s congestion)\n", estimate.TransactionCount, estimate.CongestionLevel)
				fmt.Printf("  Per transaction: %d stroops (%s XLM)\n", estimate.FeePerTransaction, fees.StroopsToXLM(estimate.FeePerTransaction))
				fmt.Printf("  Total budget:    %d stroops (%s XLM)\n", estimate.TotalBudget, fees.StroopsToXLM(estimate.TotalBudget))
				return nil
			}

			rec, err := advisor.Recommendation(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(rec)
			}
			fmt.Printf("Network congestion: %s\n", rec.CongestionLevel)
			fmt.Printf("  Base fee:        %d stroops\n", rec.BaseFee)
			fmt.Printf("  Recommended fee: %d stroops (%s XLM)\n", rec.RecommendedFee, fees.StroopsToXLM(rec.RecommendedFee))
			fmt.Printf("  Max fee:         %d stroops\n", rec.MaxFee)
			if rec.ShouldBumpFee {
				fmt.Println("  Network is congested; consider bumping fees on stuck transactions.")
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Estimate a budget for a batch of this many transactions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
