package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/gildado/payd-go/core/net"
	"github.com/gildado/payd-go/simulate"
)

func simulateCmd(cfg *cliConfig) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "simulate <file|->",
		Short: "Dry-run transaction envelopes before submission",
		Long: `Dry-run one or more base64 transaction envelopes, one per line,
read from a file or from stdin when the argument is "-".

Envelopes are simulated via Soroban RPC when --rpc is configured, falling
back to Horizon submission validation otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			envelopes, err := readEnvelopes(args[0])
			if err != nil {
				return err
			}
			if len(envelopes) == 0 {
				return fmt.Errorf("no envelopes to simulate")
			}

			simulator, err := simulate.NewSimulator(net.NewClient(), cfg.rpcURL, cfg.horizonURL)
			if err != nil {
				return err
			}

			ctx := context.Background()
			results := make([]*simulate.Result, len(envelopes))

			if len(envelopes) > 1 && !asJSON {
				bar := progressbar.Default(int64(len(envelopes)), "simulating")
				for i, xdr := range envelopes {
					results[i] = simulator.Simulate(ctx, xdr)
					_ = bar.Add(1)
				}
			} else {
				results = simulator.SimulateBatch(ctx, envelopes)
			}

			if asJSON {
				return printJSON(results)
			}

			for i, result := range results {
				fmt.Printf("[%d] %s: %s\n", i+1, result.Title, result.Description)
				for _, e := range result.Errors {
					if e.OperationIndex != nil {
						fmt.Printf("    op %d: %s (%s)\n", *e.OperationIndex, e.Message, e.Code)
					} else {
						fmt.Printf("    %s (%s)\n", e.Message, e.Code)
					}
				}
			}

			summary := simulate.SummarizeBatch(results)
			if len(results) > 1 {
				fmt.Printf("\n%d passed, %d failed, %d errors total\n",
					summary.PassedCount, summary.FailedCount, summary.TotalErrors)
			}
			if !summary.AllPassed {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

// readEnvelopes reads newline-separated base64 envelopes from a file, or from
// stdin when path is "-". Blank lines are skipped.
func readEnvelopes(path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var envelopes []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		envelopes = append(envelopes, line)
	}
	return envelopes, scanner.Err()
}
