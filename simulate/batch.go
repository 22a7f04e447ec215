package simulate

import (
	"context"
	"sync"
)

// BatchSummary is a pure aggregation over a batch of simulation results.
type BatchSummary struct {
	AllPassed   bool `json:"allPassed"`
	PassedCount int  `json:"passedCount"`
	FailedCount int  `json:"failedCount"`
	TotalErrors int  `json:"totalErrors"`
}

// SimulateBatch dry-runs each envelope independently and concurrently.
// Results are returned in input order regardless of completion order.
func (s *Simulator) SimulateBatch(ctx context.Context, envelopeXDRs []string) []*Result {
	results := make([]*Result, len(envelopeXDRs))

	var wg sync.WaitGroup
	for i, xdr := range envelopeXDRs {
		wg.Add(1)
		go func(i int, xdr string) {
			defer wg.Done()
			results[i] = s.Simulate(ctx, xdr)
		}(i, xdr)
	}
	wg.Wait()

	return results
}

// SummarizeBatch aggregates a batch of simulation results. It performs no I/O.
func SummarizeBatch(results []*Result) BatchSummary {
	summary := BatchSummary{}
	for _, r := range results {
		if r.Success {
			summary.PassedCount++
		} else {
			summary.FailedCount++
		}
		summary.TotalErrors += len(r.Errors)
	}
	summary.AllPassed = summary.FailedCount == 0
	return summary
}
