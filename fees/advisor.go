// Package fees fetches current network fee statistics from Horizon and turns
// them into actionable recommendations for payroll transactions: what fee to
// attach, whether to bump it, and what a batch run will cost.
package fees

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gildado/payd-go/core/net"
	"github.com/gildado/payd-go/errors"
)

// StroopsPerXLM is the number of stroops in one whole XLM.
const StroopsPerXLM = 10_000_000

// CongestionLevel is a coarse classification of network load used to pick
// fee percentiles.
type CongestionLevel string

const (
	CongestionLow      CongestionLevel = "low"
	CongestionModerate CongestionLevel = "moderate"
	CongestionHigh     CongestionLevel = "high"
)

// safetyMargin is the per-congestion multiplier applied to batch budgets.
var safetyMargin = map[CongestionLevel]float64{
	CongestionLow:      1.0,
	CongestionModerate: 1.2,
	CongestionHigh:     1.5,
}

// feeStatsPercentiles is the raw percentile bucket Horizon returns for both
// accepted fees and max fee bids. Horizon encodes the numbers as strings.
type feeStatsPercentiles struct {
	Min  string `json:"min"`
	Mode string `json:"mode"`
	P10  string `json:"p10"`
	P20  string `json:"p20"`
	P30  string `json:"p30"`
	P40  string `json:"p40"`
	P50  string `json:"p50"`
	P60  string `json:"p60"`
	P70  string `json:"p70"`
	P80  string `json:"p80"`
	P90  string `json:"p90"`
	P95  string `json:"p95"`
	P99  string `json:"p99"`
	Max  string `json:"max"`
}

// horizonFeeStats is the JSON body of GET /fee_stats.
type horizonFeeStats struct {
	LastLedger          string              `json:"last_ledger"`
	LastLedgerBaseFee   string              `json:"last_ledger_base_fee"`
	LedgerCapacityUsage string              `json:"ledger_capacity_usage"`
	FeeCharged          feeStatsPercentiles `json:"fee_charged"`
	MaxFee              feeStatsPercentiles `json:"max_fee"`
}

// Recommendation is a processed fee recommendation derived fresh from the
// latest ledger's statistics. Fees are in stroops; XLM renderings use 7
// decimal places.
type Recommendation struct {
	BaseFee             int64           `json:"baseFee"`
	RecommendedFee      int64           `json:"recommendedFee"`
	MaxFee              int64           `json:"maxFee"`
	CongestionLevel     CongestionLevel `json:"congestionLevel"`
	ShouldBumpFee       bool            `json:"shouldBumpFee"`
	LedgerCapacityUsage float64         `json:"ledgerCapacityUsage"`
	LastLedger          int64           `json:"lastLedger"`
	RecommendedFeeXLM   string          `json:"recommendedFeeXLM"`
	MaxFeeXLM           string          `json:"maxFeeXLM"`
	BaseFeeXLM          string          `json:"baseFeeXLM"`
}

// BatchBudgetEstimate is the projected fee budget for a batch of payroll
// transactions, with a congestion-dependent safety margin applied.
type BatchBudgetEstimate struct {
	TransactionCount     int             `json:"transactionCount"`
	FeePerTransaction    int64           `json:"feePerTransaction"`
	TotalBudget          int64           `json:"totalBudget"`
	TotalBudgetXLM       string          `json:"totalBudgetXLM"`
	FeePerTransactionXLM string          `json:"feePerTransactionXLM"`
	SafetyMargin         float64         `json:"safetyMargin"`
	CongestionLevel      CongestionLevel `json:"congestionLevel"`
}

// StroopsToXLM converts stroops to an XLM string with 7-decimal precision.
func StroopsToXLM(stroops int64) string {
	return decimal.NewFromInt(stroops).
		Div(decimal.NewFromInt(StroopsPerXLM)).
		StringFixed(7)
}

// deriveCongestionLevel classifies the ledger capacity usage ratio:
// < 0.25 low, < 0.75 moderate, otherwise high.
func deriveCongestionLevel(usage float64) CongestionLevel {
	if usage < 0.25 {
		return CongestionLow
	}
	if usage < 0.75 {
		return CongestionModerate
	}
	return CongestionHigh
}

// Advisor fetches fee statistics and computes recommendations. It holds no
// state between calls; every recommendation reflects the latest ledger.
type Advisor struct {
	client     *net.Client
	horizonURL string
}

// NewAdvisor creates an Advisor for the given Horizon base URL.
func NewAdvisor(client *net.Client, horizonURL string) *Advisor {
	return &Advisor{
		client:     client,
		horizonURL: strings.TrimRight(horizonURL, "/"),
	}
}

// Recommendation fetches /fee_stats and returns a processed recommendation.
// Any fetch or parse failure surfaces as FEE_STATS_FAILED; no fallback values
// are synthesized.
func (a *Advisor) Recommendation(ctx context.Context) (*Recommendation, error) {
	stats, err := a.fetchStats(ctx)
	if err != nil {
		return nil, err
	}

	baseFee, err := parseStroops(stats.LastLedgerBaseFee, "last_ledger_base_fee")
	if err != nil {
		return nil, err
	}
	usage, err := strconv.ParseFloat(stats.LedgerCapacityUsage, 64)
	if err != nil {
		return nil, errors.NewFeesError(errors.FEE_STATS_FAILED, "invalid ledger_capacity_usage in fee stats", err)
	}
	lastLedger, err := parseStroops(stats.LastLedger, "last_ledger")
	if err != nil {
		return nil, err
	}

	congestion := deriveCongestionLevel(usage)

	var percentile string
	switch congestion {
	case CongestionLow:
		percentile = stats.FeeCharged.P50
	case CongestionModerate:
		percentile = stats.FeeCharged.P70
	case CongestionHigh:
		percentile = stats.FeeCharged.P95
	}

	recommended, err := parseStroops(percentile, "fee_charged percentile")
	if err != nil {
		return nil, err
	}
	// Never recommend below the network floor.
	if recommended < baseFee {
		recommended = baseFee
	}

	p99, err := parseStroops(stats.FeeCharged.P99, "fee_charged.p99")
	if err != nil {
		return nil, err
	}
	maxFee := p99
	if recommended > maxFee {
		maxFee = recommended
	}

	return &Recommendation{
		BaseFee:             baseFee,
		RecommendedFee:      recommended,
		MaxFee:              maxFee,
		CongestionLevel:     congestion,
		ShouldBumpFee:       congestion == CongestionHigh,
		LedgerCapacityUsage: usage,
		LastLedger:          lastLedger,
		RecommendedFeeXLM:   StroopsToXLM(recommended),
		MaxFeeXLM:           StroopsToXLM(maxFee),
		BaseFeeXLM:          StroopsToXLM(baseFee),
	}, nil
}

// EstimateBatch projects the fee budget for a batch of count transactions,
// applying the safety margin for the current congestion level.
func (a *Advisor) EstimateBatch(ctx context.Context, count int) (*BatchBudgetEstimate, error) {
	if count <= 0 {
		return nil, errors.NewFeesError(errors.FEE_STATS_FAILED, fmt.Sprintf("transaction count must be positive, got %d", count), nil)
	}

	rec, err := a.Recommendation(ctx)
	if err != nil {
		return nil, err
	}

	margin := safetyMargin[rec.CongestionLevel]
	feePerTx := decimal.NewFromInt(rec.RecommendedFee).
		Mul(decimal.NewFromFloat(margin)).
		Ceil().
		IntPart()
	total := feePerTx * int64(count)

	return &BatchBudgetEstimate{
		TransactionCount:     count,
		FeePerTransaction:    feePerTx,
		TotalBudget:          total,
		TotalBudgetXLM:       StroopsToXLM(total),
		FeePerTransactionXLM: StroopsToXLM(feePerTx),
		SafetyMargin:         margin,
		CongestionLevel:      rec.CongestionLevel,
	}, nil
}

func (a *Advisor) fetchStats(ctx context.Context) (*horizonFeeStats, error) {
	url := a.horizonURL + "/fee_stats"

	resp, err := a.client.Get(ctx, url)
	if err != nil {
		return nil, errors.NewFeesError(errors.FEE_STATS_FAILED, "failed to fetch fee stats", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, errors.NewFeesError(
			errors.FEE_STATS_FAILED,
			fmt.Sprintf("fee_stats request returned status %d", resp.StatusCode),
			nil,
		)
	}

	var stats horizonFeeStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, errors.NewFeesError(errors.FEE_STATS_FAILED, "failed to decode fee stats JSON", err)
	}

	return &stats, nil
}

func parseStroops(value, field string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.NewFeesError(errors.FEE_STATS_FAILED, fmt.Sprintf("invalid %s in fee stats: %q", field, value), err)
	}
	return n, nil
}
