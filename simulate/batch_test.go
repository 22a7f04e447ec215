package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gildado/payd-go/core/net"
)

func TestSimulateBatchPreservesInputOrder(t *testing.T) {
	// The first envelope is answered slowly so completion order differs from
	// input order.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.Params.Transaction {
		case "envelope-a":
			time.Sleep(50 * time.Millisecond)
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"transactionData":"AAAA"}}`)
		case "envelope-b":
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"error":"op_underfunded"}}`)
		default:
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"transactionData":"AAAA"}}`)
		}
	}))
	defer server.Close()

	s, err := NewSimulator(net.NewClient(), server.URL, "http://horizon.invalid")
	require.NoError(t, err)

	results := s.SimulateBatch(context.Background(), []string{"envelope-a", "envelope-b", "envelope-c"})
	require.Len(t, results, 3)

	assert.Equal(t, "envelope-a", results[0].EnvelopeXDR)
	assert.True(t, results[0].Success)

	assert.Equal(t, "envelope-b", results[1].EnvelopeXDR)
	assert.False(t, results[1].Success)
	require.Len(t, results[1].Errors, 1)
	assert.Equal(t, "op_underfunded", results[1].Errors[0].Code)

	assert.Equal(t, "envelope-c", results[2].EnvelopeXDR)
	assert.True(t, results[2].Success)
}

func TestSimulateBatchEmptyInput(t *testing.T) {
	s, err := NewSimulator(net.NewClient(), "http://rpc.invalid", "http://horizon.invalid")
	require.NoError(t, err)

	results := s.SimulateBatch(context.Background(), nil)
	assert.Empty(t, results)
}

func TestSummarizeBatch(t *testing.T) {
	results := []*Result{
		{Success: true},
		{Success: false, Errors: []Error{{Code: "tx_bad_seq"}, {Code: "op_no_trust"}}},
		{Success: true},
	}

	summary := SummarizeBatch(results)
	assert.False(t, summary.AllPassed)
	assert.Equal(t, 2, summary.PassedCount)
	assert.Equal(t, 1, summary.FailedCount)
	assert.Equal(t, 2, summary.TotalErrors)
}

func TestSummarizeBatchAllPassed(t *testing.T) {
	summary := SummarizeBatch([]*Result{{Success: true}, {Success: true}})
	assert.True(t, summary.AllPassed)
	assert.Equal(t, 2, summary.PassedCount)
	assert.Equal(t, 0, summary.FailedCount)
}
