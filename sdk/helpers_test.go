package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	payd "github.com/gildado/payd-go"
	"github.com/gildado/payd-go/signers"
)

const (
	testPassphrase = "Test SDF Network ; September 2015"
	testAccount    = "GBBD47UZQ4O5RITLHLDOFYM6ZX4M57GNIBSRAHKVKL2R7PZAVFH52H2L"
	testChallenge  = "challenge-envelope-xdr"
	testToken      = "anchor-jwt-token"
)

// fakeAnchor is an httptest-backed anchor serving SEP-1 discovery, SEP-10
// challenge auth, and the SEP-31 transaction resources. Behavior knobs are
// safe to flip between requests.
type fakeAnchor struct {
	server *httptest.Server

	mu           sync.Mutex
	status       payd.SettlementStatus
	lastPayload  payd.PaymentPayload
	settlementID string

	// Behavior knobs
	omitAuthEndpoint       bool
	omitSettlementEndpoint bool
	rejectAuth             bool
	rejectTokenWith        int
	initiateStatusCode     int

	challengeFetches int32
	authSubmits      int32
	initiates        int32
	statusFetches    int32
}

func newFakeAnchor(t *testing.T) *fakeAnchor {
	t.Helper()

	a := &fakeAnchor{
		status:       payd.SettlementPendingSender,
		settlementID: "anchor-tx-1",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/stellar.toml", a.handleToml)
	mux.HandleFunc("/auth", a.handleAuth)
	mux.HandleFunc("/sep31/info", a.handleInfo)
	mux.HandleFunc("/sep31/transactions", a.handleInitiate)
	mux.HandleFunc("/sep31/transactions/", a.handleStatus)

	a.server = httptest.NewServer(mux)
	t.Cleanup(a.server.Close)
	return a
}

// domain returns the value callers pass as the anchor home domain.
func (a *fakeAnchor) domain() string {
	return a.server.URL
}

func (a *fakeAnchor) setStatus(status payd.SettlementStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = status
}

func (a *fakeAnchor) handleToml(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	omitAuth := a.omitAuthEndpoint
	omitSettlement := a.omitSettlementEndpoint
	a.mu.Unlock()

	fmt.Fprintf(w, "NETWORK_PASSPHRASE = %q\n", testPassphrase)
	fmt.Fprintf(w, "SIGNING_KEY = %q\n", testAccount)
	if !omitAuth {
		fmt.Fprintf(w, "WEB_AUTH_ENDPOINT = %q\n", a.server.URL+"/auth")
	}
	if !omitSettlement {
		fmt.Fprintf(w, "TRANSFER_SERVER_SEP0031 = %q\n", a.server.URL+"/sep31")
	}
}

func (a *fakeAnchor) handleAuth(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		atomic.AddInt32(&a.challengeFetches, 1)
		json.NewEncoder(w).Encode(map[string]string{
			"transaction":        testChallenge,
			"network_passphrase": testPassphrase,
		})
	case http.MethodPost:
		atomic.AddInt32(&a.authSubmits, 1)
		a.mu.Lock()
		reject := a.rejectAuth
		a.mu.Unlock()
		if reject {
			w.WriteHeader(401)
			fmt.Fprint(w, `{"error":"invalid signature"}`)
			return
		}
		var body struct {
			Transaction string `json:"transaction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !strings.HasPrefix(body.Transaction, testChallenge) {
			w.WriteHeader(400)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": testToken})
	}
}

func (a *fakeAnchor) handleInfo(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, `{
		"receive": {
			"USDC": {
				"enabled": true,
				"fee_fixed": 0.5,
				"min_amount": 1,
				"max_amount": 10000,
				"fields": {"transaction": {"receiver_id": {"description": "receiving customer id"}}}
			},
			"EURC": {"enabled": false}
		}
	}`)
}

func (a *fakeAnchor) handleInitiate(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&a.initiates, 1)

	if r.Header.Get("Authorization") != "Bearer "+testToken {
		w.WriteHeader(401)
		return
	}

	a.mu.Lock()
	rejectWith := a.initiateStatusCode
	a.mu.Unlock()
	if rejectWith != 0 {
		w.WriteHeader(rejectWith)
		fmt.Fprint(w, `{"error":"customer not found"}`)
		return
	}

	var payload payd.PaymentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(400)
		return
	}

	a.mu.Lock()
	a.lastPayload = payload
	id := a.settlementID
	status := a.status
	a.mu.Unlock()

	w.WriteHeader(201)
	json.NewEncoder(w).Encode(payd.SettlementRecord{
		ID:               id,
		Status:           status,
		AmountIn:         payload.Amount,
		StellarAccountID: testAccount,
		StellarMemo:      "12345",
		StellarMemoType:  "id",
	})
}

func (a *fakeAnchor) handleStatus(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&a.statusFetches, 1)

	a.mu.Lock()
	rejectWith := a.rejectTokenWith
	a.mu.Unlock()
	if rejectWith != 0 {
		w.WriteHeader(rejectWith)
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+testToken {
		w.WriteHeader(403)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/sep31/transactions/")

	a.mu.Lock()
	status := a.status
	a.mu.Unlock()

	json.NewEncoder(w).Encode(map[string]payd.SettlementRecord{
		"transaction": {
			ID:     id,
			Status: status,
		},
	})
}

// testSigner returns a Signer whose signature is a recognizable suffix; the
// fake anchor accepts any envelope that still starts with its challenge.
func testSigner() payd.Signer {
	return signers.FromCallback(testAccount, func(ctx context.Context, xdr, networkPassphrase string) (string, error) {
		return xdr + "+signed:" + networkPassphrase, nil
	})
}

func newTestClient(t *testing.T, opts ...ClientOption) *Client {
	t.Helper()
	client, err := NewClient(testPassphrase, opts...)
	require.NoError(t, err)
	return client
}
