package sdk

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	payd "github.com/gildado/payd-go"
	"github.com/gildado/payd-go/errors"
)

func login(t *testing.T, client *Client, anchor *fakeAnchor) *Session {
	t.Helper()
	session, err := client.Login(context.Background(), testAccount, anchor.domain(), testSigner())
	require.NoError(t, err)
	return session
}

func TestCapabilities(t *testing.T) {
	anchor := newFakeAnchor(t)
	client := newTestClient(t)

	info, err := client.Capabilities(context.Background(), anchor.domain())
	require.NoError(t, err)

	usdc, ok := info.Receive["USDC"]
	require.True(t, ok)
	assert.True(t, usdc.Enabled)
	assert.Equal(t, 0.5, usdc.FeeFixed)
	assert.Equal(t, float64(1), usdc.MinAmount)
	assert.Equal(t, float64(10000), usdc.MaxAmount)
	assert.NotEmpty(t, usdc.Fields)

	eurc, ok := info.Receive["EURC"]
	require.True(t, ok)
	assert.False(t, eurc.Enabled)
}

func TestCapabilitiesUnsupportedAnchor(t *testing.T) {
	anchor := newFakeAnchor(t)
	anchor.omitSettlementEndpoint = true
	client := newTestClient(t)

	_, err := client.Capabilities(context.Background(), anchor.domain())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ANCHOR_UNSUPPORTED))
}

func TestInitiateSettlement(t *testing.T) {
	anchor := newFakeAnchor(t)
	client := newTestClient(t)
	session := login(t, client, anchor)

	record, err := client.InitiateSettlement(context.Background(), session, payd.PaymentPayload{
		Amount:     "125.50",
		AssetCode:  "USDC",
		ReceiverID: "recv-9",
		Memo:       "salary march",
	})
	require.NoError(t, err)

	assert.Equal(t, "anchor-tx-1", record.ID)
	assert.Equal(t, payd.SettlementPendingSender, record.Status)
	assert.Equal(t, "125.50", record.AmountIn)
	assert.Equal(t, testAccount, record.StellarAccountID)

	// The payload reached the anchor unmodified.
	assert.Equal(t, "125.50", anchor.lastPayload.Amount)
	assert.Equal(t, "USDC", anchor.lastPayload.AssetCode)
	assert.Equal(t, "recv-9", anchor.lastPayload.ReceiverID)
	assert.Equal(t, "salary march", anchor.lastPayload.Memo)
}

func TestInitiateSettlementValidatesPayload(t *testing.T) {
	anchor := newFakeAnchor(t)
	client := newTestClient(t)
	session := login(t, client, anchor)

	_, err := client.InitiateSettlement(context.Background(), session, payd.PaymentPayload{
		Amount: "125.50",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.VALIDATION_FAILED))
	assert.Equal(t, int32(0), atomic.LoadInt32(&anchor.initiates))
}

func TestInitiateSettlementExpiredToken(t *testing.T) {
	anchor := newFakeAnchor(t)
	client := newTestClient(t)
	session := login(t, client, anchor)
	session.Token = "stale-token"

	_, err := client.InitiateSettlement(context.Background(), session, payd.PaymentPayload{
		Amount:     "10",
		AssetCode:  "USDC",
		ReceiverID: "recv-1",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.TOKEN_EXPIRED))
}

func TestInitiateSettlementRejected(t *testing.T) {
	anchor := newFakeAnchor(t)
	anchor.initiateStatusCode = 400
	client := newTestClient(t)
	session := login(t, client, anchor)

	_, err := client.InitiateSettlement(context.Background(), session, payd.PaymentPayload{
		Amount:     "10",
		AssetCode:  "USDC",
		ReceiverID: "recv-1",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.SETTLEMENT_REJECTED))
	assert.Contains(t, err.Error(), "customer not found")
}

func TestSettlementStatusDecodesWrapper(t *testing.T) {
	anchor := newFakeAnchor(t)
	anchor.setStatus(payd.SettlementPendingReceiver)
	client := newTestClient(t)
	session := login(t, client, anchor)

	record, err := client.SettlementStatus(context.Background(), session, "anchor-tx-1")
	require.NoError(t, err)
	assert.Equal(t, "anchor-tx-1", record.ID)
	assert.Equal(t, payd.SettlementPendingReceiver, record.Status)

	// Status fetches are idempotent and repeatable.
	again, err := client.SettlementStatus(context.Background(), session, "anchor-tx-1")
	require.NoError(t, err)
	assert.Equal(t, record.ID, again.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&anchor.statusFetches))
}

func TestSettlementStatusExpiredToken(t *testing.T) {
	anchor := newFakeAnchor(t)
	anchor.rejectTokenWith = 403
	client := newTestClient(t)
	session := login(t, client, anchor)

	_, err := client.SettlementStatus(context.Background(), session, "anchor-tx-1")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.TOKEN_EXPIRED))
}
