package payd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gildado/payd-go/errors"
)

func TestValidateStateTransitionLegalPaths(t *testing.T) {
	legal := []struct {
		from, to PaymentState
	}{
		{StateInitiating, StateSimulating},
		{StateInitiating, StateSubmitted},
		{StateInitiating, StateAbandoned},
		{StateSimulating, StateSimulated},
		{StateSimulating, StateAbandoned},
		{StateSimulated, StateSubmitted},
		{StateSubmitted, StateSettling},
		{StateSubmitted, StateCompleted},
		{StateSettling, StateCompleted},
		{StateSettling, StateFailed},
	}

	for _, tc := range legal {
		assert.NoError(t, ValidateStateTransition(tc.from, tc.to),
			"expected %s -> %s to be legal", tc.from, tc.to)
	}
}

func TestValidateStateTransitionIllegalPaths(t *testing.T) {
	illegal := []struct {
		from, to PaymentState
	}{
		{StateInitiating, StateSettling},
		{StateSimulating, StateSubmitted},
		{StateSubmitted, StateAbandoned},
		{StateCompleted, StateSettling},
		{StateFailed, StateInitiating},
		{StateAbandoned, StateSubmitted},
	}

	for _, tc := range illegal {
		err := ValidateStateTransition(tc.from, tc.to)
		require.Error(t, err, "expected %s -> %s to be illegal", tc.from, tc.to)
		assert.True(t, errors.HasCode(err, errors.STATE_INVALID))
	}
}

func TestValidateStateTransitionUnknownSource(t *testing.T) {
	err := ValidateStateTransition(PaymentState("bogus"), StateCompleted)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.STATE_INVALID))
}

func TestPaymentStateIsTerminal(t *testing.T) {
	assert.True(t, StateCompleted.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.True(t, StateAbandoned.IsTerminal())
	assert.False(t, StateInitiating.IsTerminal())
	assert.False(t, StateSettling.IsTerminal())
}

func TestSettlementStatusIsTerminal(t *testing.T) {
	assert.True(t, SettlementCompleted.IsTerminal())
	assert.True(t, SettlementRefunded.IsTerminal())
	assert.True(t, SettlementExpired.IsTerminal())
	assert.True(t, SettlementError.IsTerminal())
	assert.False(t, SettlementPendingSender.IsTerminal())

	// Unknown statuses keep polling.
	assert.False(t, SettlementStatus("pending_anchor_custom").IsTerminal())
}

func TestReuseWhileFresh(t *testing.T) {
	policy := ReuseWhileFresh(time.Hour)
	assert.True(t, policy.Reusable(time.Now().Add(-time.Minute)))
	assert.False(t, policy.Reusable(time.Now().Add(-2*time.Hour)))
}
