package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewCoreError(DISCOVERY_FAILED, "failed to fetch stellar.toml", cause)

	assert.Contains(t, err.Error(), "[core]")
	assert.Contains(t, err.Error(), "DISCOVERY_FAILED")
	assert.Contains(t, err.Error(), "failed to fetch stellar.toml")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := NewClientError(AUTH_REJECTED, "rejected", cause)

	assert.Equal(t, cause, err.Unwrap())
}

func TestLayersAssignedByConstructor(t *testing.T) {
	assert.Equal(t, "core", NewCoreError(NETWORK_ERROR, "", nil).Layer)
	assert.Equal(t, "client", NewClientError(TOKEN_EXPIRED, "", nil).Layer)
	assert.Equal(t, "fees", NewFeesError(FEE_STATS_FAILED, "", nil).Layer)
	assert.Equal(t, "payment", NewPaymentError(STORE_ERROR, "", nil).Layer)
}

func TestHasCode(t *testing.T) {
	err := NewClientError(TOKEN_EXPIRED, "stale", nil)

	assert.True(t, HasCode(err, TOKEN_EXPIRED))
	assert.False(t, HasCode(err, AUTH_REJECTED))
	assert.False(t, HasCode(fmt.Errorf("plain"), TOKEN_EXPIRED))
	assert.False(t, HasCode(nil, TOKEN_EXPIRED))
}

func TestAs(t *testing.T) {
	var target *PaydError

	require.True(t, As(NewCoreError(TRUSTLINE_MISSING, "no trustline", nil), &target))
	assert.Equal(t, TRUSTLINE_MISSING, target.Code)

	assert.False(t, As(fmt.Errorf("plain"), &target))
}

func TestWithContext(t *testing.T) {
	err := NewPaymentError(VALIDATION_FAILED, "bad payload", nil).
		WithContext("ref", "payroll-1").
		WithContext("domain", "anchor.example.com")

	assert.Equal(t, "payroll-1", err.Context["ref"])
	assert.Equal(t, "anchor.example.com", err.Context["domain"])
}
