// Package payd is the payment core of the PayD payroll application.
// It discovers a financial anchor's service endpoints (SEP-1), authenticates
// with the anchor via challenge-response (SEP-10), initiates and tracks
// cross-border settlements (SEP-31), recommends network fees, and dry-runs
// transaction envelopes before they are ever broadcast.
//
// Key signing, wallet storage, and employee/organization persistence are
// deliberately outside this module. The caller provides a Signer; payd uses it.
package payd

import (
	"context"
	"time"
)

// Signer is the minimal contract for proving identity and authorizing actions.
// payd does not manage keys, wallet connections, or signing infrastructure.
type Signer interface {
	// PublicKey returns the Stellar address (G...) identifying this signer.
	PublicKey() string

	// SignTransaction signs a Stellar transaction envelope (base64 XDR).
	// The networkPassphrase is required for computing the correct transaction hash.
	// Returns the signed envelope as base64 XDR.
	SignTransaction(ctx context.Context, xdr string, networkPassphrase string) (string, error)
}

// PaymentPayload is the caller-constructed body of a SEP-31 settlement
// request. It is passed through to the anchor unmodified apart from JSON
// encoding.
type PaymentPayload struct {
	// Amount is the payment amount as a decimal string (e.g., "125.50").
	Amount string `json:"amount" validate:"required"`

	// AssetCode identifies the asset being sent (e.g., "USDC").
	AssetCode string `json:"asset_code" validate:"required"`

	// ReceiverID identifies the receiving customer at the anchor.
	ReceiverID string `json:"receiver_id" validate:"required"`

	// Memo is an optional memo attached to the settlement.
	Memo string `json:"memo,omitempty"`

	// Fields carries any per-anchor required fields from the /info capability
	// document (sender/receiver KYC fields and the like).
	Fields map[string]any `json:"fields,omitempty"`
}

// SettlementStatus is the anchor-reported status of a settlement. Anchors are
// free to report statuses beyond the known set, so this is a named string
// rather than an enum; unknown values must be passed through untouched.
type SettlementStatus string

// Known SEP-31 settlement statuses. The list is documented, not exhaustive.
const (
	SettlementPendingSender   SettlementStatus = "pending_sender"
	SettlementPendingStellar  SettlementStatus = "pending_stellar"
	SettlementPendingInfo     SettlementStatus = "pending_transaction_info_update"
	SettlementPendingReceiver SettlementStatus = "pending_receiver"
	SettlementPendingExternal SettlementStatus = "pending_external"
	SettlementCompleted       SettlementStatus = "completed"
	SettlementRefunded        SettlementStatus = "refunded"
	SettlementExpired         SettlementStatus = "expired"
	SettlementError           SettlementStatus = "error"
)

// IsTerminal reports whether the status is one of the known terminal states.
// Unknown statuses are treated as non-terminal so polling continues.
func (s SettlementStatus) IsTerminal() bool {
	switch s {
	case SettlementCompleted, SettlementRefunded, SettlementExpired, SettlementError:
		return true
	default:
		return false
	}
}

// SettlementRecord is the anchor's view of a settlement, as returned by the
// SEP-31 transaction resources.
type SettlementRecord struct {
	ID               string           `json:"id"`
	Status           SettlementStatus `json:"status"`
	StatusETA        int              `json:"status_eta,omitempty"`
	AmountIn         string           `json:"amount_in,omitempty"`
	AmountInAsset    string           `json:"amount_in_asset,omitempty"`
	AmountOut        string           `json:"amount_out,omitempty"`
	AmountOutAsset   string           `json:"amount_out_asset,omitempty"`
	AmountFee        string           `json:"amount_fee,omitempty"`
	StellarAccountID string           `json:"stellar_account_id,omitempty"`
	StellarMemo      string           `json:"stellar_memo,omitempty"`
	StellarMemoType  string           `json:"stellar_memo_type,omitempty"`
	StellarTxID      string           `json:"stellar_transaction_id,omitempty"`
	ExternalTxID     string           `json:"external_transaction_id,omitempty"`
	StartedAt        time.Time        `json:"started_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	Message          string           `json:"message,omitempty"`
}

// Payment is the locally tracked record of a payroll payment. It is owned by
// the application, not the anchor: Ref is generated client-side before any
// network call and acts as the local duplicate-initiation guard.
type Payment struct {
	// Ref is the local payment reference, unique within the store.
	Ref string

	// Domain is the anchor home domain this payment settles through.
	Domain string

	// SettlementID is the anchor-assigned SEP-31 transaction id, set once
	// the settlement has been initiated.
	SettlementID string

	// State is the local lifecycle state, managed by the payment state
	// machine; never set directly by the application.
	State PaymentState

	// RemoteStatus mirrors the last anchor-reported settlement status.
	RemoteStatus SettlementStatus

	Payload     PaymentPayload
	EnvelopeXDR string
	FeeStroops  int64
	Message     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// PaymentUpdate contains the mutable fields for a payment update.
// Only non-nil fields are applied. State changes go through the lifecycle
// state machine.
type PaymentUpdate struct {
	State        *PaymentState
	SettlementID *string
	RemoteStatus *SettlementStatus
	EnvelopeXDR  *string
	FeeStroops   *int64
	Message      *string
	CompletedAt  *time.Time
}

// PaymentFilters narrows List results.
type PaymentFilters struct {
	Domain string
	State  *PaymentState
	Limit  int
	Offset int
}

// PaymentStore is the persistence interface for locally tracked payments.
// The module ships an in-memory implementation; the application may implement
// this against its own database.
type PaymentStore interface {
	// Save persists a new payment record. Saving a duplicate Ref must fail:
	// this is the at-most-once guard against duplicate settlement initiation.
	Save(ctx context.Context, payment *Payment) error

	// FindByRef retrieves a payment by its local reference.
	FindByRef(ctx context.Context, ref string) (*Payment, error)

	// Update applies partial updates to an existing payment.
	Update(ctx context.Context, ref string, update *PaymentUpdate) error

	// List returns payments matching the given filters, ordered by creation
	// time descending.
	List(ctx context.Context, filters PaymentFilters) ([]*Payment, error)
}

// TokenPolicy decides whether a cached anchor bearer token may still be used.
// Anchors do not advertise token lifetimes in a uniform way, so the refresh
// policy is explicit and injectable rather than guessed.
type TokenPolicy interface {
	// Reusable reports whether a token obtained at obtainedAt is still
	// acceptable for authenticated calls.
	Reusable(obtainedAt time.Time) bool
}

// TokenPolicyFunc adapts a function to the TokenPolicy interface.
type TokenPolicyFunc func(obtainedAt time.Time) bool

// Reusable implements TokenPolicy.
func (f TokenPolicyFunc) Reusable(obtainedAt time.Time) bool {
	return f(obtainedAt)
}

// ReuseWhileFresh returns a TokenPolicy that reuses a token for maxAge after
// it was obtained and forces re-authentication afterwards.
func ReuseWhileFresh(maxAge time.Duration) TokenPolicy {
	return TokenPolicyFunc(func(obtainedAt time.Time) bool {
		return time.Since(obtainedAt) < maxAge
	})
}

// AccountChecker verifies that a payment destination can actually receive the
// asset before fees are spent. Implementations query the ledger; tests stub it.
type AccountChecker interface {
	// CheckRecipient returns an error if the account does not exist or lacks
	// a trustline for the given non-native asset code.
	CheckRecipient(ctx context.Context, accountID, assetCode string) error
}
