package payd

import (
	"fmt"

	"github.com/gildado/payd-go/errors"
)

// PaymentState is the local lifecycle state of a tracked payment. It is
// distinct from the anchor-reported SettlementStatus: the anchor's status is
// free text owned by the remote service, while PaymentState is owned by this
// module and advances through a fixed state machine.
type PaymentState string

const (
	// StateInitiating is the initial state when a payment is first recorded.
	StateInitiating PaymentState = "initiating"

	// StateSimulating means a pre-submission dry run is in progress.
	StateSimulating PaymentState = "simulating"

	// StateSimulated means the dry run passed and the payment is ready to submit.
	StateSimulated PaymentState = "simulated"

	// StateSubmitted means the settlement request was accepted by the anchor.
	StateSubmitted PaymentState = "submitted"

	// StateSettling means the anchor is processing the off-network leg.
	StateSettling PaymentState = "settling"

	// StateCompleted is a terminal state indicating successful settlement.
	StateCompleted PaymentState = "completed"

	// StateFailed is a terminal state indicating an unrecoverable error.
	StateFailed PaymentState = "failed"

	// StateAbandoned is a terminal state for payments dropped before submission,
	// typically because simulation reported the transaction would fail.
	StateAbandoned PaymentState = "abandoned"
)

// legalStateTransitions defines the allowed local lifecycle transitions.
// Terminal states (completed, failed, abandoned) have no outgoing transitions.
var legalStateTransitions = map[PaymentState]map[PaymentState]bool{
	StateInitiating: {
		StateSimulating: true,
		StateSubmitted:  true,
		StateFailed:     true,
		StateAbandoned:  true,
	},
	StateSimulating: {
		StateSimulated: true,
		StateFailed:    true,
		StateAbandoned: true,
	},
	StateSimulated: {
		StateSubmitted: true,
		StateFailed:    true,
		StateAbandoned: true,
	},
	StateSubmitted: {
		StateSettling:  true,
		StateCompleted: true,
		StateFailed:    true,
	},
	StateSettling: {
		StateCompleted: true,
		StateFailed:    true,
	},
	StateCompleted: {},
	StateFailed:    {},
	StateAbandoned: {},
}

// IsTerminal reports whether the state has no outgoing transitions.
func (s PaymentState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateAbandoned:
		return true
	default:
		return false
	}
}

// ValidateStateTransition checks whether a local lifecycle transition from
// "from" to "to" is legal. Returns nil if the transition is valid, or an
// error with code STATE_INVALID otherwise.
func ValidateStateTransition(from, to PaymentState) error {
	validToStates, exists := legalStateTransitions[from]
	if !exists {
		return errors.NewPaymentError(
			errors.STATE_INVALID,
			fmt.Sprintf("unknown source state: %s", from),
			nil,
		)
	}

	if !validToStates[to] {
		return errors.NewPaymentError(
			errors.STATE_INVALID,
			fmt.Sprintf("illegal transition from %s to %s", from, to),
			nil,
		)
	}

	return nil
}
