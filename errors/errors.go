// Package errors defines the error taxonomy for the payd payment core.
//
// All payd errors are represented as PaydError, which provides:
//   - Code: Machine-readable error identifier
//   - Message: Human-readable error description
//   - Layer: Which component layer produced the error (core, client, fees, payment)
//   - Cause: Underlying error, if any
//   - Context: Additional error details (domain, settlement id, etc.)
//
// Error codes are organized by layer. Use the provided constructor functions
// (NewCoreError, NewClientError, etc.) to create properly typed errors with
// automatic layer assignment. Failures are never silently swallowed: every
// network or parse failure surfaces as a distinct, named error so the UI/CLI
// layers can render anchor-specific guidance.
package errors

import "fmt"

// Code is a machine-readable error identifier.
type Code string

// Error codes - Core Layer (discovery, transport, ledger lookups)
const (
	DISCOVERY_FAILED  Code = "DISCOVERY_FAILED"
	DISCOVERY_INVALID Code = "DISCOVERY_INVALID"
	NETWORK_ERROR     Code = "NETWORK_ERROR"
	ACCOUNT_NOT_FOUND Code = "ACCOUNT_NOT_FOUND"
	TRUSTLINE_MISSING Code = "TRUSTLINE_MISSING"
)

// Error codes - Client Layer (anchor authentication and settlement)
const (
	ANCHOR_UNSUPPORTED       Code = "ANCHOR_UNSUPPORTED"
	CHALLENGE_FETCH_FAILED   Code = "CHALLENGE_FETCH_FAILED"
	CHALLENGE_INVALID        Code = "CHALLENGE_INVALID"
	AUTH_REJECTED            Code = "AUTH_REJECTED"
	SIGNER_ERROR             Code = "SIGNER_ERROR"
	TOKEN_EXPIRED            Code = "TOKEN_EXPIRED"
	SETTLEMENT_REJECTED      Code = "SETTLEMENT_REJECTED"
	SETTLEMENT_STATUS_FAILED Code = "SETTLEMENT_STATUS_FAILED"
	CAPABILITIES_FAILED      Code = "CAPABILITIES_FAILED"
)

// Error codes - Fees Layer
const (
	FEE_STATS_FAILED Code = "FEE_STATS_FAILED"
)

// Error codes - Payment Layer (local orchestration, store, watcher)
const (
	CONFIG_INVALID    Code = "CONFIG_INVALID"
	VALIDATION_FAILED Code = "VALIDATION_FAILED"
	STORE_ERROR       Code = "STORE_ERROR"
	STATE_INVALID     Code = "STATE_INVALID"
	WATCH_ERROR       Code = "WATCH_ERROR"
)

// PaydError is the base error type for all payd errors.
type PaydError struct {
	Code    Code
	Message string
	Layer   string // "core", "client", "fees", "payment"
	Cause   error
	Context map[string]any
}

// Error returns a formatted error string.
func (e *PaydError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Layer, e.Code, e.Message)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error, enabling error chain inspection.
func (e *PaydError) Unwrap() error {
	return e.Cause
}

// NewCoreError creates a core layer error.
func NewCoreError(code Code, message string, cause error) *PaydError {
	return &PaydError{
		Code:    code,
		Message: message,
		Layer:   "core",
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// NewClientError creates a client layer error.
func NewClientError(code Code, message string, cause error) *PaydError {
	return &PaydError{
		Code:    code,
		Message: message,
		Layer:   "client",
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// NewFeesError creates a fees layer error.
func NewFeesError(code Code, message string, cause error) *PaydError {
	return &PaydError{
		Code:    code,
		Message: message,
		Layer:   "fees",
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// NewPaymentError creates a payment layer error.
func NewPaymentError(code Code, message string, cause error) *PaydError {
	return &PaydError{
		Code:    code,
		Message: message,
		Layer:   "payment",
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// WithContext attaches a key/value pair to the error's context and returns
// the error for chaining.
func (e *PaydError) WithContext(key string, value any) *PaydError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Is checks if the target error is a PaydError with the same code.
func (e *PaydError) Is(target error) bool {
	if target == nil {
		return false
	}
	other, ok := target.(*PaydError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// As checks if err is a PaydError and assigns it to target.
func As(err error, target **PaydError) bool {
	if err == nil {
		return false
	}
	if v, ok := err.(*PaydError); ok {
		*target = v
		return true
	}
	return false
}

// HasCode reports whether err is a PaydError carrying the given code.
func HasCode(err error, code Code) bool {
	var pe *PaydError
	if !As(err, &pe) {
		return false
	}
	return pe.Code == code
}
