// Package simulate dry-runs signed transaction envelopes before they are
// broadcast, so failed payroll runs are caught before fees are spent.
//
// A simulation is an explicit two-step pipeline:
//
//  1. The Soroban RPC simulateTransaction method, a true dry run with no
//     on-chain side effects. If the RPC answers, its verdict is final.
//  2. If the RPC is unreachable or does not handle the envelope, the envelope
//     is posted to Horizon's live transaction resource. A 4xx response yields
//     structured result codes to humanize; a 2xx response means a live
//     submission occurred, which is reported as a warning rather than a
//     success of the dry run.
//
// Every result carries a human-readable title and description, even for
// unrecognized codes.
package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gildado/payd-go/core/net"
	"github.com/gildado/payd-go/errors"
)

// Severity classifies a simulation result.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Error is an individual error detail from a simulation failure.
type Error struct {
	// Code is the raw result code (e.g. tx_bad_seq, op_underfunded) or a
	// synthetic code such as rpc_error_<n>, simulation_error, network_error.
	Code string `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// OperationIndex is the index of the operation that triggered this error,
	// or nil for transaction-level errors.
	OperationIndex *int `json:"operationIndex,omitempty"`

	// Severity classifies this error.
	Severity Severity `json:"severity"`
}

// Result is the full outcome of a transaction simulation. It is immutable
// once produced; Success is true iff Errors is empty.
type Result struct {
	Success     bool      `json:"success"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Errors      []Error   `json:"errors"`
	EnvelopeXDR string    `json:"envelopeXdr"`
	SimulatedAt time.Time `json:"simulatedAt"`

	// Hash is the network-reported transaction hash, set only when the
	// fallback path performed a live submission.
	Hash string `json:"hash,omitempty"`

	// Fee is the charged fee in stroops, set only on live submission.
	Fee int64 `json:"fee,omitempty"`
}

// Simulator dry-runs envelopes against a Soroban RPC endpoint with a Horizon
// submission fallback. It is stateless per call and safe for concurrent use.
type Simulator struct {
	client     *net.Client
	rpcURL     string
	horizonURL string
	log        logrus.FieldLogger
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithLogger sets the structured logger for fallback events.
func WithLogger(log logrus.FieldLogger) SimulatorOption {
	return func(s *Simulator) {
		s.log = log
	}
}

// NewSimulator creates a Simulator for the given Soroban RPC and Horizon base
// URLs. It fails if the humanization table does not cover the documented
// result code list.
func NewSimulator(client *net.Client, rpcURL, horizonURL string, opts ...SimulatorOption) (*Simulator, error) {
	if err := validateCodeTable(); err != nil {
		return nil, errors.NewPaymentError(errors.CONFIG_INVALID, "incomplete error code table", err)
	}

	s := &Simulator{
		client:     client,
		rpcURL:     strings.TrimRight(rpcURL, "/"),
		horizonURL: strings.TrimRight(horizonURL, "/"),
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Simulate dry-runs a signed transaction envelope (base64 XDR) and returns a
// verdict. It never returns an error: every failure mode is folded into the
// Result with a human-readable title and description.
func (s *Simulator) Simulate(ctx context.Context, envelopeXDR string) *Result {
	simulatedAt := time.Now().UTC()

	if result, handled := s.simulateRPC(ctx, envelopeXDR, simulatedAt); handled {
		return result
	}

	return s.validateSubmission(ctx, envelopeXDR, simulatedAt)
}

// rpcRequest is the JSON-RPC 2.0 envelope for simulateTransaction. The
// method takes named params, so the request is built directly rather than
// through a positional-params client codec.
type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Transaction string `json:"transaction"`
}

type rpcResponse struct {
	Result *struct {
		Error           string `json:"error,omitempty"`
		TransactionData string `json:"transactionData,omitempty"`
		MinResourceFee  string `json:"minResourceFee,omitempty"`
	} `json:"result,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// simulateRPC runs the preferred dry-run path. The second return value
// reports whether the RPC produced a verdict; false means the caller must
// fall through to submission validation. An unreachable endpoint, a non-2xx
// response, or an undecodable body all fall through rather than failing the
// overall simulation.
func (s *Simulator) simulateRPC(ctx context.Context, envelopeXDR string, simulatedAt time.Time) (*Result, bool) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "simulateTransaction",
		Params:  rpcParams{Transaction: envelopeXDR},
	})
	if err != nil {
		return nil, false
	}

	resp, err := s.client.Post(ctx, s.rpcURL, bytes.NewReader(payload))
	if err != nil {
		s.log.WithError(err).Debug("rpc simulation unavailable, falling back to submission validation")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.log.WithField("status", resp.StatusCode).Debug("rpc simulation rejected, falling back to submission validation")
		return nil, false
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		s.log.WithError(err).Debug("rpc response undecodable, falling back to submission validation")
		return nil, false
	}

	// RPC-level error: the request itself was rejected.
	if rpcResp.Error != nil {
		return &Result{
			Success:     false,
			Severity:    SeverityError,
			Title:       "Simulation Failed",
			Description: rpcResp.Error.Message,
			Errors: []Error{{
				Code:     fmt.Sprintf("rpc_error_%d", rpcResp.Error.Code),
				Message:  rpcResp.Error.Message,
				Severity: SeverityError,
			}},
			EnvelopeXDR: envelopeXDR,
			SimulatedAt: simulatedAt,
		}, true
	}

	// Simulation-level error embedded in the result.
	if rpcResp.Result != nil && rpcResp.Result.Error != "" {
		errMsg := rpcResp.Result.Error
		code := "simulation_error"
		message := errMsg
		if matched := matchKnownCode(errMsg); matched != "" {
			code = matched
			message = humanizeErrorCode(matched)
		}

		return &Result{
			Success:     false,
			Severity:    SeverityError,
			Title:       "Transaction Would Fail",
			Description: message,
			Errors: []Error{{
				Code:     code,
				Message:  message,
				Severity: SeverityError,
			}},
			EnvelopeXDR: envelopeXDR,
			SimulatedAt: simulatedAt,
		}, true
	}

	// No error anywhere in the RPC result: the transaction would succeed.
	return &Result{
		Success:     true,
		Severity:    SeveritySuccess,
		Title:       "Simulation Passed",
		Description: "The transaction was simulated successfully. It is safe to submit to the network.",
		Errors:      []Error{},
		EnvelopeXDR: envelopeXDR,
		SimulatedAt: simulatedAt,
	}, true
}

// horizonTransactionError is the JSON body Horizon returns when a submitted
// transaction fails.
type horizonTransactionError struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title,omitempty"`
	Status int    `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
	Extras struct {
		EnvelopeXDR string `json:"envelope_xdr,omitempty"`
		ResultXDR   string `json:"result_xdr,omitempty"`
		ResultCodes struct {
			Transaction string   `json:"transaction,omitempty"`
			Operations  []string `json:"operations,omitempty"`
		} `json:"result_codes,omitempty"`
	} `json:"extras,omitempty"`
}

// validateSubmission is the fallback path: post the envelope to Horizon's
// live transaction resource and interpret the response. Horizon has no
// dedicated dry-run endpoint for classic transactions, so a 2xx here means a
// live submission actually occurred and is reported as a warning.
func (s *Simulator) validateSubmission(ctx context.Context, envelopeXDR string, simulatedAt time.Time) *Result {
	form := url.Values{}
	form.Set("tx", envelopeXDR)

	resp, err := s.client.PostForm(ctx, s.horizonURL+"/transactions", form)
	if err != nil {
		return unavailableResult(envelopeXDR, simulatedAt, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var txResult struct {
			Hash       string `json:"hash,omitempty"`
			FeeCharged string `json:"fee_charged,omitempty"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&txResult); err != nil {
			return unavailableResult(envelopeXDR, simulatedAt, err)
		}

		var fee int64
		if txResult.FeeCharged != "" {
			fee, _ = strconv.ParseInt(txResult.FeeCharged, 10, 64)
		}

		return &Result{
			Success:     true,
			Severity:    SeverityWarning,
			Title:       "Transaction Submitted",
			Description: "The transaction was submitted and accepted by the network. Note: this was a live submission, not just a simulation.",
			Errors:      []Error{},
			EnvelopeXDR: envelopeXDR,
			SimulatedAt: simulatedAt,
			Hash:        txResult.Hash,
			Fee:         fee,
		}
	}

	var errorBody horizonTransactionError
	if err := json.NewDecoder(resp.Body).Decode(&errorBody); err != nil {
		return unavailableResult(envelopeXDR, simulatedAt, err)
	}

	simErrors := parseSubmissionErrors(&errorBody)

	description := simErrors[0].Message
	if len(simErrors) > 1 {
		description = fmt.Sprintf("%d issues were detected that would cause this transaction to fail on-chain.", len(simErrors))
	}

	return &Result{
		Success:     false,
		Severity:    SeverityError,
		Title:       "Transaction Would Fail",
		Description: description,
		Errors:      simErrors,
		EnvelopeXDR: envelopeXDR,
		SimulatedAt: simulatedAt,
	}
}

// parseSubmissionErrors extracts structured errors from a Horizon error body.
// The transaction-level code comes first, followed by operation-level codes
// in operation order; op_success entries are skipped. If nothing structured
// is present, a single generic error is built from the body's free text.
func parseSubmissionErrors(body *horizonTransactionError) []Error {
	var out []Error

	codes := body.Extras.ResultCodes

	if codes.Transaction != "" {
		out = append(out, Error{
			Code:     codes.Transaction,
			Message:  humanizeErrorCode(codes.Transaction),
			Severity: SeverityError,
		})
	}

	for i, opCode := range codes.Operations {
		if opCode == "op_success" {
			continue
		}
		index := i
		out = append(out, Error{
			Code:           opCode,
			Message:        humanizeErrorCode(opCode),
			OperationIndex: &index,
			Severity:       SeverityError,
		})
	}

	if len(out) == 0 {
		message := body.Detail
		if message == "" {
			message = body.Title
		}
		if message == "" {
			message = "An unknown error occurred during simulation. Please try again."
		}
		out = append(out, Error{
			Code:     "unknown_error",
			Message:  message,
			Severity: SeverityError,
		})
	}

	return out
}

func unavailableResult(envelopeXDR string, simulatedAt time.Time, cause error) *Result {
	message := "Network error during simulation"
	if cause != nil {
		message = cause.Error()
	}

	return &Result{
		Success:     false,
		Severity:    SeverityError,
		Title:       "Simulation Unavailable",
		Description: fmt.Sprintf("Could not reach the Stellar network to simulate this transaction: %s", message),
		Errors: []Error{{
			Code:     "network_error",
			Message:  message,
			Severity: SeverityError,
		}},
		EnvelopeXDR: envelopeXDR,
		SimulatedAt: simulatedAt,
	}
}
