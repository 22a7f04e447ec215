package sdk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	payd "github.com/gildado/payd-go"
	"github.com/gildado/payd-go/core/crypto"
	"github.com/gildado/payd-go/errors"
	"github.com/gildado/payd-go/fees"
	"github.com/gildado/payd-go/simulate"
)

const refLength = 16

// SendPaymentRequest describes a single payroll payment to send through an
// anchor.
type SendPaymentRequest struct {
	// Domain is the anchor home domain to settle through.
	Domain string

	// Account is the sending Stellar account (G...). Defaults to the
	// signer's public key when empty.
	Account string

	// Signer authorizes the SEP-10 challenge for this payment.
	Signer payd.Signer

	// Payload is the SEP-31 settlement body.
	Payload payd.PaymentPayload

	// Ref overrides the generated local payment reference. Reusing a Ref
	// that was already saved fails before any network call, which is the
	// duplicate-initiation guard for payroll retries.
	Ref string

	// EnvelopeXDR, when set, is dry-run simulated before the settlement is
	// initiated. A failing simulation abandons the payment.
	EnvelopeXDR string

	// SkipRecipientCheck bypasses the ledger-side recipient validation even
	// when an AccountChecker is configured.
	SkipRecipientCheck bool

	// RecipientAccount is the destination Stellar account used for the
	// recipient check. Ignored when empty or when the check is skipped.
	RecipientAccount string
}

// PaymentReceipt is the immediate result of SendPayment: the stored local
// record, the anchor's settlement record, and the advisory data gathered on
// the way. Process tracks the settlement to completion.
type PaymentReceipt struct {
	Payment    *payd.Payment
	Settlement *payd.SettlementRecord
	Fee        *fees.Recommendation
	Simulation *simulate.Result

	process *SettlementProcess
}

// Process returns a tracker for the initiated settlement.
func (r *PaymentReceipt) Process() *SettlementProcess {
	return r.process
}

// SendPayment runs the full pre-submission pipeline for one payment:
//
//  1. Validates the payload and records the payment locally (duplicate Ref
//     fails here, before any network call)
//  2. Resolves the anchor's endpoints and optionally checks the recipient
//     account on the ledger
//  3. Dry-runs the envelope when one is provided; a failing dry run abandons
//     the payment and returns the simulation result in the receipt
//  4. Attaches a fee recommendation when the advisor is configured
//  5. Authenticates (reusing a cached token when the policy allows) and
//     initiates the SEP-31 settlement
//
// Each network step is a single attempt. On failure the local record is moved
// to a terminal state and the error carries the payment Ref in its context.
func (c *Client) SendPayment(ctx context.Context, req SendPaymentRequest) (*PaymentReceipt, error) {
	if req.Signer == nil {
		return nil, errors.NewPaymentError(errors.CONFIG_INVALID, "a signer is required", nil)
	}
	if req.Domain == "" {
		return nil, errors.NewPaymentError(errors.CONFIG_INVALID, "an anchor domain is required", nil)
	}
	if err := c.validate.Struct(req.Payload); err != nil {
		return nil, errors.NewPaymentError(errors.VALIDATION_FAILED, "invalid payment payload", err)
	}

	account := req.Account
	if account == "" {
		account = req.Signer.PublicKey()
	}

	ref := req.Ref
	if ref == "" {
		generated, err := crypto.GenerateRef(refLength)
		if err != nil {
			return nil, errors.NewPaymentError(errors.STORE_ERROR, "failed to generate payment reference", err)
		}
		ref = generated
	}

	now := time.Now()
	payment := &payd.Payment{
		Ref:         ref,
		Domain:      req.Domain,
		State:       payd.StateInitiating,
		Payload:     req.Payload,
		EnvelopeXDR: req.EnvelopeXDR,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.store.Save(ctx, payment); err != nil {
		return nil, err
	}
	c.hooks.Trigger(payd.HookPaymentInitiated, payment)

	receipt := &PaymentReceipt{Payment: payment}

	fail := func(cause error) (*PaymentReceipt, error) {
		c.transition(ctx, payment, payd.StateFailed, cause.Error())
		c.hooks.Trigger(payd.HookPaymentFailed, payment)
		var pe *errors.PaydError
		if errors.As(cause, &pe) {
			pe.WithContext("ref", payment.Ref)
		}
		return receipt, cause
	}

	if _, err := c.resolver.Resolve(ctx, req.Domain); err != nil {
		return fail(err)
	}

	if c.accountChecker != nil && !req.SkipRecipientCheck && req.RecipientAccount != "" {
		if err := c.accountChecker.CheckRecipient(ctx, req.RecipientAccount, req.Payload.AssetCode); err != nil {
			return fail(err)
		}
	}

	if req.EnvelopeXDR != "" && c.simulator != nil {
		c.transition(ctx, payment, payd.StateSimulating, "")

		result := c.simulator.Simulate(ctx, req.EnvelopeXDR)
		receipt.Simulation = result
		if !result.Success && result.Severity == simulate.SeverityError {
			c.transition(ctx, payment, payd.StateAbandoned, result.Description)
			c.hooks.Trigger(payd.HookPaymentFailed, payment)
			return receipt, errors.NewPaymentError(
				errors.VALIDATION_FAILED,
				fmt.Sprintf("dry run failed for payment %s: %s", payment.Ref, summarizeSimulation(result)),
				nil,
			)
		}

		c.transition(ctx, payment, payd.StateSimulated, "")
		c.hooks.Trigger(payd.HookPaymentSimulated, payment)
	}

	if c.feeAdvisor != nil {
		rec, err := c.feeAdvisor.Recommendation(ctx)
		if err != nil {
			// Fee advice is advisory; the payment proceeds without it.
			c.log.WithFields(logrus.Fields{
				"ref":   payment.Ref,
				"error": err.Error(),
			}).Warn("fee recommendation unavailable")
		} else {
			receipt.Fee = rec
			feeStroops := rec.RecommendedFee
			if err := c.store.Update(ctx, payment.Ref, &payd.PaymentUpdate{FeeStroops: &feeStroops}); err != nil {
				return fail(err)
			}
			payment.FeeStroops = feeStroops
		}
	}

	session, err := c.ensureSession(ctx, account, req.Domain, req.Signer)
	if err != nil {
		return fail(err)
	}

	record, err := c.InitiateSettlement(ctx, session, req.Payload)
	if err != nil {
		return fail(err)
	}
	receipt.Settlement = record

	submitted := payd.StateSubmitted
	update := &payd.PaymentUpdate{
		State:        &submitted,
		SettlementID: &record.ID,
		RemoteStatus: &record.Status,
	}
	if err := c.store.Update(ctx, payment.Ref, update); err != nil {
		return fail(err)
	}
	payment.State = submitted
	payment.SettlementID = record.ID
	payment.RemoteStatus = record.Status
	c.hooks.Trigger(payd.HookPaymentSubmitted, payment)

	c.log.WithFields(logrus.Fields{
		"ref":           payment.Ref,
		"domain":        req.Domain,
		"settlement_id": record.ID,
		"status":        record.Status,
	}).Info("settlement initiated")

	receipt.process = &SettlementProcess{
		client:  c,
		session: session,
		ref:     payment.Ref,
		id:      record.ID,
		status:  record.Status,
	}
	return receipt, nil
}

// transition moves the local record to a new state, updating the message when
// one is given. An illegal transition is a programming error here, so it is
// logged rather than returned.
func (c *Client) transition(ctx context.Context, payment *payd.Payment, to payd.PaymentState, message string) {
	update := &payd.PaymentUpdate{State: &to}
	if message != "" {
		update.Message = &message
	}
	if err := c.store.Update(ctx, payment.Ref, update); err != nil {
		c.log.WithFields(logrus.Fields{
			"ref":   payment.Ref,
			"from":  payment.State,
			"to":    to,
			"error": err.Error(),
		}).Error("payment state update failed")
		return
	}
	payment.State = to
	if message != "" {
		payment.Message = message
	}
}

func summarizeSimulation(result *simulate.Result) string {
	if len(result.Errors) == 0 {
		return result.Description
	}
	codes := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	return strings.Join(codes, ", ")
}

// SettlementProcess tracks an initiated settlement through to a terminal
// status, mirroring anchor-reported statuses into the local record.
type SettlementProcess struct {
	client  *Client
	session *Session
	ref     string
	id      string
	status  payd.SettlementStatus

	onChange func(old, new payd.SettlementStatus, record *payd.SettlementRecord)
}

// Ref returns the local payment reference being tracked.
func (p *SettlementProcess) Ref() string { return p.ref }

// SettlementID returns the anchor-assigned transaction id being tracked.
func (p *SettlementProcess) SettlementID() string { return p.id }

// Domain returns the anchor home domain the settlement runs through.
func (p *SettlementProcess) Domain() string { return p.session.Domain }

// Status returns the last observed anchor-reported status.
func (p *SettlementProcess) Status() payd.SettlementStatus { return p.status }

// OnStatusChange registers a callback invoked whenever Poll observes a status
// different from the last one.
func (p *SettlementProcess) OnStatusChange(fn func(old, new payd.SettlementStatus, record *payd.SettlementRecord)) {
	p.onChange = fn
}

// Poll fetches the current settlement record once and applies any status
// change to the local payment record.
func (p *SettlementProcess) Poll(ctx context.Context) (*payd.SettlementRecord, error) {
	record, err := p.client.SettlementStatus(ctx, p.session, p.id)
	if err != nil {
		return nil, err
	}

	if record.Status != p.status {
		old := p.status
		p.status = record.Status
		p.client.applyRemoteStatus(ctx, p.ref, record)
		if p.onChange != nil {
			p.onChange(old, record.Status, record)
		}
	}

	return record, nil
}

// WaitForCompletion polls the settlement until it reaches a terminal status
// or the context is cancelled. Polling runs at a one-second interval while
// the anchor answers; transient status-fetch failures do not abort the wait
// but back off exponentially up to thirty seconds, and a successful poll
// resets the interval.
func (p *SettlementProcess) WaitForCompletion(ctx context.Context) (*payd.SettlementRecord, error) {
	interval := time.Second
	const maxInterval = 30 * time.Second

	for {
		record, err := p.Poll(ctx)
		if err != nil {
			if errors.HasCode(err, errors.TOKEN_EXPIRED) {
				return nil, err
			}
			p.client.log.WithFields(logrus.Fields{
				"ref":   p.ref,
				"error": err.Error(),
			}).Warn("settlement poll failed, retrying")
		} else if record.Status.IsTerminal() {
			return record, nil
		} else {
			// A successful poll resets the backoff.
			interval = time.Second
		}

		select {
		case <-ctx.Done():
			return nil, errors.NewClientError(errors.SETTLEMENT_STATUS_FAILED, "settlement wait cancelled", ctx.Err())
		case <-time.After(interval):
		}

		if interval < maxInterval {
			interval *= 2
			if interval > maxInterval {
				interval = maxInterval
			}
		}
	}
}

// applyRemoteStatus mirrors an anchor-reported status into the local payment
// record and fires the matching lifecycle hooks.
func (c *Client) applyRemoteStatus(ctx context.Context, ref string, record *payd.SettlementRecord) {
	payment, err := c.store.FindByRef(ctx, ref)
	if err != nil {
		c.log.WithFields(logrus.Fields{"ref": ref, "error": err.Error()}).Error("payment lookup failed")
		return
	}
	if payment.State.IsTerminal() {
		return
	}

	update := &payd.PaymentUpdate{RemoteStatus: &record.Status}
	var event payd.HookEvent = payd.HookPaymentStatusChanged

	switch record.Status {
	case payd.SettlementCompleted:
		completed := payd.StateCompleted
		completedAt := time.Now()
		if record.CompletedAt != nil {
			completedAt = *record.CompletedAt
		}
		update.State = &completed
		update.CompletedAt = &completedAt
		event = payd.HookPaymentCompleted
	case payd.SettlementError, payd.SettlementExpired, payd.SettlementRefunded:
		failed := payd.StateFailed
		update.State = &failed
		if record.Message != "" {
			update.Message = &record.Message
		}
		event = payd.HookPaymentFailed
	default:
		if payment.State == payd.StateSubmitted {
			settling := payd.StateSettling
			update.State = &settling
		}
	}

	if err := c.store.Update(ctx, ref, update); err != nil {
		c.log.WithFields(logrus.Fields{"ref": ref, "error": err.Error()}).Error("payment status update failed")
		return
	}

	updated, err := c.store.FindByRef(ctx, ref)
	if err != nil {
		return
	}
	c.hooks.Trigger(event, updated)
}

// TrackPayment builds a SettlementProcess for a previously initiated payment,
// re-authenticating as needed. Useful after a restart when the original
// receipt is gone.
func (c *Client) TrackPayment(ctx context.Context, ref string, signer payd.Signer) (*SettlementProcess, error) {
	payment, err := c.store.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if payment.SettlementID == "" {
		return nil, errors.NewPaymentError(
			errors.STATE_INVALID,
			fmt.Sprintf("payment %s has no settlement to track", ref),
			nil,
		)
	}

	session, err := c.ensureSession(ctx, signer.PublicKey(), payment.Domain, signer)
	if err != nil {
		return nil, err
	}

	return &SettlementProcess{
		client:  c,
		session: session,
		ref:     payment.Ref,
		id:      payment.SettlementID,
		status:  payment.RemoteStatus,
	}, nil
}
