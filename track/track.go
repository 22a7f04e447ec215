// Package track watches initiated settlements for anchor-reported status
// changes and surfaces them through typed handlers with filtering. It polls
// the anchor's SEP-31 transaction resource for every tracked settlement,
// backs off per settlement on fetch failures, and stops tracking a settlement
// once it reaches a terminal status.
//
// Example usage:
//
//	w := track.NewWatcher(
//	    track.WithInterval(5*time.Second),
//	)
//
//	w.OnStatusChange(func(evt track.SettlementEvent) error {
//	    log.Printf("payment %s: %s -> %s", evt.Ref, evt.OldStatus, evt.NewStatus)
//	    return nil
//	}, track.WithTerminal())
//
//	w.Track(receipt.Process())
//
//	ctx := context.Background()
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
package track

import (
	payd "github.com/gildado/payd-go"
)

// SettlementEvent represents an observed change in a settlement's
// anchor-reported status.
type SettlementEvent struct {
	// Ref is the local payment reference.
	Ref string

	// ID is the anchor-assigned SEP-31 transaction id.
	ID string

	// Domain is the anchor home domain the settlement runs through.
	Domain string

	// OldStatus is the status before the change.
	OldStatus payd.SettlementStatus

	// NewStatus is the status after the change.
	NewStatus payd.SettlementStatus

	// Record is the full settlement record as reported by the anchor.
	Record *payd.SettlementRecord
}

// EventHandler is a user-supplied function that processes a SettlementEvent.
// Handlers are called sequentially for each event that matches registered
// filters. If the handler returns an error, the error is logged but watching
// continues.
type EventHandler func(SettlementEvent) error

// EventFilter determines whether a SettlementEvent should be processed by a
// handler. Return true to allow the event, false to skip it.
type EventFilter func(SettlementEvent) bool

// handlerEntry pairs a handler with its filters
type handlerEntry struct {
	handler EventHandler
	filters []EventFilter
}

// Common filter constructors

// WithDomain returns an EventFilter that matches settlements running through
// a specific anchor domain.
func WithDomain(domain string) EventFilter {
	return func(evt SettlementEvent) bool {
		return evt.Domain == domain
	}
}

// WithStatus returns an EventFilter that matches changes into a specific
// anchor-reported status.
func WithStatus(status payd.SettlementStatus) EventFilter {
	return func(evt SettlementEvent) bool {
		return evt.NewStatus == status
	}
}

// WithTerminal returns an EventFilter that matches changes into any known
// terminal status (completed, refunded, expired, error).
func WithTerminal() EventFilter {
	return func(evt SettlementEvent) bool {
		return evt.NewStatus.IsTerminal()
	}
}

// WithRef returns an EventFilter that matches a single tracked payment.
func WithRef(ref string) EventFilter {
	return func(evt SettlementEvent) bool {
		return evt.Ref == ref
	}
}
