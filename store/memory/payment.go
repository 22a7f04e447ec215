// Package memory provides in-memory implementations of store interfaces.
// The PaymentStore implementation uses a map guarded by a sync.RWMutex and is
// suitable for examples, testing, and single-process payroll runs without
// persistent storage requirements.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	payd "github.com/gildado/payd-go"
	"github.com/gildado/payd-go/errors"
)

// PaymentStore is an in-memory implementation of payd.PaymentStore.
// Payments are keyed by their local Ref; saving a duplicate Ref fails, which
// is what makes the store usable as the local duplicate-initiation guard.
type PaymentStore struct {
	payments map[string]*payd.Payment
	mu       sync.RWMutex
}

// NewPaymentStore creates a new in-memory payment store.
func NewPaymentStore() *PaymentStore {
	return &PaymentStore{
		payments: make(map[string]*payd.Payment),
	}
}

// Save persists a new payment record. Returns STORE_ERROR if a payment with
// the same Ref already exists.
func (s *PaymentStore) Save(ctx context.Context, payment *payd.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[payment.Ref]; exists {
		return errors.NewPaymentError(errors.STORE_ERROR, "payment with this reference already exists", nil)
	}

	clone := *payment
	s.payments[payment.Ref] = &clone
	return nil
}

// FindByRef retrieves a payment by its local reference.
func (s *PaymentStore) FindByRef(ctx context.Context, ref string) (*payd.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payment, exists := s.payments[ref]
	if !exists {
		return nil, errors.NewPaymentError(errors.STORE_ERROR, "payment not found", nil)
	}

	clone := *payment
	return &clone, nil
}

// Update applies partial updates to an existing payment. A State change is
// validated against the payment lifecycle state machine before it is applied.
func (s *PaymentStore) Update(ctx context.Context, ref string, update *payd.PaymentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, exists := s.payments[ref]
	if !exists {
		return errors.NewPaymentError(errors.STORE_ERROR, "payment not found", nil)
	}

	if update.State != nil {
		if err := payd.ValidateStateTransition(payment.State, *update.State); err != nil {
			return err
		}
		payment.State = *update.State
	}
	if update.SettlementID != nil {
		payment.SettlementID = *update.SettlementID
	}
	if update.RemoteStatus != nil {
		payment.RemoteStatus = *update.RemoteStatus
	}
	if update.EnvelopeXDR != nil {
		payment.EnvelopeXDR = *update.EnvelopeXDR
	}
	if update.FeeStroops != nil {
		payment.FeeStroops = *update.FeeStroops
	}
	if update.Message != nil {
		payment.Message = *update.Message
	}
	if update.CompletedAt != nil {
		payment.CompletedAt = update.CompletedAt
	}
	payment.UpdatedAt = time.Now()

	return nil
}

// List returns payments matching the given filters, ordered by creation time
// descending.
func (s *PaymentStore) List(ctx context.Context, filters payd.PaymentFilters) ([]*payd.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*payd.Payment
	for _, payment := range s.payments {
		if filters.Domain != "" && payment.Domain != filters.Domain {
			continue
		}
		if filters.State != nil && payment.State != *filters.State {
			continue
		}
		clone := *payment
		matched = append(matched, &clone)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return []*payd.Payment{}, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}

	return matched, nil
}

// Compile-time interface check
var _ payd.PaymentStore = (*PaymentStore)(nil)
