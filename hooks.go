package payd

import "sync"

// HookEvent represents a named payment lifecycle event.
type HookEvent string

// Lifecycle events the application can subscribe to.
const (
	HookPaymentInitiated     HookEvent = "payment:initiated"
	HookPaymentSimulated     HookEvent = "payment:simulated"
	HookPaymentSubmitted     HookEvent = "payment:submitted"
	HookPaymentStatusChanged HookEvent = "payment:status_changed"
	HookPaymentCompleted     HookEvent = "payment:completed"
	HookPaymentFailed        HookEvent = "payment:failed"
)

// HookRegistry manages lifecycle event handlers for payment state changes.
// Handlers are stored per event and execute sequentially in registration
// order. The registry is safe for concurrent registration and triggering.
type HookRegistry struct {
	handlers map[HookEvent][]func(*Payment)
	mu       sync.RWMutex
}

// NewHookRegistry creates a new lifecycle hook registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{
		handlers: make(map[HookEvent][]func(*Payment)),
	}
}

// On registers a handler for a specific lifecycle event. Multiple handlers
// may be registered for the same event; they execute in registration order.
// Handlers should be quick, non-blocking operations.
func (r *HookRegistry) On(event HookEvent, handler func(*Payment)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = append(r.handlers[event], handler)
}

// Trigger executes all registered handlers for the event, passing the payment
// that triggered it.
func (r *HookRegistry) Trigger(event HookEvent, payment *Payment) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, handler := range r.handlers[event] {
		handler(payment)
	}
}
