package track

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gildado/payd-go/errors"
	"github.com/gildado/payd-go/sdk"
)

// trackedSettlement carries the per-settlement polling state. Failed polls
// back off independently so one unreachable anchor does not slow the rest.
type trackedSettlement struct {
	process  *sdk.SettlementProcess
	backoff  time.Duration
	nextPoll time.Time
	terminal bool
}

// Watcher polls tracked settlements on an interval and dispatches status
// changes to registered handlers. Settlements are removed from the watch set
// once they reach a terminal status.
type Watcher struct {
	interval       time.Duration
	initialBackoff time.Duration
	maxBackoff     time.Duration
	log            logrus.FieldLogger

	mu       sync.RWMutex
	handlers []handlerEntry
	tracked  map[string]*trackedSettlement

	stopChan chan struct{}
	stopOnce sync.Once
	running  bool
}

// WatcherOption is a function that configures a Watcher.
type WatcherOption func(*Watcher)

// WithInterval sets the base polling interval. Default is 5s.
func WithInterval(interval time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.interval = interval
	}
}

// WithFailureBackoff sets the initial and maximum per-settlement backoff
// applied after a failed status fetch. Default is 1s initial, 60s max with
// exponential growth.
func WithFailureBackoff(initial, max time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.initialBackoff = initial
		w.maxBackoff = max
	}
}

// WithLogger sets the structured logger.
func WithLogger(log logrus.FieldLogger) WatcherOption {
	return func(w *Watcher) {
		w.log = log
	}
}

// NewWatcher creates a new settlement watcher.
func NewWatcher(opts ...WatcherOption) *Watcher {
	w := &Watcher{
		interval:       5 * time.Second,
		initialBackoff: 1 * time.Second,
		maxBackoff:     60 * time.Second,
		log:            logrus.StandardLogger(),
		tracked:        make(map[string]*trackedSettlement),
		stopChan:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// OnStatusChange registers a handler for settlement status changes with
// optional filters. Multiple handlers can be registered. Filters are ANDed
// together. Handlers are called sequentially for each matching event.
func (w *Watcher) OnStatusChange(handler EventHandler, filters ...EventFilter) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers = append(w.handlers, handlerEntry{
		handler: handler,
		filters: filters,
	})
}

// Track adds a settlement to the watch set. Tracking the same payment
// reference twice replaces the earlier entry. Settlements may be added while
// the watcher is running.
func (w *Watcher) Track(process *sdk.SettlementProcess) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tracked[process.Ref()] = &trackedSettlement{
		process: process,
		backoff: w.initialBackoff,
	}
}

// Untrack removes a settlement from the watch set.
func (w *Watcher) Untrack(ref string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.tracked, ref)
}

// Tracked returns the payment references currently being watched.
func (w *Watcher) Tracked() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	refs := make([]string, 0, len(w.tracked))
	for ref := range w.tracked {
		refs = append(refs, ref)
	}
	return refs
}

// Start begins polling the tracked settlements. This method blocks until the
// context is cancelled or Stop() is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.NewPaymentError(errors.WATCH_ERROR, "watcher already running", nil)
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.pollAll(ctx)
		}
	}
}

// Stop gracefully stops polling. It's safe to call Stop multiple times.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	return nil
}

// pollAll polls every due tracked settlement once and prunes finished ones.
func (w *Watcher) pollAll(ctx context.Context) {
	w.mu.RLock()
	due := make(map[string]*trackedSettlement, len(w.tracked))
	now := time.Now()
	for ref, entry := range w.tracked {
		if now.Before(entry.nextPoll) {
			continue
		}
		due[ref] = entry
	}
	w.mu.RUnlock()

	for ref, entry := range due {
		w.pollOne(ctx, ref, entry)
	}

	w.mu.Lock()
	for ref, entry := range w.tracked {
		if entry.terminal {
			delete(w.tracked, ref)
		}
	}
	w.mu.Unlock()
}

// pollOne fetches one settlement's status and dispatches a change event when
// the status moved.
func (w *Watcher) pollOne(ctx context.Context, ref string, entry *trackedSettlement) {
	oldStatus := entry.process.Status()

	record, err := entry.process.Poll(ctx)
	if err != nil {
		w.log.WithFields(logrus.Fields{
			"ref":     ref,
			"error":   err.Error(),
			"backoff": entry.backoff,
		}).Warn("settlement status fetch failed")

		entry.nextPoll = time.Now().Add(entry.backoff)
		entry.backoff = entry.backoff * 2
		if entry.backoff > w.maxBackoff {
			entry.backoff = w.maxBackoff
		}
		return
	}

	entry.backoff = w.initialBackoff
	entry.nextPoll = time.Time{}

	if record.Status.IsTerminal() {
		entry.terminal = true
	}

	if record.Status == oldStatus {
		return
	}

	w.dispatch(SettlementEvent{
		Ref:       ref,
		ID:        entry.process.SettlementID(),
		Domain:    entry.process.Domain(),
		OldStatus: oldStatus,
		NewStatus: record.Status,
		Record:    record,
	})
}

// dispatch runs all registered handlers for the event if it passes their
// filters.
func (w *Watcher) dispatch(evt SettlementEvent) {
	w.mu.RLock()
	handlers := w.handlers
	w.mu.RUnlock()

	for _, entry := range handlers {
		passesFilters := true
		for _, filter := range entry.filters {
			if !filter(evt) {
				passesFilters = false
				break
			}
		}
		if !passesFilters {
			continue
		}

		if err := entry.handler(evt); err != nil {
			w.log.WithFields(logrus.Fields{
				"ref":   evt.Ref,
				"error": err.Error(),
			}).Warn("settlement event handler failed")
		}
	}
}
