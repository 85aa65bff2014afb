package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/five82/cohort/internal/docstore"
)

// suspendThreshold transient errors on one listener suspend it.
const suspendThreshold = 2

// listenerState is the per-subscription state machine.
type listenerState int32

const (
	stateActive listenerState = iota
	stateTerminated
	stateSuspended
	stateCancelled
)

func (s listenerState) String() string {
	switch s {
	case stateActive:
		return "active"
	case stateTerminated:
		return "terminated"
	case stateSuspended:
		return "suspended"
	default:
		return "cancelled"
	}
}

// listener wraps one backend subscription. Backend events are processed
// under mu so a listener never runs two handlers at once; Cancel never takes
// mu, so the registry can cancel while a handler is running.
type listener struct {
	id       string
	entry    *entry
	registry *Registry
	logger   *log.Logger

	handle    docstore.Handle
	cancelled atomic.Bool
	state     atomic.Int32
	cancelMu  sync.Mutex

	mu     sync.Mutex
	errors int
}

// Cancel implements docstore.Handle. It is idempotent and drops any events
// already in flight.
func (l *listener) Cancel() {
	l.finish(stateCancelled)
}

func (l *listener) finish(final listenerState) {
	if !l.cancelled.CompareAndSwap(false, true) {
		return
	}
	l.state.Store(int32(final))
	l.cancelMu.Lock()
	h := l.handle
	l.cancelMu.Unlock()
	if h != nil {
		h.Cancel()
	}
	l.registry.metrics.attached(-1)
}

func (l *listener) setHandle(h docstore.Handle) {
	l.cancelMu.Lock()
	l.handle = h
	l.cancelMu.Unlock()
	if l.cancelled.Load() && h != nil {
		h.Cancel()
	}
}

func (l *listener) current() listenerState {
	return listenerState(l.state.Load())
}

func (l *listener) onUpdate(records []docstore.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancelled.Load() {
		return
	}
	l.errors = 0
	l.entry.resumes.Store(0)
	l.registry.tracker.ResetErrors()
	l.registry.metrics.update()

	l.deliver(Normalize(l.entry.query, records))
}

func (l *listener) deliver(records []docstore.Record) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Debug("subscription callback panicked", "panic", r)
		}
	}()
	l.entry.callback(records)
}

func (l *listener) onError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancelled.Load() {
		return
	}

	class := docstore.Classify(err)
	l.registry.metrics.error(class)
	if class == docstore.Permanent {
		l.logger.Debug("listener terminated", "code", docstore.CodeOf(err), "err", err)
		l.finish(stateTerminated)
		l.registry.drop(l.entry)
		return
	}

	l.errors++
	l.registry.tracker.RecordError()
	if l.errors < suspendThreshold {
		l.logger.Debug("transient listener error", "count", l.errors, "err", err)
		return
	}

	l.logger.Warn("listener suspended", "errors", l.errors, "err", err)
	l.finish(stateSuspended)
	l.registry.metrics.suspended()
	l.registry.suspend(l.entry)
}
