package realtime

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/five82/cohort/internal/docstore"
)

const (
	// DefaultCooldown is how long live updates stay offline after a
	// listener is suspended.
	DefaultCooldown = 4 * time.Second
	MinCooldown     = 3 * time.Second
	MaxCooldown     = 5 * time.Second

	// MaxResumes bounds how often one key is re-attached after suspension
	// without an intervening successful update.
	MaxResumes = 2
)

// ClampCooldown keeps d within [MinCooldown, MaxCooldown]; zero means
// DefaultCooldown.
func ClampCooldown(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultCooldown
	case d < MinCooldown:
		return MinCooldown
	case d > MaxCooldown:
		return MaxCooldown
	default:
		return d
	}
}

type entry struct {
	key      string
	query    docstore.Query
	callback func([]docstore.Record)

	// guarded by Registry.mu
	handle docstore.Handle
	timer  Timer

	resumes atomic.Int32
}

// Registry keeps at most one live subscription per key.
//
// Lock order is Registry.mu, then the backend. The registry never holds its
// lock while a subscription callback runs.
type Registry struct {
	backend  docstore.Subscriber
	tracker  *Tracker
	clock    Clock
	logger   *log.Logger
	metrics  *Metrics
	cooldown time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the registry's logger.
func WithRegistryLogger(l *log.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics records listener activity on m.
func WithMetrics(m *Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// WithRegistryClock overrides the clock used for resume timers.
func WithRegistryClock(c Clock) RegistryOption {
	return func(r *Registry) { r.clock = c }
}

// WithCooldown sets the suspension cooldown, clamped to [3s, 5s].
func WithCooldown(d time.Duration) RegistryOption {
	return func(r *Registry) { r.cooldown = ClampCooldown(d) }
}

// NewRegistry creates a registry that attaches listeners on backend and
// consults tracker before every attach.
func NewRegistry(backend docstore.Subscriber, tracker *Tracker, opts ...RegistryOption) *Registry {
	r := &Registry{
		backend:  backend,
		tracker:  tracker,
		clock:    SystemClock,
		cooldown: DefaultCooldown,
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	return r
}

// Subscribe replaces any subscription registered under key with a new live
// query. While the tracker is offline or throttled the key gets a no-op
// handle and callback receives nothing until a later Subscribe. The returned
// function cancels this subscription only; it does nothing once the key has
// been replaced.
func (r *Registry) Subscribe(key string, q docstore.Query, callback func([]docstore.Record)) func() {
	e := &entry{key: key, query: q, callback: callback}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.entries[key]; ok {
		r.detachLocked(old)
		delete(r.entries, key)
	}
	if r.closed {
		return func() {}
	}
	r.entries[key] = e
	r.attachLocked(e)

	return func() { r.release(e) }
}

func (r *Registry) attachLocked(e *entry) {
	st := r.tracker.State()
	switch {
	case st.Offline():
		r.logger.Debug("offline, skipping subscribe", "key", e.key)
		r.metrics.skip("offline")
		e.handle = docstore.NoopHandle
		return
	case r.tracker.ShouldThrottle():
		r.logger.Debug("too many listener errors, skipping subscribe", "key", e.key, "errors", st.ConsecutiveErrors)
		r.metrics.skip("throttled")
		e.handle = docstore.NoopHandle
		return
	}

	id := uuid.NewString()
	l := &listener{
		id:       id,
		entry:    e,
		registry: r,
		logger:   r.logger.With("key", e.key, "listener", id[:8]),
	}
	r.metrics.attached(1)

	server, _ := Plan(e.query)
	h, err := r.backend.Subscribe(server, l.onUpdate, l.onError)
	if err != nil {
		l.logger.Debug("subscribe failed", "class", docstore.Classify(err), "err", err)
		l.finish(stateTerminated)
		e.handle = docstore.NoopHandle
		return
	}
	l.setHandle(h)
	e.handle = l
}

func (r *Registry) detachLocked(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.handle != nil {
		cancelQuietly(e.handle)
		e.handle = nil
	}
}

func (r *Registry) release(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detachLocked(e)
	if r.entries[e.key] == e {
		delete(r.entries, e.key)
	}
}

// drop forgets a listener that terminated itself.
func (r *Registry) drop(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[e.key] == e {
		delete(r.entries, e.key)
	}
}

// suspend takes the network offline for the cooldown and schedules a
// resume attempt for e.
func (r *Registry) suspend(e *entry) {
	r.tracker.Suspend(r.cooldown)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.entries[e.key] != e {
		return
	}
	attempt := int(e.resumes.Load())
	if attempt >= MaxResumes {
		r.logger.Warn("giving up on subscription", "key", e.key, "resumes", attempt)
		delete(r.entries, e.key)
		return
	}
	delay := r.cooldown << attempt
	r.logger.Debug("scheduling resume", "key", e.key, "attempt", attempt+1, "delay", delay)
	e.timer = r.clock.AfterFunc(delay, func() { r.resume(e) })
}

func (r *Registry) resume(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.entries[e.key] != e {
		return
	}
	e.timer = nil
	if r.tracker.State().Offline() || r.tracker.ShouldThrottle() {
		e.timer = r.clock.AfterFunc(r.cooldown, func() { r.resume(e) })
		return
	}
	e.resumes.Add(1)
	r.logger.Info("resuming subscription", "key", e.key, "attempt", e.resumes.Load())
	r.attachLocked(e)
}

// UnsubscribeAll cancels every subscription. Failures in individual handles
// are ignored.
func (r *Registry) UnsubscribeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.entries {
		r.detachLocked(e)
		delete(r.entries, key)
	}
}

// Close unsubscribes everything and rejects further subscriptions.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.UnsubscribeAll()
}

// Active reports whether key has a live listener attached.
func (r *Registry) Active(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return false
	}
	l, ok := e.handle.(*listener)
	return ok && l.current() == stateActive
}

// Idle reports whether key needs a fresh Subscribe to receive updates: it
// was never registered, was dropped, or holds a no-op or dead listener with
// no resume pending.
func (r *Registry) Idle(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return true
	}
	if e.timer != nil {
		return false
	}
	l, ok := e.handle.(*listener)
	return !ok || l.current() != stateActive
}

// Len returns the number of registered keys, attached or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func cancelQuietly(h docstore.Handle) {
	defer func() { _ = recover() }()
	h.Cancel()
}
