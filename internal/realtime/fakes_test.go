package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/five82/cohort/internal/docstore"
)

// fakeClock fires timers synchronously from Advance, earliest deadline
// first and in scheduling order on ties.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	pending := !t.stopped && !t.fired
	t.stopped = true
	return pending
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeSubscription exposes the callbacks a backend received so tests can
// drive events synchronously.
type fakeSubscription struct {
	query    docstore.Query
	onUpdate func([]docstore.Record)
	onError  func(error)
	cancels  atomic.Int32
}

type fakeBackend struct {
	mu      sync.Mutex
	subs    []*fakeSubscription
	network []bool
	err     error
}

func (b *fakeBackend) Subscribe(q docstore.Query, onUpdate func([]docstore.Record), onError func(error)) (docstore.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	s := &fakeSubscription{query: q, onUpdate: onUpdate, onError: onError}
	b.subs = append(b.subs, s)
	return docstore.HandleFunc(func() { s.cancels.Add(1) }), nil
}

func (b *fakeBackend) SetNetworkEnabled(_ context.Context, enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.network = append(b.network, enabled)
	return nil
}

func (b *fakeBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *fakeBackend) last() *fakeSubscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.subs) == 0 {
		return nil
	}
	return b.subs[len(b.subs)-1]
}

func (b *fakeBackend) networkCalls() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.network...)
}

func transientErr() error {
	return docstore.Errorf(docstore.CodeDeadlineExceeded, "listen timed out")
}

func permanentErr() error {
	return docstore.Errorf(docstore.CodePermissionDenied, "missing or insufficient permissions")
}

func rec(id string, fields map[string]any) docstore.Record {
	return docstore.Record{ID: id, Fields: fields}
}

func ids(records []docstore.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
