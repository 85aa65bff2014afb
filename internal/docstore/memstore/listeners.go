package memstore

import (
	"sync"

	"github.com/five82/cohort/internal/docstore"
)

type event struct {
	records []docstore.Record
	err     error
}

// listener owns an ordered mailbox drained by a single goroutine, so
// deliveries for one subscription never overlap and never block writers.
type listener struct {
	id       uint64
	query    docstore.Query
	onUpdate func([]docstore.Record)
	onError  func(error)

	mu     sync.Mutex
	queue  []event
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newListener(id uint64, q docstore.Query, onUpdate func([]docstore.Record), onError func(error)) *listener {
	l := &listener{
		id:       id,
		query:    q,
		onUpdate: onUpdate,
		onError:  onError,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *listener) push(ev event) {
	l.mu.Lock()
	l.queue = append(l.queue, ev)
	l.mu.Unlock()
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

func (l *listener) stop() {
	l.once.Do(func() { close(l.done) })
}

func (l *listener) stopped() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *listener) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.signal:
		}
		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			ev := l.queue[0]
			l.queue = l.queue[1:]
			l.mu.Unlock()

			if l.stopped() {
				return
			}
			if ev.err != nil {
				if l.onError != nil {
					l.onError(ev.err)
				}
				continue
			}
			if l.onUpdate != nil {
				l.onUpdate(ev.records)
			}
		}
	}
}

// Subscribe implements docstore.Subscriber. The initial snapshot (or index
// error) is delivered asynchronously after Subscribe returns.
func (s *Store) Subscribe(q docstore.Query, onUpdate func([]docstore.Record), onError func(error)) (docstore.Handle, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextListener++
	s.subscribeCalls++
	l := newListener(s.nextListener, q, onUpdate, onError)
	s.listeners[l.id] = l

	if err := s.checkIndexLocked(q); err != nil {
		l.push(event{err: err})
	} else if s.networkEnabled {
		l.push(s.snapshotEventLocked(q))
	}

	return docstore.OnceHandle(func() { s.cancel(l) }), nil
}

func (s *Store) cancel(l *listener) {
	s.mu.Lock()
	delete(s.listeners, l.id)
	s.cancelCalls++
	s.mu.Unlock()
	l.stop()
}

func (s *Store) snapshotEventLocked(q docstore.Query) event {
	if err := s.checkIndexLocked(q); err != nil {
		return event{err: err}
	}
	return event{records: s.evaluateLocked(q)}
}

// notifyLocked pushes a fresh snapshot to every listener whose query matched
// the document before or after the write.
func (s *Store) notifyLocked(collection string, before, after map[string]any) {
	if !s.networkEnabled {
		return
	}
	for _, l := range s.listeners {
		if l.query.Collection != collection {
			continue
		}
		matched := (before != nil && l.query.Matches(before)) || (after != nil && l.query.Matches(after))
		if !matched {
			continue
		}
		l.push(s.snapshotEventLocked(l.query))
	}
}

// EmitError delivers err to every live listener on collection, as a backend
// stream failure would.
func (s *Store) EmitError(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listeners {
		if l.query.Collection == collection {
			l.push(event{err: err})
		}
	}
}

// FailNext queues err as the result of the next matching one-shot operation.
// op is one of query, get, add, set, update or delete.
func (s *Store) FailNext(op, collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := op + ":" + collection
	s.opFaults[key] = append(s.opFaults[key], err)
}

// Stats reports listener bookkeeping for tests.
type Stats struct {
	Live       int
	Subscribes int
	Cancels    int
}

// Stats returns current listener counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Live: len(s.listeners), Subscribes: s.subscribeCalls, Cancels: s.cancelCalls}
}
