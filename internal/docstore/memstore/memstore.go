// Package memstore is an in-process docstore.Backend with live listeners.
//
// It backs the -demo mode and the realtime tests. Fault injection hooks let
// tests push listener errors, fail one-shot calls and simulate a missing
// composite index.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/five82/cohort/internal/docstore"
)

var _ docstore.Backend = (*Store)(nil)

type document struct {
	fields map[string]any
	seq    uint64
}

// Store is an in-memory document store. The zero value is not usable; call New.
type Store struct {
	mu             sync.Mutex
	collections    map[string]map[string]*document
	listeners      map[uint64]*listener
	nextListener   uint64
	seq            uint64
	networkEnabled bool
	requireIndex   bool
	opFaults       map[string][]error
	now            func() time.Time

	subscribeCalls int
	cancelCalls    int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// RequireCompositeIndex makes queries that combine filters with an ordering
// fail with failed-precondition, as a hosted store without the matching
// composite index would.
func RequireCompositeIndex() Option {
	return func(s *Store) { s.requireIndex = true }
}

// New creates an empty store with the network enabled.
func New(opts ...Option) *Store {
	s := &Store{
		collections:    make(map[string]map[string]*document),
		listeners:      make(map[uint64]*listener),
		networkEnabled: true,
		opFaults:       make(map[string][]error),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunQuery implements docstore.Querier.
func (s *Store) RunQuery(ctx context.Context, q docstore.Query) ([]docstore.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpLocked("query:" + q.Collection); err != nil {
		return nil, err
	}
	if err := s.checkIndexLocked(q); err != nil {
		return nil, err
	}
	return s.evaluateLocked(q), nil
}

// Get implements docstore.Documents.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Record, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpLocked("get:" + collection); err != nil {
		return docstore.Record{}, err
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return docstore.Record{}, docstore.Errorf(docstore.CodeNotFound, "%s/%s", collection, id)
	}
	return docstore.Record{ID: id, Fields: copyFields(doc.fields)}, nil
}

// Add implements docstore.Documents.
func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.write(ctx, "add", collection, id, fields, false); err != nil {
		return "", err
	}
	return id, nil
}

// Set implements docstore.Documents.
func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.write(ctx, "set", collection, id, fields, false)
}

// Update implements docstore.Documents. Missing documents are not-found.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.write(ctx, "update", collection, id, fields, true)
}

// Delete implements docstore.Documents.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpLocked("delete:" + collection); err != nil {
		return err
	}
	docs := s.collections[collection]
	doc, ok := docs[id]
	if !ok {
		return nil
	}
	delete(docs, id)
	s.notifyLocked(collection, doc.fields, nil)
	return nil
}

func (s *Store) write(ctx context.Context, op, collection, id string, fields map[string]any, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(collection) == "" || strings.TrimSpace(id) == "" {
		return docstore.Errorf(docstore.CodeInvalidArgument, "document path %q/%q is incomplete", collection, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpLocked(op + ":" + collection); err != nil {
		return err
	}

	docs := s.collections[collection]
	if docs == nil {
		docs = make(map[string]*document)
		s.collections[collection] = docs
	}
	existing, exists := docs[id]
	if merge && !exists {
		return docstore.Errorf(docstore.CodeNotFound, "%s/%s", collection, id)
	}

	var before map[string]any
	next := make(map[string]any, len(fields))
	if exists {
		before = existing.fields
		if merge {
			for k, v := range existing.fields {
				next[k] = v
			}
		}
	}
	now := s.now()
	for k, v := range fields {
		if docstore.IsServerTimestamp(v) {
			v = now
		}
		next[k] = v
	}

	if exists {
		existing.fields = next
	} else {
		s.seq++
		docs[id] = &document{fields: next, seq: s.seq}
	}
	s.notifyLocked(collection, before, next)
	return nil
}

// SetNetworkEnabled implements docstore.NetworkToggler. Disabling pauses all
// listeners; enabling delivers a fresh snapshot to each of them.
func (s *Store) SetNetworkEnabled(ctx context.Context, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.networkEnabled == enabled {
		return nil
	}
	s.networkEnabled = enabled
	if enabled {
		for _, l := range s.listeners {
			l.push(s.snapshotEventLocked(l.query))
		}
	}
	return nil
}

// NetworkEnabled reports the current network toggle.
func (s *Store) NetworkEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.networkEnabled
}

func (s *Store) checkOpLocked(op string) error {
	if faults := s.opFaults[op]; len(faults) > 0 {
		err := faults[0]
		s.opFaults[op] = faults[1:]
		return err
	}
	if !s.networkEnabled {
		return docstore.Errorf(docstore.CodeUnavailable, "client is offline")
	}
	return nil
}

func (s *Store) checkIndexLocked(q docstore.Query) error {
	if s.requireIndex && len(q.Filters) > 0 && q.OrderBy != "" {
		return docstore.Errorf(docstore.CodeFailedPrecondition, "the query requires an index on %s", q.Collection)
	}
	return nil
}

func (s *Store) evaluateLocked(q docstore.Query) []docstore.Record {
	type hit struct {
		id  string
		doc *document
	}
	var hits []hit
	for id, doc := range s.collections[q.Collection] {
		if q.Matches(doc.fields) {
			hits = append(hits, hit{id: id, doc: doc})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].doc.seq < hits[j].doc.seq })
	if q.OrderBy != "" {
		sort.SliceStable(hits, func(i, j int) bool {
			a, b := hits[i].doc.fields[q.OrderBy], hits[j].doc.fields[q.OrderBy]
			if q.Descending {
				a, b = b, a
			}
			return lessValue(a, b)
		})
	}
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	out := make([]docstore.Record, 0, len(hits))
	for _, h := range hits {
		out = append(out, docstore.Record{ID: h.id, Fields: copyFields(h.doc.fields)})
	}
	return out
}

func lessValue(a, b any) bool {
	ta, okA := docstore.ToTime(a)
	tb, okB := docstore.ToTime(b)
	if okA || okB {
		return ta.Before(tb)
	}
	return cast.ToString(a) < cast.ToString(b)
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
