package docstore

import (
	"context"
	"sync"
)

// Handle cancels a live query. Cancel must be idempotent and must not block
// on in-flight deliveries.
type Handle interface {
	Cancel()
}

// HandleFunc adapts a function to Handle. The function runs at most once.
type HandleFunc func()

// Cancel implements Handle.
func (f HandleFunc) Cancel() {
	if f != nil {
		f()
	}
}

// OnceHandle wraps fn so that repeated Cancel calls invoke it only once.
func OnceHandle(fn func()) Handle {
	var once sync.Once
	return HandleFunc(func() {
		once.Do(func() {
			if fn != nil {
				fn()
			}
		})
	})
}

// NoopHandle is registered for subscriptions that were never attached.
var NoopHandle Handle = HandleFunc(func() {})

// Querier runs one-shot queries.
type Querier interface {
	RunQuery(ctx context.Context, q Query) ([]Record, error)
}

// Subscriber establishes live queries.
//
// Implementations must not invoke onUpdate or onError before Subscribe
// returns, and must deliver events for one subscription sequentially in the
// order the store produced them.
type Subscriber interface {
	Subscribe(q Query, onUpdate func([]Record), onError func(error)) (Handle, error)
}

// NetworkToggler enables or disables the backend's network access. While
// disabled, live queries are paused rather than failed.
type NetworkToggler interface {
	SetNetworkEnabled(ctx context.Context, enabled bool) error
}

// Documents covers single-document reads and writes.
type Documents interface {
	Get(ctx context.Context, collection, id string) (Record, error)
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// Backend is the full capability set of a hosted document store.
type Backend interface {
	Querier
	Subscriber
	NetworkToggler
	Documents
}
