// Package state provides thread-safe state management for the Cohort client.
//
// # Overview
//
// The Store is the meeting point between live subscription callbacks, the
// roster poller and the UI. Writers replace one slice at a time; the UI takes
// a full Snapshot on every refresh tick and renders from that copy.
//
// # Architecture
//
//	Producers:                          Consumer (UI):
//	┌──────────────────────────┐       ┌────────────────┐
//	│ SubscribeModules   ──┐   │       │                │
//	│ SubscribeAttendance ─┤   │       │                │
//	│ SubscribeMessages  ──┼──→│ Set*  │ store.Snapshot()│
//	│ Tracker.OnChange   ──┤   │───────→      ↓         │
//	│ roster poller      ──┘   │(mutex)│  render UI     │
//	└──────────────────────────┘       └────────────────┘
//
// Subscription callbacks run on backend goroutines, so every setter takes the
// write lock and copies its input. Snapshot takes the read lock and copies
// again, including grade score pointers.
//
// # Update Semantics
//
// Live lists are replaced wholesale: each delivery is the complete result set
// of its query. The roster poller follows the older poll-and-record model:
//
//	store.UpdateTrainees(users, nil)  // replace roster, clear error
//	store.UpdateTrainees(nil, err)    // keep roster, record error, count failure
//
// IsOffline is true after two consecutive roster failures or whenever the
// connection tracker reports the backend offline.
//
// # Derived Views
//
// Dashboards are not stored. AdminDashboard and TraineeDashboard recompute
// them from the snapshot, so a single set of app-level subscriptions feeds
// every screen.
//
// # Testing Considerations
//
// The zero Store is ready to use.
package state
