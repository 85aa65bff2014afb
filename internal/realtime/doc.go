// Package realtime manages live document subscriptions for cohort.
//
// # Overview
//
// Every screen in the client renders from live queries. Left alone, a flaky
// network turns those queries into an error storm: each listener retries,
// every retry fails, and the backend's own reconnect logic multiplies the
// load. This package sits between the screens and the docstore.Backend and
// keeps that from happening.
//
// # Components
//
//   - Tracker: connection state (online flag, consecutive error count,
//     quality, latency). Toggles the backend network and runs the decay and
//     latency-probe loop.
//   - Registry: one live subscription per key. Subscribing again under the
//     same key cancels the previous handle first, under the registry lock.
//   - listener: wraps a single backend subscription, classifies its errors
//     and drives the Active/Terminated/Suspended state machine.
//   - Plan/Normalize: drop server-side ordering on filtered queries and
//     restore it in memory.
//
// # Listener States
//
//	Active ──update──────────────> Active     (errors reset)
//	Active ──permanent error─────> Terminated (self-cancel, entry dropped)
//	Active ──transient error #1──> Active     (Tracker.RecordError)
//	Active ──transient error #2──> Suspended  (self-cancel, Tracker.Suspend)
//
// A suspended key is re-attached once the cooldown has brought the network
// back, at most MaxResumes times, waiting cooldown<<attempt between tries. A
// successful update resets the attempt count.
//
// # Throttling
//
// Registry.Subscribe registers a no-op handle instead of attaching when the
// tracker is offline, or when ThrottleThreshold errors were recorded with
// the latest inside ThrottleWindow. The caller's callback then receives
// nothing until it subscribes again.
//
// # Concurrency
//
// Lock order is Registry, then Tracker, then the backend. A listener holds
// its own mutex while handling an event, including while the caller's
// callback runs; cancellation never takes that mutex, so a callback may call
// Subscribe or the cancel function it was given. Callback panics are
// recovered and logged at debug level.
//
// # Usage
//
//	tracker := realtime.NewTracker(backend, realtime.WithProber(realtime.NewHTTPProber(url)))
//	go tracker.Run(ctx)
//
//	reg := realtime.NewRegistry(backend, tracker, realtime.WithCooldown(4*time.Second))
//	defer reg.Close()
//
//	q := docstore.Query{Collection: "modules"}.OrderByDesc("created").WithLimit(100)
//	cancel := reg.Subscribe(q.Key(), q, func(records []docstore.Record) {
//		// render
//	})
//	defer cancel()
package realtime
