// Package app is the composition root for the cohort client.
//
// # Startup
//
// Run loads config.toml and prefs, opens the logfmt log file, then Start
// wires the pieces together:
//
//  1. Pick the backend: a seeded memstore with -demo, otherwise the remote
//     client pointed at backend_url
//  2. Create the realtime Tracker, with an HTTP latency prober for remote
//     backends, and start its decay and probe loop
//  3. Register prometheus collectors and optionally serve /metrics
//  4. Create the listener Registry and the training Service on top of it
//  5. Load or create the signed-in user's document
//  6. Attach live subscriptions: admins see every record, trainees only
//     their own
//  7. For admins, start the roster poller
//
// Then ui.Run takes over the terminal until the user quits.
//
//	┌────────────┐   callbacks   ┌─────────────┐  Snapshot()  ┌────────┐
//	│  Registry  │ ────────────> │ state.Store │ <─────────── │   ui   │
//	└─────┬──────┘               └─────────────┘              └───┬────┘
//	      │ Subscribe                   ^ UpdateTrainees          │ Actions
//	┌─────┴──────┐                ┌─────┴─────┐             ┌─────┴─────┐
//	│  backend   │ <───────────── │  poller   │             │  Service  │
//	└────────────┘                └───────────┘             └───────────┘
//
// # Roster polling
//
// The trainee roster has no live subscription. StartPoller reloads it every
// 15 seconds by default. After a failure the wait doubles per consecutive
// failure, capped at 30 seconds, and two failures in a row mark the snapshot
// offline.
//
// # Reconnect
//
// A view whose listener was skipped while offline or throttled, terminated
// by a permanent error, or given up on after repeated suspensions is
// re-subscribed when the tracker next comes online, and otherwise every
// realtime.DecayInterval.
//
// # Shutdown
//
// Runtime.Close cancels the tracker and poller, releases every listener,
// stops the metrics server and closes remote streams.
package app
