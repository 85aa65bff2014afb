// Package docstore defines the contract between cohort and a hosted document
// database.
//
// # Overview
//
// The client never talks to storage directly. Every read, write and live
// query goes through a Backend, which bundles four groups of capabilities:
//
//   - Querier: one-shot RunQuery
//   - Subscriber: live Subscribe returning a cancellable Handle
//   - NetworkToggler: SetNetworkEnabled, used to pause live queries
//   - Documents: Get/Add/Set/Update/Delete on single documents
//
// Implementations live in subpackages:
//
//   - memstore: in-process store with live listeners and fault injection
//   - remote: HTTP + WebSocket client for a hosted document service
//   - docserver: serves any Backend over the remote protocol
//
// # Queries
//
// A Query is a collection name, a list of equality filters, an optional sort
// field and a limit. Query.Key renders the deduplication key used by the
// realtime registry:
//
//	docstore.Query{Collection: "modules", Limit: 100}.Key()          // "modules-100"
//	docstore.Query{Collection: "attendance"}.Where("traineeId", "u1").
//		WithLimit(100).Key()                                       // "attendance-traineeId=u1-100"
//
// # Errors
//
// Adapters translate transport failures into *Error values carrying a Code.
// Classify turns any error into Permanent or Transient:
//
//	Permanent: permission-denied, failed-precondition, invalid-argument, unavailable
//	Transient: everything else (deadline-exceeded, aborted, internal, ...)
//
// Message-text matching ("bad request", "transport errored", ...) is only a
// fallback for errors that arrive without a code.
package docstore
