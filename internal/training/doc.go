// Package training is the training-management domain on top of the
// document store: users, modules, attendance, assessments, grades and
// messages.
//
// Live views are registered through realtime.Registry keyed by the query's
// canonical key, so a screen that re-subscribes replaces its previous
// listener. One-shot reads and writes go straight to the backend with a
// bounded timeout. Inputs are sanitized and validated before any write.
//
// The dashboard helpers are pure functions over decoded slices so the UI can
// recompute them from whatever its subscriptions last delivered.
package training
