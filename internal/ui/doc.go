// Package ui provides the Bubble Tea terminal interface for cohort.
//
// # Architecture
//
// The Model never talks to the backend for reads. A tick every PollTick pulls
// a copy of state.Store; live subscription callbacks keep that store current,
// so the screen reflects changes within one tick. Writes go through the
// Actions interface (satisfied by *training.Service) as tea.Cmds, and their
// outcome lands in the status line at the bottom.
//
//	tickMsg ──→ fetchSnapshotCmd ──→ snapshotMsg ──→ render
//	key     ──→ runAction(Actions) ──→ actionResultMsg ──→ status line
//
// # Views
//
//   - Dashboard: admin stats and recent activity, or trainee progress and
//     upcoming sessions, derived from the snapshot
//   - Modules: list and detail; admins can add, complete and delete
//   - Attendance: admins cycle Present, Late, Absent
//   - Assessments: with scores from grades
//   - Messages: inbox with unread markers; compose and mark read
//   - Logs: tail of the client's own logfmt log via logtail
//
// The header shows the connection indicator (LIVE, SLOW, OFFLINE, PAUSED)
// taken from the realtime tracker. The o key forces the backend offline and
// back through the Connection interface.
//
// # Key Bindings
//
//   - 1-6, tab, shift+tab: switch views
//   - j/k, g/G, ctrl+d/u: move the selection
//   - n: new module or message; c: toggle completed; x: delete module
//   - s: cycle attendance; enter: mark message read
//   - Space: follow log; f: cycle minimum log level
//   - T: cycle theme; h or ?: help; e or ctrl+c: quit
//
// Theme and last view are saved to prefs on change.
package ui
