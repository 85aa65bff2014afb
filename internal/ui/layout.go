package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutSplitWidth is the minimum width for list + detail panes.
	LayoutSplitWidth = 90
)

// Log display limits.
const (
	// LogTailLines is how many lines of the client log the logs view reads.
	LogTailLines = 2000
)

// DefaultUIInterval is the default UI refresh interval.
const DefaultUIInterval = time.Second
