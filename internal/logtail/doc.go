// Package logtail reads the tail of the client's log file for the logs view.
//
// Read extracts the last N lines with a ring buffer, so memory stays
// O(maxLines) however large cohort.log grows. Tail additionally decodes each
// line as logfmt (the format the file logger writes) and drops entries below
// a minimum level. Lines that are not logfmt, such as a panic trace, are kept
// as raw messages.
//
//	entries, err := logtail.Tail(cfg.LogPath(), 400, "warn")
package logtail
