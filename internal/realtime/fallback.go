package realtime

import (
	"sort"
	"time"

	"github.com/five82/cohort/internal/docstore"
)

// overfetchFactor widens the unordered server query so client-side
// truncation still has enough candidates.
const overfetchFactor = 2

// timestampFallbacks are consulted, in order, after the query's own sort
// field when ranking records by time.
var timestampFallbacks = []string{"timestamp", "created"}

var epoch = time.Unix(0, 0)

// Plan returns the query actually sent to the backend. A filtered query that
// also asks for an ordering would need a composite index, so the ordering is
// dropped, the limit doubled, and the second return value reports that
// Normalize must restore order client-side.
func Plan(q docstore.Query) (docstore.Query, bool) {
	if len(q.Filters) == 0 || q.OrderBy == "" {
		return q, false
	}
	server := q
	server.OrderBy = ""
	server.Descending = false
	if q.Limit > 0 {
		server.Limit = q.Limit * overfetchFactor
	}
	return server, true
}

// Normalize post-processes a snapshot for q. When Plan dropped the server
// ordering, records are stably sorted newest-first and truncated to the
// requested limit. The input slice is not modified.
func Normalize(q docstore.Query, records []docstore.Record) []docstore.Record {
	if _, inMemory := Plan(q); !inMemory {
		return records
	}
	out := SortByTimeDesc(records, append([]string{q.OrderBy}, timestampFallbacks...)...)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// SortByTimeDesc returns a copy of records ordered newest-first by the first
// decodable timestamp among fields. Records with none sort as the Unix epoch;
// ties keep their input order.
func SortByTimeDesc(records []docstore.Record, fields ...string) []docstore.Record {
	keys := make([]time.Time, len(records))
	idx := make([]int, len(records))
	for i, r := range records {
		keys[i] = BestTime(r, fields...)
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]].After(keys[idx[b]])
	})
	sorted := make([]docstore.Record, len(records))
	for i, j := range idx {
		sorted[i] = records[j]
	}
	return sorted
}

// BestTime returns the first decodable timestamp among fields, or the Unix
// epoch.
func BestTime(r docstore.Record, fields ...string) time.Time {
	for _, f := range fields {
		if f == "" {
			continue
		}
		if t, ok := r.Time(f); ok {
			return t
		}
	}
	return epoch
}
