package docstore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Filter is an equality constraint on a single field.
type Filter struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Query describes a collection query: equality filters, at most one sort
// field and a result limit. A zero Limit means unlimited.
type Query struct {
	Collection string   `json:"collection"`
	Filters    []Filter `json:"filters,omitempty"`
	OrderBy    string   `json:"orderBy,omitempty"`
	Descending bool     `json:"descending,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// Where returns a copy of q with an additional equality filter. Empty values
// are skipped so optional filters can be chained unconditionally.
func (q Query) Where(field string, value any) Query {
	if value == nil {
		return q
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return q
	}
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Value: value})
	return q
}

// OrderByDesc returns a copy of q ordered descending by field.
func (q Query) OrderByDesc(field string) Query {
	q.OrderBy = field
	q.Descending = true
	return q
}

// WithLimit returns a copy of q with the given limit.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// Validate reports structurally invalid queries.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Collection) == "" {
		return &Error{Code: CodeInvalidArgument, Message: "query collection is empty"}
	}
	if q.Limit < 0 {
		return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf("query limit %d is negative", q.Limit)}
	}
	for _, f := range q.Filters {
		if strings.TrimSpace(f.Field) == "" {
			return &Error{Code: CodeInvalidArgument, Message: "filter field is empty"}
		}
	}
	return nil
}

// Key derives the deduplication key for q from its collection, filter set and
// limit. Filters are rendered in field order so equivalent queries built in a
// different order share a key.
func (q Query) Key() string {
	parts := []string{q.Collection}
	if len(q.Filters) > 0 {
		filters := make([]Filter, len(q.Filters))
		copy(filters, q.Filters)
		sort.SliceStable(filters, func(i, j int) bool {
			return filters[i].Field < filters[j].Field
		})
		for _, f := range filters {
			parts = append(parts, f.Field+"="+cast.ToString(f.Value))
		}
	}
	parts = append(parts, strconv.Itoa(q.Limit))
	return strings.Join(parts, "-")
}

// Matches reports whether fields satisfy every filter in q.
func (q Query) Matches(fields map[string]any) bool {
	for _, f := range q.Filters {
		v, ok := fields[f.Field]
		if !ok {
			return false
		}
		if cast.ToString(v) != cast.ToString(f.Value) {
			return false
		}
	}
	return true
}
