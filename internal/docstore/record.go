package docstore

import (
	"time"

	"github.com/spf13/cast"
)

// serverTimestamp is the type of ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp is a field value placeholder that backends replace with
// their own clock at write time.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp placeholder.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Record is a single document: a stable identifier plus its fields.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// String returns the named field as a string, or "" when absent.
func (r Record) String(field string) string {
	return cast.ToString(r.Fields[field])
}

// Float returns the named field as a float64 and whether it was present.
func (r Record) Float(field string) (float64, bool) {
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Bool returns the named field as a bool.
func (r Record) Bool(field string) bool {
	return cast.ToBool(r.Fields[field])
}

// Time returns the named field as a time and whether it could be decoded.
// Numbers are treated as Unix milliseconds, which is how JSON transports
// carry timestamps.
func (r Record) Time(field string) (time.Time, bool) {
	return ToTime(r.Fields[field])
}

// ToTime decodes a timestamp-like value.
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case int, int32, int64, uint32, uint64, float32, float64:
		ms, err := cast.ToInt64E(t)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms), true
	case string:
		if t == "" {
			return time.Time{}, false
		}
		parsed, err := cast.ToTimeE(t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		parsed, err := cast.ToTimeE(t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, !parsed.IsZero()
	}
}

// Clone returns a deep-enough copy of r: the field map is copied, values are
// shared.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{ID: r.ID, Fields: fields}
}

// CloneRecords copies a result set.
func CloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
