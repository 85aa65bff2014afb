package wire

import "github.com/five82/cohort/internal/docstore"

// serverTimestampKey marks a field that the server fills with its own clock.
const serverTimestampKey = "$serverTimestamp"

// EncodeFields replaces docstore.ServerTimestamp placeholders with their
// JSON marker. The input map is not modified.
func EncodeFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if docstore.IsServerTimestamp(v) {
			out[k] = map[string]any{serverTimestampKey: true}
			continue
		}
		out[k] = v
	}
	return out
}

// DecodeFields restores docstore.ServerTimestamp placeholders.
func DecodeFields(fields map[string]any) map[string]any {
	for k, v := range fields {
		if m, ok := v.(map[string]any); ok && len(m) == 1 {
			if flag, ok := m[serverTimestampKey].(bool); ok && flag {
				fields[k] = docstore.ServerTimestamp
			}
		}
	}
	return fields
}

// EncodeRecords prepares records for transport.
func EncodeRecords(records []docstore.Record) []docstore.Record {
	if records == nil {
		return []docstore.Record{}
	}
	return records
}
