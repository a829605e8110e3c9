package reconcile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Payload coercion policy: never reject on missing optional data, only on
// structurally unusable payload. Required strings default to "", nullable
// scalars default to null, numeric ids parse leniently, date-like fields
// become null when unparsable, and array-of-string fields keep only their
// string elements.

// parsePayload decodes an outbox item's JSON payload into a field map.
// An empty payload is a valid empty map (delete items carry none).
func parsePayload(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("payload no válido: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// coerceString returns the field as a string, defaulting to "" when
// absent or of the wrong type.
func coerceString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// coerceNullString returns the field as a *string, nil when absent,
// empty or of the wrong type.
func coerceNullString(m map[string]any, key string) *string {
	v, ok := m[key].(string)
	if !ok || v == "" {
		return nil
	}
	return &v
}

// coerceNullInt parses the field as an integer id. Numeric strings parse
// leniently; anything else falls back to nil.
func coerceNullInt(m map[string]any, key string) *int64 {
	switch v := m[key].(type) {
	case float64:
		n := int64(v)
		return &n
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return &n
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			n := int64(f)
			return &n
		}
	}
	return nil
}

// dateLayouts are the accepted client date formats, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// coerceNullTime parses the field as a timestamp via a permissive set of
// layouts, plus numeric Unix milliseconds. Unparsable values become nil.
func coerceNullTime(m map[string]any, key string) *time.Time {
	switch v := m[key].(type) {
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				t = t.UTC()
				return &t
			}
		}
	case float64:
		t := time.UnixMilli(int64(v)).UTC()
		return &t
	}
	return nil
}

// coerceStringSlice filters an array field down to its string elements.
// Absent fields, non-arrays and empty results all yield nil so the store
// can treat the value as "not provided".
func coerceStringSlice(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// clientUpdatedAt extracts the client-stamped updated_at from a payload,
// nil when absent or unparsable. Used only for conflict detection; the
// stored updated_at is always stamped server-side.
func clientUpdatedAt(m map[string]any) *time.Time {
	return coerceNullTime(m, "updated_at")
}
