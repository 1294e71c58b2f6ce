// Package ingest turns raw source payloads into normalized, typed entities
// that satisfy the silver-layer data contract.
package ingest

import (
	"strconv"
	"strings"
)

// coerceRecords resolves the shape of a raw payload exactly once.
// Source payloads arrive in one of four shapes:
//   - a bare list of records
//   - an envelope keyed by the plural entity name: {"customers": [...]}
//   - an envelope keyed by the singular name wrapping one record: {"customer": {...}}
//   - a bare single record (only when allowBare is set)
//
// Anything else coerces to an empty batch rather than an error; the strict
// normalizers validate required envelope keys themselves.
func coerceRecords(raw any, plural, singular string, allowBare bool) []map[string]any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []map[string]any:
		return v
	case []any:
		return onlyMaps(v)
	case map[string]any:
		if inner, ok := v[plural]; ok {
			return coerceValue(inner)
		}
		if inner, ok := v[singular]; ok {
			return coerceValue(inner)
		}
		if allowBare {
			return []map[string]any{v}
		}
		return nil
	default:
		return nil
	}
}

// coerceValue handles the inside of an envelope: either a list or one record.
func coerceValue(v any) []map[string]any {
	switch inner := v.(type) {
	case []map[string]any:
		return inner
	case []any:
		return onlyMaps(inner)
	case map[string]any:
		return []map[string]any{inner}
	default:
		return nil
	}
}

func onlyMaps(items []any) []map[string]any {
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records
}

// fieldValue returns the first present, non-nil, non-empty value among the
// alias keys. Natural keys arrive under different field names depending on the
// source endpoint, so every lookup goes through the alias list.
func fieldValue(rec map[string]any, aliases ...string) (any, bool) {
	for _, key := range aliases {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// intValue coerces a raw JSON value into an int. The source API is not
// consistent about numeric encoding: ids arrive as numbers or as strings.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// boolValue interprets the loose truthiness the source uses for flags:
// booleans, 0/1 numerics and "0"/"1" strings all occur in the wild.
func boolValue(v any, fallback bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no", "":
			return false
		}
		return fallback
	case nil:
		return fallback
	default:
		return fallback
	}
}
