// Package confmap reads typed values out of the loosely-typed parameter maps
// plugins are configured with. YAML hands plugins int, float64, bool, string
// and []any values; these helpers coerce between the numeric kinds so a
// config author can write `temperature: 1` where a float is expected.
package confmap

import "fmt"

// String returns the string under key, or def when absent or not a string.
func String(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

// Int returns the integer under key, accepting int and float64, or def.
func Int(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Float returns the float under key, accepting float64 and int, or def.
func Float(m map[string]any, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// Bool returns the boolean under key, or def when absent or not a bool.
func Bool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

// Strings returns the string list under key. A scalar string is promoted to
// a one-element list; list elements are stringified.
func Strings(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	}
	return nil
}

// Maps returns the list of maps under key, e.g. tool specs.
func Maps(m map[string]any, key string) []map[string]any {
	switch v := m[key].(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if mm, ok := item.(map[string]any); ok {
				out = append(out, mm)
			}
		}
		return out
	}
	return nil
}
