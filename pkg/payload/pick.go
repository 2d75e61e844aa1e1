package payload

import (
	"math"
	"strconv"
	"strings"
)

// PickNumber returns the first candidate that is a finite number or a
// non-blank string parsing to one. It returns 0 when nothing qualifies.
// Order matters: an earlier coercible string beats a later number.
func PickNumber(candidates ...any) float64 {
	for _, c := range candidates {
		if n, ok := toNumber(c); ok {
			return n
		}
	}
	return 0
}

// PickString returns the first candidate that is a string with content
// after trimming. The trimmed value is returned.
func PickString(candidates ...any) (string, bool) {
	for _, c := range candidates {
		s, ok := c.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}

// PickRecord returns the first candidate that is a JSON object.
func PickRecord(candidates ...any) (map[string]any, bool) {
	for _, c := range candidates {
		if obj, ok := c.(map[string]any); ok {
			return obj, true
		}
	}
	return nil, false
}

// PickArray returns the first candidate that is a JSON array, empty or not.
func PickArray(candidates ...any) ([]any, bool) {
	for _, c := range candidates {
		if arr, ok := c.([]any); ok {
			return arr, true
		}
	}
	return nil, false
}

// PreferArray returns the first non-empty array. When all of them are
// empty it returns the first non-nil one so a confirmed-empty source is
// kept; the boolean is false only if every candidate is nil.
func PreferArray(arrays ...[]any) ([]any, bool) {
	for _, arr := range arrays {
		if len(arr) > 0 {
			return arr, true
		}
	}
	for _, arr := range arrays {
		if arr != nil {
			return arr, true
		}
	}
	return nil, false
}

// Lookup walks a dot separated path ("team.name") through nested objects.
func Lookup(obj map[string]any, path string) any {
	if obj == nil {
		return nil
	}
	if v, ok := obj[path]; ok || !strings.Contains(path, ".") {
		return v
	}
	var cur any = obj
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// Values resolves every path against obj, keeping the declared order, so a
// fallback chain can be handed straight to one of the Pick functions.
func Values(obj map[string]any, paths ...string) []any {
	out := make([]any, len(paths))
	for i, p := range paths {
		out[i] = Lookup(obj, p)
	}
	return out
}

func toNumber(v any) (float64, bool) {
	var n float64
	switch typed := v.(type) {
	case float64:
		n = typed
	case float32:
		n = float64(typed)
	case int:
		n = float64(typed)
	case int32:
		n = float64(typed)
	case int64:
		n = float64(typed)
	case uint:
		n = float64(typed)
	case uint32:
		n = float64(typed)
	case uint64:
		n = float64(typed)
	case string:
		s := strings.TrimSpace(typed)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	case interface{ Float64() (float64, error) }:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
