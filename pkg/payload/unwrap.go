// Package payload reads loosely shaped JSON documents decoded into `any`.
//
// Upstream statistics endpoints wrap their payloads in envelopes that change
// between backend versions ({data: ...}, {result: {items: [...]}}, bare
// arrays). Nothing in this package returns an error: absent or mistyped
// values resolve to zero values so callers can keep rendering.
package payload

// maxUnwrapDepth bounds envelope recursion; decoded JSON has no cycles but a
// pathological document could still be deeply nested.
const maxUnwrapDepth = 10

// ObjectEnvelopeKeys are tried in order when looking for a wrapped object.
var ObjectEnvelopeKeys = []string{"data", "result", "payload", "response", "value", "content"}

// ArrayEnvelopeKeys extend ObjectEnvelopeKeys with array-only wrappers.
var ArrayEnvelopeKeys = []string{"data", "result", "payload", "response", "value", "content", "items", "rows", "values", "list"}

// UnwrapObject returns the innermost object of a chain of envelopes.
// Non-object input yields an empty, non-nil map.
func UnwrapObject(v any) map[string]any {
	return unwrapObject(v, 0)
}

func unwrapObject(v any, depth int) map[string]any {
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	if depth >= maxUnwrapDepth {
		return obj
	}
	for _, key := range ObjectEnvelopeKeys {
		if inner, ok := obj[key].(map[string]any); ok {
			return unwrapObject(inner, depth+1)
		}
	}
	return obj
}

// UnwrapArray finds the first array reachable through envelope keys.
// The boolean is false when no array exists anywhere in the chain, which
// is different from finding an empty array.
func UnwrapArray(v any) ([]any, bool) {
	return unwrapArray(v, 0)
}

func unwrapArray(v any, depth int) ([]any, bool) {
	switch typed := v.(type) {
	case []any:
		return typed, true
	case map[string]any:
		if depth >= maxUnwrapDepth {
			return nil, false
		}
		for _, key := range ArrayEnvelopeKeys {
			switch inner := typed[key].(type) {
			case []any:
				return inner, true
			case map[string]any:
				if arr, ok := unwrapArray(inner, depth+1); ok {
					return arr, true
				}
			}
		}
	}
	return nil, false
}
