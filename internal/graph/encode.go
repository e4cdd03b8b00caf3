package graph

import (
	"encoding/json"
	"log"
	"time"
)

// EncodeProps prepares an attribute map for the property graph. The store
// rejects nested objects, so maps and struct-like slices are JSON-encoded to
// strings; scalars, times, and slices of primitives pass through unchanged.
func EncodeProps(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for key, value := range attrs {
		out[key] = encodeValue(value)
	}
	return out
}

func encodeValue(value any) any {
	switch v := value.(type) {
	case nil, bool, int, int32, int64, float32, float64, string, time.Time:
		return v
	case []string:
		return v
	case []int, []int64, []float64, []bool:
		return v
	case map[string]any:
		return encodeJSON(v)
	case []any:
		// Arrays of primitives are legal properties; arrays holding maps are not.
		for _, item := range v {
			if _, ok := item.(map[string]any); ok {
				return encodeJSON(v)
			}
		}
		return v
	case []map[string]any:
		return encodeJSON(v)
	default:
		return encodeJSON(v)
	}
}

func encodeJSON(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("graph: failed to JSON-encode property value: %v", err)
		return "{}"
	}
	return string(data)
}

// DecodeJSONMap decodes a property value previously stored by EncodeProps
// back into a map. Non-string values, empty strings, and malformed JSON all
// yield nil rather than an error.
func DecodeJSONMap(value any) map[string]any {
	s, ok := value.(string)
	if !ok || s == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// DecodeJSONSlice decodes a JSON-encoded string slice property. Returns nil
// on any mismatch.
func DecodeJSONSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}
