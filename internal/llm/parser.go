package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON extracts the first complete JSON object from text that may
// contain extra prose or markdown fencing despite instructions. Returns the
// input unchanged when no object boundary is found, letting the caller's
// decoder produce the failure.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		switch {
		case c == '\\':
			escape = true
		case c == '"':
			inString = !inString
		case inString:
			// string contents don't affect nesting
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text
}

// decodeStructured parses a structured-output response body, salvaging fenced
// or prose-wrapped JSON first, validating it against the requested schema,
// then decoding into out.
func decodeStructured(raw string, schema map[string]any, out any) error {
	cleaned := extractJSON(raw)

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return fmt.Errorf("%w: not valid JSON: %v", ErrSchemaViolation, err)
	}
	if err := validateAgainstSchema(doc, schema); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}

// validateAgainstSchema checks a decoded JSON document against the subset of
// JSON schema this system generates: object/array/string/number/integer/
// boolean types, required lists, enums, and additionalProperties=false.
func validateAgainstSchema(doc any, schema map[string]any) error {
	if schema == nil {
		return nil
	}
	typ, _ := schema["type"].(string)
	switch typ {
	case "object":
		obj, ok := doc.(map[string]any)
		if !ok {
			return fmt.Errorf("expected object, got %T", doc)
		}
		props, _ := schema["properties"].(map[string]any)
		for _, name := range stringList(schema["required"]) {
			if _, present := obj[name]; !present {
				return fmt.Errorf("missing required field %q", name)
			}
		}
		additional := true
		if ap, ok := schema["additionalProperties"].(bool); ok {
			additional = ap
		}
		for key, value := range obj {
			sub, known := props[key].(map[string]any)
			if !known {
				if !additional {
					return fmt.Errorf("unexpected field %q", key)
				}
				continue
			}
			if value == nil {
				continue
			}
			if err := validateAgainstSchema(value, sub); err != nil {
				return fmt.Errorf("field %q: %v", key, err)
			}
		}
	case "array":
		arr, ok := doc.([]any)
		if !ok {
			return fmt.Errorf("expected array, got %T", doc)
		}
		if items, ok := schema["items"].(map[string]any); ok {
			for i, item := range arr {
				if err := validateAgainstSchema(item, items); err != nil {
					return fmt.Errorf("item %d: %v", i, err)
				}
			}
		}
	case "string":
		s, ok := doc.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", doc)
		}
		if enum := stringList(schema["enum"]); enum != nil {
			for _, e := range enum {
				if e == s {
					return nil
				}
			}
			return fmt.Errorf("value %q not in enum", s)
		}
	case "number", "integer":
		if _, ok := doc.(float64); !ok {
			return fmt.Errorf("expected number, got %T", doc)
		}
	case "boolean":
		if _, ok := doc.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", doc)
		}
	}
	return nil
}

// stringList normalizes schema lists that may be authored as []string in Go
// or decoded from JSON as []any.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
