package schema

// BuildExtractionSchema projects a recipe into the JSON schema handed to the
// LLM in structured-output mode. The schema closes the label sets: the model
// can only emit the recipe's entity kinds and edge labels, and only the
// attribute names each kind's contract declares.
func BuildExtractionSchema(reg *Registry, rec Recipe) map[string]any {
	attrProps := map[string]any{}
	for _, kind := range rec.Kinds {
		contract, ok := reg.NodeAttributes(kind.NodeKind)
		if !ok {
			continue
		}
		byName := make(map[string]Attribute, len(contract))
		for _, a := range contract {
			byName[a.Name] = a
		}
		for _, name := range kind.Attributes {
			if a, ok := byName[name]; ok {
				attrProps[a.Name] = attributeSchema(a)
			}
		}
	}

	edgeAttrProps := map[string]any{}
	edgeLabels := make([]any, 0, len(rec.EdgeLabels))
	for _, label := range rec.EdgeLabels {
		edgeLabels = append(edgeLabels, label)
		contract, ok := reg.EdgeAttributes(label)
		if !ok {
			continue
		}
		for _, a := range contract {
			edgeAttrProps[a.Name] = attributeSchema(a)
		}
	}

	kindNames := make([]any, 0, len(rec.Kinds))
	for _, k := range rec.Kinds {
		kindNames = append(kindNames, k.Name)
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"entities", "edges"},
		"properties": map[string]any{
			"entities": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"kind", "name"},
					"properties": map[string]any{
						"kind":       map[string]any{"type": "string", "enum": kindNames},
						"name":       map[string]any{"type": "string"},
						"attributes": map[string]any{"type": "object", "additionalProperties": false, "properties": attrProps},
					},
				},
			},
			"edges": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"from", "to", "label"},
					"properties": map[string]any{
						"from":       map[string]any{"type": "string"},
						"to":         map[string]any{"type": "string"},
						"label":      map[string]any{"type": "string", "enum": edgeLabels},
						"attributes": map[string]any{"type": "object", "additionalProperties": false, "properties": edgeAttrProps},
					},
				},
			},
		},
	}
}

func attributeSchema(a Attribute) map[string]any {
	switch a.Type {
	case AttrEnum:
		enum := make([]any, len(a.Enum))
		for i, v := range a.Enum {
			enum[i] = v
		}
		return map[string]any{"type": "string", "enum": enum}
	case AttrNumber:
		s := map[string]any{"type": "number"}
		if a.Description != "" {
			s["description"] = a.Description
		}
		return s
	case AttrInteger:
		return map[string]any{"type": "integer"}
	case AttrBool:
		return map[string]any{"type": "boolean"}
	case AttrStringList:
		return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	case AttrMap:
		return map[string]any{"type": "object", "additionalProperties": true}
	default:
		s := map[string]any{"type": "string"}
		if a.Description != "" {
			s["description"] = a.Description
		}
		return s
	}
}
