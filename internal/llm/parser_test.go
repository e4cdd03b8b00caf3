package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose wrapped", `Here is the result: {"a":1} hope that helps!`, `{"a":1}`},
		{"nested objects", `{"a":{"b":{"c":1}}} trailing`, `{"a":{"b":{"c":1}}}`},
		{"braces inside strings", `{"text":"use {curly} braces"}`, `{"text":"use {curly} braces"}`},
		{"escaped quote", `{"text":"she said \"hi\""}`, `{"text":"she said \"hi\""}`},
		{"no object", "nothing here", "nothing here"},
		{"unterminated", `{"a":1`, `{"a":1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func testSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"name", "mood"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"mood": map[string]any{"type": "string", "enum": []string{"calm", "excited"}},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"score": map[string]any{"type": "number"},
		},
	}
}

func TestDecodeStructured(t *testing.T) {
	type doc struct {
		Name  string   `json:"name"`
		Mood  string   `json:"mood"`
		Tags  []string `json:"tags"`
		Score float64  `json:"score"`
	}

	t.Run("valid document", func(t *testing.T) {
		var out doc
		raw := "```json\n{\"name\":\"tower play\",\"mood\":\"excited\",\"tags\":[\"blocks\"],\"score\":0.8}\n```"
		require.NoError(t, decodeStructured(raw, testSchema(), &out))
		assert.Equal(t, "tower play", out.Name)
		assert.Equal(t, []string{"blocks"}, out.Tags)
	})

	t.Run("not JSON", func(t *testing.T) {
		var out doc
		err := decodeStructured("the child played happily", testSchema(), &out)
		assert.ErrorIs(t, err, ErrSchemaViolation)
	})

	t.Run("missing required field", func(t *testing.T) {
		var out doc
		err := decodeStructured(`{"name":"tower play"}`, testSchema(), &out)
		assert.ErrorIs(t, err, ErrSchemaViolation)
		assert.ErrorContains(t, err, "mood")
	})

	t.Run("enum violation", func(t *testing.T) {
		var out doc
		err := decodeStructured(`{"name":"x","mood":"angry"}`, testSchema(), &out)
		assert.ErrorIs(t, err, ErrSchemaViolation)
	})

	t.Run("unexpected field", func(t *testing.T) {
		var out doc
		err := decodeStructured(`{"name":"x","mood":"calm","color":"red"}`, testSchema(), &out)
		assert.ErrorIs(t, err, ErrSchemaViolation)
		assert.ErrorContains(t, err, "color")
	})

	t.Run("wrong item type", func(t *testing.T) {
		var out doc
		err := decodeStructured(`{"name":"x","mood":"calm","tags":[1,2]}`, testSchema(), &out)
		assert.ErrorIs(t, err, ErrSchemaViolation)
	})

	t.Run("wrong scalar type", func(t *testing.T) {
		var out doc
		err := decodeStructured(`{"name":"x","mood":"calm","score":"high"}`, testSchema(), &out)
		assert.ErrorIs(t, err, ErrSchemaViolation)
	})
}

func TestValidateAgainstSchemaNilSchema(t *testing.T) {
	assert.NoError(t, validateAgainstSchema(map[string]any{"anything": true}, nil))
}
