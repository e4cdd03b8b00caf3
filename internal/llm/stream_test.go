package llm

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", line)
		}
	}
}

func TestStreamChat(t *testing.T) {
	client := testClient(t, sseHandler(
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo "}}]}`,
		`{"choices":[{"delta":{"content":"world"},"finish_reason":"stop"}]}`,
		`{"choices":[],"usage":{"prompt_tokens":4,"completion_tokens":3,"total_tokens":7}}`,
		`[DONE]`,
	))

	var deltas []string
	result, err := client.StreamChat(context.Background(),
		[]Message{{Role: "user", Content: "hi"}}, ChatOptions(),
		func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)

	assert.Equal(t, "Hello world", result.Content)
	assert.Equal(t, []string{"Hel", "lo ", "world"}, deltas)
	assert.Equal(t, "stop", result.FinishReason)
	assert.Equal(t, 7, result.Usage.TotalTokens)
	assert.Empty(t, result.ToolCalls)
}

func TestChatWithToolsAccumulatesArgumentDeltas(t *testing.T) {
	client := testClient(t, sseHandler(
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"query_behaviors","arguments":"{\"child"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"_id\":\"c1\"}"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":1,"id":"call_2","function":{"name":"get_child_profile","arguments":"{}"}}]}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		`[DONE]`,
	))

	tools := []ToolDefinition{{Name: "query_behaviors", Parameters: map[string]any{"type": "object"}}}
	result, err := client.ChatWithTools(context.Background(),
		[]Message{{Role: "user", Content: "what did she do today?"}}, tools, ChatOptions())
	require.NoError(t, err)

	require.Len(t, result.ToolCalls, 2)
	assert.Equal(t, "call_1", result.ToolCalls[0].ID)
	assert.Equal(t, "query_behaviors", result.ToolCalls[0].Name)
	assert.JSONEq(t, `{"child_id":"c1"}`, result.ToolCalls[0].Arguments)
	assert.Equal(t, "get_child_profile", result.ToolCalls[1].Name)
	assert.Equal(t, "tool_calls", result.FinishReason)
}

func TestStreamMalformedChunk(t *testing.T) {
	client := testClient(t, sseHandler(`{not json`))

	_, err := client.StreamChat(context.Background(),
		[]Message{{Role: "user", Content: "hi"}}, ChatOptions(), nil)
	assert.ErrorContains(t, err, "malformed stream chunk")
}

func TestStreamRateLimited(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.StreamChat(context.Background(),
		[]Message{{Role: "user", Content: "hi"}}, ChatOptions(), nil)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestToolCallAccumulator(t *testing.T) {
	acc := newToolCallAccumulator()
	assert.Nil(t, acc.finish())

	acc.add(1, "call_b", "second", `{"b":`)
	acc.add(0, "call_a", "first", `{}`)
	acc.add(1, "", "", `2}`)

	calls := acc.finish()
	require.Len(t, calls, 2)
	// order of first appearance, not index order
	assert.Equal(t, "second", calls[0].Name)
	assert.Equal(t, `{"b":2}`, calls[0].Arguments)
	assert.Equal(t, "call_a", calls[1].ID)
}
