package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumikid/lumikid/internal/llm"
)

// fakeGateway scripts the two assistant turns.
type fakeGateway struct {
	llm.Gateway
	toolTurn     *llm.Result
	toolTurnErr  error
	replyContent string
	replyErr     error

	toolTurnMessages  []llm.Message
	replyTurnMessages []llm.Message
	toolDefs          []llm.ToolDefinition
}

func (g *fakeGateway) ChatWithTools(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, opts llm.CallOptions) (*llm.Result, error) {
	g.toolTurnMessages = messages
	g.toolDefs = tools
	if g.toolTurnErr != nil {
		return nil, g.toolTurnErr
	}
	return g.toolTurn, nil
}

func (g *fakeGateway) StreamChat(ctx context.Context, messages []llm.Message, opts llm.CallOptions, onDelta func(string)) (*llm.Result, error) {
	g.replyTurnMessages = messages
	if g.replyErr != nil {
		return nil, g.replyErr
	}
	if onDelta != nil {
		for _, r := range g.replyContent {
			onDelta(string(r))
		}
	}
	return &llm.Result{Content: g.replyContent}, nil
}

// echoTool returns its arguments, or fails on demand.
type echoTool struct {
	name string
	err  error
}

func (t *echoTool) Name() string               { return t.name }
func (t *echoTool) Description() string        { return "echoes arguments back" }
func (t *echoTool) Parameters() map[string]any { return objectSchema(map[string]any{}) }
func (t *echoTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	if t.err != nil {
		return nil, t.err
	}
	return args, nil
}

func TestChatWithToolCalls(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&echoTool{name: "query_behaviors"})
	gw := &fakeGateway{
		toolTurn: &llm.Result{ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "query_behaviors", Arguments: `{"child_id":"c1"}`},
		}},
		replyContent: "He stacked blocks today.",
	}
	a := NewAssistant(gw, reg)

	var events []Event
	result, err := a.Chat(context.Background(), "c1", "what did he do today?", nil,
		func(e Event) { events = append(events, e) })
	require.NoError(t, err)

	assert.Equal(t, "He stacked blocks today.", result.Reply)
	assert.Equal(t, []string{"query_behaviors"}, result.ToolsUsed)

	// system prompt first, user message last on the tool turn
	require.NotEmpty(t, gw.toolTurnMessages)
	assert.Equal(t, "system", gw.toolTurnMessages[0].Role)
	assert.Contains(t, gw.toolTurnMessages[0].Content, `"c1"`)
	assert.Equal(t, "user", gw.toolTurnMessages[len(gw.toolTurnMessages)-1].Role)
	require.Len(t, gw.toolDefs, 1)

	// The reply turn sees the assistant tool-call message and the tool result.
	n := len(gw.replyTurnMessages)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, "tool", gw.replyTurnMessages[n-1].Role)
	assert.Equal(t, "call_1", gw.replyTurnMessages[n-1].ToolCallID)
	assert.Equal(t, "assistant", gw.replyTurnMessages[n-2].Role)

	// Event order: tool_call, tool_result, content deltas, done.
	require.NotEmpty(t, events)
	assert.Equal(t, EventToolCall, events[0].Type)
	assert.Equal(t, "query_behaviors", events[0].Name)
	assert.Equal(t, EventToolResult, events[1].Type)
	assert.JSONEq(t, `{"child_id":"c1"}`, events[1].Content)
	assert.Equal(t, EventContent, events[2].Type)
	last := events[len(events)-1]
	assert.Equal(t, EventDone, last.Type)
	require.Len(t, last.History, 2)
	assert.Equal(t, "user", last.History[0].Role)
	assert.Equal(t, "He stacked blocks today.", last.History[1].Content)
}

func TestChatWithoutToolCalls(t *testing.T) {
	reg := NewRegistry()
	gw := &fakeGateway{toolTurn: &llm.Result{Content: "Hello! How is he doing?"}}
	a := NewAssistant(gw, reg)

	var events []Event
	result, err := a.Chat(context.Background(), "c1", "hi", nil,
		func(e Event) { events = append(events, e) })
	require.NoError(t, err)

	assert.Equal(t, "Hello! How is he doing?", result.Reply)
	assert.Empty(t, result.ToolsUsed)
	// One content event with the full reply, then done.
	require.Len(t, events, 2)
	assert.Equal(t, EventContent, events[0].Type)
	assert.Equal(t, result.Reply, events[0].Content)
	assert.Equal(t, EventDone, events[1].Type)
	// The reply turn never ran.
	assert.Empty(t, gw.replyTurnMessages)
}

func TestChatWithoutEmitter(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&echoTool{name: "query_behaviors"})
	gw := &fakeGateway{
		toolTurn: &llm.Result{ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "query_behaviors", Arguments: `{}`},
		}},
		replyContent: "done",
	}
	a := NewAssistant(gw, reg)

	result, err := a.Chat(context.Background(), "c1", "question", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "done", result.Reply)
}

func TestChatValidatesMessage(t *testing.T) {
	a := NewAssistant(&fakeGateway{}, NewRegistry())
	_, err := a.Chat(context.Background(), "c1", "   ", nil, nil)
	assert.Error(t, err)
}

func TestChatPropagatesGatewayErrors(t *testing.T) {
	a := NewAssistant(&fakeGateway{toolTurnErr: llm.ErrUnavailable}, NewRegistry())
	_, err := a.Chat(context.Background(), "c1", "question", nil, nil)
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestChatTrimsHistory(t *testing.T) {
	reg := NewRegistry()
	gw := &fakeGateway{toolTurn: &llm.Result{Content: "ok"}}
	a := NewAssistant(gw, reg)

	history := make([]llm.Message, 30)
	for i := range history {
		history[i] = llm.Message{Role: "user", Content: fmt.Sprintf("message %d", i)}
	}
	result, err := a.Chat(context.Background(), "c1", "latest", history, nil)
	require.NoError(t, err)

	assert.Len(t, result.History, maxHistory)
	// The newest turn survives at the tail.
	assert.Equal(t, "ok", result.History[maxHistory-1].Content)
	assert.Equal(t, "latest", result.History[maxHistory-2].Content)
}

func TestRegistryExecute(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&echoTool{name: "echo"})
	reg.Register(&echoTool{name: "broken", err: errors.New("graph store unavailable")})

	t.Run("success returns JSON", func(t *testing.T) {
		out := reg.Execute(context.Background(), llm.ToolCall{Name: "echo", Arguments: `{"a":1}`})
		assert.JSONEq(t, `{"a":1}`, out)
	})

	t.Run("empty arguments", func(t *testing.T) {
		out := reg.Execute(context.Background(), llm.ToolCall{Name: "echo"})
		assert.JSONEq(t, `{}`, out)
	})

	t.Run("unknown tool becomes error JSON", func(t *testing.T) {
		out := reg.Execute(context.Background(), llm.ToolCall{Name: "missing"})
		assert.Contains(t, out, `"error"`)
		assert.Contains(t, out, "missing")
	})

	t.Run("bad arguments become error JSON", func(t *testing.T) {
		out := reg.Execute(context.Background(), llm.ToolCall{Name: "echo", Arguments: "{broken"})
		assert.Contains(t, out, `"error"`)
	})

	t.Run("tool failure becomes error JSON", func(t *testing.T) {
		out := reg.Execute(context.Background(), llm.ToolCall{Name: "broken", Arguments: `{}`})
		assert.JSONEq(t, `{"error":"graph store unavailable"}`, out)
	})
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&echoTool{name: "zeta"})
	reg.Register(&echoTool{name: "alpha"})

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "zeta", defs[1].Name)
	assert.Equal(t, []string{"alpha", "zeta"}, reg.ToolNames())
}

func TestTrendLabel(t *testing.T) {
	assert.Equal(t, "increasing", trendLabel(4, 6))
	assert.Equal(t, "decreasing", trendLabel(6, 4))
	assert.Equal(t, "stable", trendLabel(5, 5.5))
	assert.Equal(t, "stable", trendLabel(0, 0))
	assert.Equal(t, "increasing", trendLabel(0, 3))
}

func TestNilCollaboratorTools(t *testing.T) {
	game := &recommendGameTool{}
	_, err := game.Execute(context.Background(), map[string]any{"child_id": "c1"})
	assert.Error(t, err)

	gen := &generateAssessmentTool{}
	_, err = gen.Execute(context.Background(), map[string]any{"child_id": "c1"})
	assert.Error(t, err)
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"s": "text",
		"n": float64(7),
		"m": map[string]any{"k": "v"},
	}
	assert.Equal(t, "text", argString(args, "s"))
	assert.Equal(t, "", argString(args, "n"))
	assert.Equal(t, 7, argInt(args, "n"))
	assert.Equal(t, 0, argInt(args, "s"))
	assert.Equal(t, map[string]any{"k": "v"}, argMap(args, "m"))
	assert.Nil(t, argMap(args, "s"))
}
