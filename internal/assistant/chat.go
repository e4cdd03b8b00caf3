package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumikid/lumikid/internal/llm"
)

// maxHistory is how many messages of conversation history survive a turn.
const maxHistory = 20

// Event types emitted during a streamed chat turn.
const (
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventContent    = "content"
	EventDone       = "done"
)

// Event is one streamed assistant event.
type Event struct {
	Type    string        `json:"type"`
	Name    string        `json:"name,omitempty"`    // tool name for tool_call/tool_result
	Content string        `json:"content,omitempty"` // text delta, or tool arguments/result JSON
	History []llm.Message `json:"history,omitempty"` // done only
}

// ChatResult is the outcome of one assistant turn.
type ChatResult struct {
	Reply     string        `json:"reply"`
	ToolsUsed []string      `json:"tools_used"`
	History   []llm.Message `json:"history"`
}

// Assistant runs tool-calling conversations against the memory core.
type Assistant struct {
	gateway  llm.Gateway
	registry *Registry
}

// NewAssistant creates an assistant over a pre-populated registry.
func NewAssistant(gateway llm.Gateway, registry *Registry) *Assistant {
	return &Assistant{gateway: gateway, registry: registry}
}

// Chat runs one user turn. When emit is non-nil, tool invocations and reply
// deltas stream through it as events; the final done event carries the
// trimmed history. Two LLM turns at most: a tool-calling turn, then a plain
// turn over the tool results.
func (a *Assistant) Chat(ctx context.Context, childID, userMessage string, history []llm.Message, emit func(Event)) (*ChatResult, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, fmt.Errorf("assistant: message is required")
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: a.systemPrompt(childID)})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: userMessage})

	first, err := a.gateway.ChatWithTools(ctx, messages, a.registry.Definitions(), llm.ChatOptions())
	if err != nil {
		return nil, fmt.Errorf("assistant: tool turn: %w", err)
	}

	var reply string
	toolsUsed := []string{}
	if len(first.ToolCalls) > 0 {
		messages = append(messages, llm.Message{
			Role: "assistant", Content: first.Content, ToolCalls: first.ToolCalls,
		})
		for _, call := range first.ToolCalls {
			if emit != nil {
				emit(Event{Type: EventToolCall, Name: call.Name, Content: call.Arguments})
			}
			result := a.registry.Execute(ctx, call)
			if emit != nil {
				emit(Event{Type: EventToolResult, Name: call.Name, Content: result})
			}
			toolsUsed = append(toolsUsed, call.Name)
			messages = append(messages, llm.Message{
				Role: "tool", Content: result, ToolCallID: call.ID,
			})
		}

		reply, err = a.replyTurn(ctx, messages, emit)
		if err != nil {
			return nil, err
		}
	} else {
		// No tools needed; the first turn's content is the reply.
		reply = first.Content
		if emit != nil && reply != "" {
			emit(Event{Type: EventContent, Content: reply})
		}
	}

	newHistory := append(history,
		llm.Message{Role: "user", Content: userMessage},
		llm.Message{Role: "assistant", Content: reply})
	newHistory = trimHistory(newHistory)

	if emit != nil {
		emit(Event{Type: EventDone, History: newHistory})
	}
	return &ChatResult{Reply: reply, ToolsUsed: toolsUsed, History: newHistory}, nil
}

// replyTurn produces the natural-language answer over the tool results,
// streaming deltas when emit is set.
func (a *Assistant) replyTurn(ctx context.Context, messages []llm.Message, emit func(Event)) (string, error) {
	if emit == nil {
		result, err := a.gateway.StreamChat(ctx, messages, llm.ChatOptions(), nil)
		if err != nil {
			return "", fmt.Errorf("assistant: reply turn: %w", err)
		}
		return result.Content, nil
	}
	result, err := a.gateway.StreamChat(ctx, messages, llm.ChatOptions(), func(delta string) {
		emit(Event{Type: EventContent, Content: delta})
	})
	if err != nil {
		return "", fmt.Errorf("assistant: reply turn: %w", err)
	}
	return result.Content, nil
}

func (a *Assistant) systemPrompt(childID string) string {
	return fmt.Sprintf(`You are Lumikid, an assistant helping caregivers of a child on the autism spectrum. The current child's id is %q.

You have tools that read from and write to the child's memory record. Rules:
- When the caregiver describes something the child DID, you MUST call record_behavior with their words before replying.
- When asked about the child's behaviors, interests, progress, games, or assessments, you MUST answer from the matching query tool. Never answer "I don't know" when a tool could answer.
- Pass %q as child_id on every tool call unless the caregiver names a different child.
- Keep replies warm, concrete, and short. Ground every claim in tool results.`, childID, childID)
}

// trimHistory keeps the most recent maxHistory messages.
func trimHistory(history []llm.Message) []llm.Message {
	if len(history) <= maxHistory {
		return history
	}
	return history[len(history)-maxHistory:]
}
