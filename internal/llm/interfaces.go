// Package llm provides the unified LLM gateway for the Lumikid memory core:
// plain chat, schema-constrained structured output, streaming tool calls, and
// embeddings over any OpenAI-compatible endpoint.
package llm

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable indicates the gateway is disabled or the provider could
	// not be reached within the retry budget.
	ErrUnavailable = errors.New("llm gateway unavailable")

	// ErrSchemaViolation indicates a structured-output response that is not
	// valid under the requested JSON schema. No silent coercion.
	ErrSchemaViolation = errors.New("llm response violates schema")

	// ErrRateLimited indicates the provider rejected the call for quota
	// reasons after retries. The caller decides whether to retry.
	ErrRateLimited = errors.New("llm provider rate limited")
)

// Message is one turn of a conversation in OpenAI chat format.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolDefinition describes one callable tool exposed to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema for the arguments
}

// ToolCall is one tool invocation emitted by the model. Arguments is the raw
// JSON string; in streaming mode it is the concatenation of delta fragments.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage carries the provider's token counters, returned with every call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the outcome of a chat or tool-calling turn.
type Result struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// CallOptions are per-call-site parameters. Zero values fall back to the
// client's configured model and the mode's documented defaults.
// UseSmallModel routes the call to the configured cheap model; an explicit
// Model wins over it.
type CallOptions struct {
	Model         string
	UseSmallModel bool
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
}

// ExtractionOptions returns the defaults for extraction calls: low
// temperature, generous timeout.
func ExtractionOptions() CallOptions {
	return CallOptions{Temperature: 0.3, Timeout: 60 * time.Second}
}

// ChatOptions returns the defaults for assistant chat turns.
func ChatOptions() CallOptions {
	return CallOptions{Temperature: 0.7, Timeout: 30 * time.Second}
}

// Gateway is the single call surface the rest of the system uses.
type Gateway interface {
	// Chat runs a plain completion: system prompt, user message, optional
	// history.
	Chat(ctx context.Context, system, user string, history []Message, opts CallOptions) (*Result, error)

	// Structured runs a schema-constrained completion and decodes the JSON
	// object into out. Responses that are not valid under schema fail with
	// ErrSchemaViolation.
	Structured(ctx context.Context, system, user string, schema map[string]any, out any, opts CallOptions) (Usage, error)

	// ChatWithTools runs a tool-calling-enabled turn over the full message
	// list. The provider streams chunks; tool-call argument deltas are
	// concatenated until the call ends.
	ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, opts CallOptions) (*Result, error)

	// StreamChat runs a completion and invokes onDelta for every text chunk
	// as it arrives, returning the accumulated result.
	StreamChat(ctx context.Context, messages []Message, opts CallOptions, onDelta func(delta string)) (*Result, error)

	// Embed generates a fixed-dimension embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
