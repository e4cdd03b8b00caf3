// Package assistant is the conversational front-end of the memory core: a
// tool-calling LLM loop over the same fact store the rest of the system
// writes to.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/lumikid/lumikid/internal/llm"
)

// Tool is one callable capability exposed to the model.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON schema for the arguments
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Registry holds the tool set for one assistant.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds a tool, replacing any previous tool of the same name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the tool definitions in name order for the LLM call.
func (r *Registry) Definitions() []llm.ToolDefinition {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Execute runs one tool call and returns its result serialized as JSON.
// Failures never propagate: they become structured error objects the model
// can read and recover from.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) string {
	tool, ok := r.Get(call.Name)
	if !ok {
		return errorJSON(fmt.Sprintf("unknown tool %q", call.Name))
	}
	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return errorJSON(fmt.Sprintf("invalid arguments: %v", err))
		}
	}
	result, err := tool.Execute(ctx, args)
	if err != nil {
		log.Printf("assistant: tool %s: %v", call.Name, err)
		return errorJSON(err.Error())
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return errorJSON(fmt.Sprintf("unencodable result: %v", err))
	}
	return string(raw)
}

func errorJSON(msg string) string {
	raw, _ := json.Marshal(map[string]any{"error": msg})
	return string(raw)
}

// Argument coercion helpers. Tool arguments arrive as decoded JSON, so
// numbers are float64.

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func argMap(args map[string]any, key string) map[string]any {
	m, _ := args[key].(map[string]any)
	return m
}
