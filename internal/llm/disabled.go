package llm

import (
	"context"
	"fmt"
)

// Disabled is the gateway used when MEMORY_ENABLE_LLM is false: every call
// fails fast so that extraction APIs surface a typed failure while direct
// read/write APIs keep working.
type Disabled struct{}

func (Disabled) Chat(context.Context, string, string, []Message, CallOptions) (*Result, error) {
	return nil, disabledErr()
}

func (Disabled) Structured(context.Context, string, string, map[string]any, any, CallOptions) (Usage, error) {
	return Usage{}, disabledErr()
}

func (Disabled) ChatWithTools(context.Context, []Message, []ToolDefinition, CallOptions) (*Result, error) {
	return nil, disabledErr()
}

func (Disabled) StreamChat(context.Context, []Message, CallOptions, func(string)) (*Result, error) {
	return nil, disabledErr()
}

func (Disabled) Embed(context.Context, string) ([]float32, error) {
	return nil, disabledErr()
}

func disabledErr() error {
	return fmt.Errorf("%w: disabled by configuration", ErrUnavailable)
}

// Compile-time assertion.
var _ Gateway = Disabled{}
