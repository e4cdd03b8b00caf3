package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/lumikid/lumikid/internal/config"
)

const maxRetries = 3

// Client implements Gateway against any OpenAI-compatible REST endpoint:
// chat completions (plain, structured, tool-calling, streaming) and
// embeddings. The client is stateless across calls and safe for concurrent
// use; a shared circuit breaker protects all modes.
type Client struct {
	cfg        config.LLMConfig
	httpClient *http.Client
	breaker    *circuitBreaker
}

// NewClient creates a gateway client from configuration. When cfg.Enabled is
// false the caller should use NewGateway, which substitutes the disabled
// gateway instead.
func NewClient(cfg config.LLMConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	return &Client{
		cfg: cfg,
		// Per-call timeouts come from CallOptions contexts.
		httpClient: &http.Client{Timeout: 0},
		breaker:    newCircuitBreaker(),
	}
}

// NewGateway returns the production gateway: a Client when LLM use is
// enabled, otherwise a Disabled gateway whose calls fail fast.
func NewGateway(cfg config.LLMConfig) Gateway {
	if !cfg.Enabled {
		log.Printf("llm: gateway disabled (MEMORY_ENABLE_LLM=false); extraction APIs will fail fast")
		return Disabled{}
	}
	return NewClient(cfg)
}

type chatRequest struct {
	Model          string           `json:"model"`
	Messages       []Message        `json:"messages"`
	Temperature    float64          `json:"temperature"`
	MaxTokens      int              `json:"max_tokens,omitempty"`
	Tools          []map[string]any `json:"tools,omitempty"`
	ToolChoice     string           `json:"tool_choice,omitempty"`
	ResponseFormat map[string]any   `json:"response_format,omitempty"`
	Stream         bool             `json:"stream,omitempty"`
	StreamOptions  map[string]any   `json:"stream_options,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Chat runs a plain completion.
func (c *Client) Chat(ctx context.Context, system, user string, history []Message, opts CallOptions) (*Result, error) {
	messages := make([]Message, 0, len(history)+2)
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: user})

	req := chatRequest{
		Model:       c.model(opts),
		Messages:    messages,
		Temperature: c.temperature(opts, 0.7),
		MaxTokens:   opts.MaxTokens,
	}
	return c.complete(ctx, req, c.timeout(opts, 30*time.Second))
}

// Structured runs a schema-constrained completion and decodes into out.
func (c *Client) Structured(ctx context.Context, system, user string, schema map[string]any, out any, opts CallOptions) (Usage, error) {
	messages := []Message{}
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, Message{Role: "user", Content: user})

	req := chatRequest{
		Model:       c.model(opts),
		Messages:    messages,
		Temperature: c.temperature(opts, 0.3),
		MaxTokens:   opts.MaxTokens,
		ResponseFormat: map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "extraction",
				"strict": true,
				"schema": schema,
			},
		},
	}
	result, err := c.complete(ctx, req, c.timeout(opts, 60*time.Second))
	if err != nil {
		return Usage{}, err
	}
	if err := decodeStructured(result.Content, schema, out); err != nil {
		return result.Usage, err
	}
	return result.Usage, nil
}

// ChatWithTools runs a tool-calling-enabled turn. The response streams;
// tool-call argument deltas are concatenated until each call's end marker.
func (c *Client) ChatWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, opts CallOptions) (*Result, error) {
	toolSchemas := make([]map[string]any, len(tools))
	for i, t := range tools {
		toolSchemas[i] = map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		}
	}
	req := chatRequest{
		Model:         c.model(opts),
		Messages:      messages,
		Temperature:   c.temperature(opts, 0.7),
		MaxTokens:     opts.MaxTokens,
		Tools:         toolSchemas,
		ToolChoice:    "auto",
		Stream:        true,
		StreamOptions: map[string]any{"include_usage": true},
	}
	return c.stream(ctx, req, c.timeout(opts, 30*time.Second), nil)
}

// StreamChat runs a completion, invoking onDelta per text chunk.
func (c *Client) StreamChat(ctx context.Context, messages []Message, opts CallOptions, onDelta func(string)) (*Result, error) {
	req := chatRequest{
		Model:         c.model(opts),
		Messages:      messages,
		Temperature:   c.temperature(opts, 0.7),
		MaxTokens:     opts.MaxTokens,
		Stream:        true,
		StreamOptions: map[string]any{"include_usage": true},
	}
	return c.stream(ctx, req, c.timeout(opts, 30*time.Second), onDelta)
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage Usage `json:"usage"`
}

// Embed generates an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	body, err := json.Marshal(embeddingRequest{Model: c.cfg.EmbeddingModel, Input: text})
	if err != nil {
		return nil, fmt.Errorf("llm: failed to marshal embedding request: %w", err)
	}

	result, err := c.breaker.execute(ctx, func() (any, error) {
		data, err := c.post(ctx, "/v1/embeddings", body)
		if err != nil {
			return nil, err
		}
		var resp embeddingResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("llm: failed to decode embedding response: %w", err)
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return nil, fmt.Errorf("llm: provider returned empty embedding")
		}
		raw := resp.Data[0].Embedding
		vec := make([]float32, len(raw))
		for i, v := range raw {
			vec[i] = float32(v)
		}
		return vec, nil
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return result.([]float32), nil
}

func (c *Client) complete(ctx context.Context, req chatRequest, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llm: failed to marshal request: %w", err)
	}

	result, err := c.breaker.execute(ctx, func() (any, error) {
		data, err := c.post(ctx, "/v1/chat/completions", body)
		if err != nil {
			return nil, err
		}
		var resp chatResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("llm: failed to decode response: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("llm: provider returned no choices")
		}
		choice := resp.Choices[0]
		out := &Result{
			Content:      choice.Message.Content,
			FinishReason: choice.FinishReason,
			Usage:        resp.Usage,
		}
		for _, tc := range choice.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		return out, nil
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return result.(*Result), nil
}

// post sends one JSON request, retrying 429s with the provider's Retry-After
// hint. Other non-200 statuses fail immediately.
func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	var lastBody []byte
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("llm: failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("llm: failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return data, nil
		}
		lastBody = data
		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries {
			delay := retryDelay(resp.Header.Get("Retry-After"))
			log.Printf("llm: rate limited (429), retrying in %v (attempt %d/%d)", delay, attempt+1, maxRetries)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, string(data))
		}
		return nil, fmt.Errorf("llm: provider returned status %d: %s", resp.StatusCode, string(data))
	}
	return nil, fmt.Errorf("%w: %s", ErrRateLimited, string(lastBody))
}

func retryDelay(retryAfter string) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 2 * time.Second
}

func (c *Client) model(opts CallOptions) string {
	if opts.Model != "" {
		return opts.Model
	}
	if opts.UseSmallModel && c.cfg.SmallModel != "" {
		return c.cfg.SmallModel
	}
	return c.cfg.Model
}

func (c *Client) temperature(opts CallOptions, fallback float64) float64 {
	if opts.Temperature > 0 {
		return opts.Temperature
	}
	return fallback
}

func (c *Client) timeout(opts CallOptions, fallback time.Duration) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return fallback
}

// Compile-time assertion.
var _ Gateway = (*Client)(nil)
