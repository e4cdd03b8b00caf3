package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumikid/lumikid/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.LLMConfig{
		Enabled: true,
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	})
}

func chatCompletionBody(content string) string {
	resp := map[string]any{
		"choices": []any{map[string]any{
			"message":       map[string]any{"content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestChat(t *testing.T) {
	var got chatRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(chatCompletionBody("hello there")))
	})

	history := []Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	result, err := client.Chat(context.Background(), "you are helpful", "new question", history, ChatOptions())
	require.NoError(t, err)

	assert.Equal(t, "hello there", result.Content)
	assert.Equal(t, 15, result.Usage.TotalTokens)

	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "earlier question", got.Messages[1].Content)
	assert.Equal(t, "new question", got.Messages[3].Content)
	assert.Equal(t, "test-model", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 0.001)
}

func TestChatSmallModelRouting(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(chatCompletionBody("ok")))
	}))
	t.Cleanup(srv.Close)
	client := NewClient(config.LLMConfig{
		Enabled:    true,
		BaseURL:    srv.URL,
		Model:      "big-model",
		SmallModel: "small-model",
	})

	opts := ChatOptions()
	opts.UseSmallModel = true
	_, err := client.Chat(context.Background(), "", "hi", nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "small-model", got.Model)

	// An explicit model pin wins over the flag.
	opts.Model = "pinned-model"
	_, err = client.Chat(context.Background(), "", "hi", nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "pinned-model", got.Model)

	// Without the flag the default model is used.
	_, err = client.Chat(context.Background(), "", "hi", nil, ChatOptions())
	require.NoError(t, err)
	assert.Equal(t, "big-model", got.Model)
}

func TestStructured(t *testing.T) {
	var got chatRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(chatCompletionBody("```json\n{\"name\":\"tower\",\"mood\":\"calm\"}\n```")))
	})

	var out struct {
		Name string `json:"name"`
		Mood string `json:"mood"`
	}
	usage, err := client.Structured(context.Background(), "extract", "the child built a tower", testSchema(), &out, ExtractionOptions())
	require.NoError(t, err)

	assert.Equal(t, "tower", out.Name)
	assert.Equal(t, 15, usage.TotalTokens)
	rf, ok := got.ResponseFormat["json_schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, rf["strict"])
}

func TestStructuredSchemaViolation(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatCompletionBody(`{"name":"tower","mood":"furious"}`)))
	})

	var out map[string]any
	_, err := client.Structured(context.Background(), "extract", "text", testSchema(), &out, ExtractionOptions())
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestPostRetriesAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(chatCompletionBody("recovered")))
	})

	result, err := client.Chat(context.Background(), "", "hi", nil, CallOptions{Timeout: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPostRateLimitExhaustion(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Chat(context.Background(), "", "hi", nil, CallOptions{Timeout: 10 * time.Second})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestChatProviderError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Chat(context.Background(), "", "hi", nil, ChatOptions())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestEmbed(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}],"usage":{"total_tokens":3}}`))
	})

	vec, err := client.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedEmptyResponse(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	_, err := client.Embed(context.Background(), "some text")
	assert.Error(t, err)
}

func TestDisabledGateway(t *testing.T) {
	g := NewGateway(config.LLMConfig{Enabled: false})
	ctx := context.Background()

	_, err := g.Chat(ctx, "", "hi", nil, ChatOptions())
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = g.Structured(ctx, "", "hi", nil, &struct{}{}, ExtractionOptions())
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = g.ChatWithTools(ctx, nil, nil, ChatOptions())
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = g.StreamChat(ctx, nil, ChatOptions(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = g.Embed(ctx, "hi")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := newCircuitBreakerWithConfig(breakerConfig{
		maxFailures:          2,
		timeout:              time.Minute,
		halfOpenMaxSuccesses: 1,
	})
	boom := errors.New("provider down")
	fail := func() (any, error) { return nil, boom }

	ctx := context.Background()
	_, err := cb.execute(ctx, fail)
	assert.ErrorIs(t, err, boom)
	_, err = cb.execute(ctx, fail)
	assert.ErrorIs(t, err, boom)

	_, err = cb.execute(ctx, func() (any, error) { return "unreached", nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, "open", cb.state())
}

func TestCircuitBreakerHonorsContext(t *testing.T) {
	cb := newCircuitBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.execute(ctx, func() (any, error) { return "unreached", nil })
	assert.ErrorIs(t, err, context.Canceled)
}
