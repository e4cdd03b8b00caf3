package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls to let the
// provider recover.
var ErrCircuitOpen = errors.New("llm circuit breaker is open")

// breakerConfig tunes the gobreaker wrapper around provider calls.
type breakerConfig struct {
	maxFailures          uint32        // consecutive failures that trip the circuit
	timeout              time.Duration // open duration before half-open probes
	halfOpenMaxSuccesses uint32        // successes in half-open needed to close
}

// circuitBreaker protects LLM HTTP calls from cascading failures. Closed
// passes calls through; after maxFailures consecutive failures the circuit
// opens and rejects immediately; after timeout it half-opens for probes.
type circuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
}

func newCircuitBreaker() *circuitBreaker {
	return newCircuitBreakerWithConfig(breakerConfig{
		maxFailures:          3,
		timeout:              30 * time.Second,
		halfOpenMaxSuccesses: 2,
	})
}

func newCircuitBreakerWithConfig(cfg breakerConfig) *circuitBreaker {
	settings := gobreaker.Settings{
		Name:        "llm",
		MaxRequests: cfg.halfOpenMaxSuccesses,
		Timeout:     cfg.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.maxFailures
		},
	}
	return &circuitBreaker{breaker: gobreaker.NewCircuitBreaker(settings)}
}

// execute runs fn through the breaker, honoring context cancellation before
// the call is attempted.
func (cb *circuitBreaker) execute(ctx context.Context, fn func() (any, error)) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err := cb.breaker.Execute(func() (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return result, err
}

// state reports "closed", "open", or "half-open" for observability endpoints.
func (cb *circuitBreaker) state() string {
	switch cb.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
