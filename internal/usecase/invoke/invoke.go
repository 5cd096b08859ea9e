// Package invoke decorates the model invoker with the resilience layers
// applied to every provider call: per-call timeout, circuit breaking and
// client-side rate limiting.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/protobench/internal/domain"
)

// TimeoutInvoker bounds each provider call with a deadline.
type TimeoutInvoker struct {
	inner   domain.Invoker
	timeout time.Duration
}

// NewTimeoutInvoker wraps inner with a per-call timeout.
func NewTimeoutInvoker(inner domain.Invoker, timeout time.Duration) *TimeoutInvoker {
	return &TimeoutInvoker{inner: inner, timeout: timeout}
}

func (t *TimeoutInvoker) Generate(
	ctx context.Context, prompt string, cfg domain.GenerationConfig,
) (domain.Generation, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, prompt, cfg)
}

// BreakerInvoker stops calling a failing provider until it recovers.
type BreakerInvoker struct {
	inner   domain.Invoker
	breaker *gobreaker.CircuitBreaker[domain.Generation]
}

// NewBreakerInvoker wraps inner with a circuit breaker that opens after
// maxFailures consecutive failures and probes again after openTimeout.
func NewBreakerInvoker(inner domain.Invoker, maxFailures uint32, openTimeout time.Duration) *BreakerInvoker {
	settings := gobreaker.Settings{
		Name:    "model-invoker",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
	return &BreakerInvoker{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[domain.Generation](settings),
	}
}

func (b *BreakerInvoker) Generate(
	ctx context.Context, prompt string, cfg domain.GenerationConfig,
) (domain.Generation, error) {
	gen, err := b.breaker.Execute(func() (domain.Generation, error) {
		return b.inner.Generate(ctx, prompt, cfg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.Generation{}, fmt.Errorf("provider circuit open: %w", domain.ErrModelProvider)
		}
		return domain.Generation{}, err
	}
	return gen, nil
}

// RateLimitedInvoker throttles provider calls to a per-minute budget.
// Waiting respects context cancellation.
type RateLimitedInvoker struct {
	inner   domain.Invoker
	limiter *rate.Limiter
}

// NewRateLimitedInvoker wraps inner with a limiter of perMinute calls,
// allowing short bursts up to the same size.
func NewRateLimitedInvoker(inner domain.Invoker, perMinute int) *RateLimitedInvoker {
	return &RateLimitedInvoker{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

func (r *RateLimitedInvoker) Generate(
	ctx context.Context, prompt string, cfg domain.GenerationConfig,
) (domain.Generation, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.Generation{}, fmt.Errorf("rate limit wait: %w", err)
	}
	return r.inner.Generate(ctx, prompt, cfg)
}
