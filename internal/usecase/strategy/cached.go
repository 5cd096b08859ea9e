package strategy

import (
	"context"

	"github.com/kailas-cloud/protobench/internal/domain"
	"github.com/kailas-cloud/protobench/internal/repository/runcache"
)

// resultCache is the consumer interface over the run-result cache (ISP).
type resultCache interface {
	Get(ctx context.Context, key string) (domain.StrategyOutput, bool)
	Set(ctx context.Context, key string, out domain.StrategyOutput)
}

// Cached memoizes an executor's output keyed by the input fingerprint.
// On a hit the inner executor is not invoked and the cached output is
// returned as-is, including its original token count.
type Cached struct {
	inner Executor
	cache resultCache
}

// NewCached wraps inner with result caching.
func NewCached(inner Executor, cache resultCache) *Cached {
	return &Cached{inner: inner, cache: cache}
}

func (c *Cached) Name() domain.Protocol { return c.inner.Name() }

func (c *Cached) Execute(ctx context.Context, in domain.ProtocolInput) (domain.StrategyOutput, error) {
	key := runcache.Fingerprint(in.Prompt, in.Document, c.inner.Name(), in.Config)

	if out, ok := c.cache.Get(ctx, key); ok {
		return out, nil
	}

	out, err := c.inner.Execute(ctx, in)
	if err != nil {
		return domain.StrategyOutput{}, err
	}

	c.cache.Set(ctx, key, out)
	return out, nil
}
