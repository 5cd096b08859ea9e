// Package runcache memoizes strategy outputs in a key-value store so that
// repeated runs of the same prompt, document and configuration skip the
// model provider entirely.
package runcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/protobench/internal/db"
	"github.com/kailas-cloud/protobench/internal/domain"
)

const cacheKeyPrefix = "protobench:run_cache:"

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache stores serialized strategy outputs keyed by an input fingerprint.
// All storage failures are best-effort: a broken cache degrades to misses
// and never fails a run.
type Cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a result cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Fingerprint derives a deterministic cache key from the run inputs.
// Each component is length-prefixed before hashing so that field
// boundaries cannot collide ("ab"+"c" vs "a"+"bc"). The configuration is
// serialized as JSON, which sorts map keys and therefore yields the same
// bytes regardless of insertion order.
func Fingerprint(prompt, document string, protocol domain.Protocol, config map[string]any) string {
	h := sha256.New()
	writeComponent(h, []byte(prompt))
	writeComponent(h, []byte(document))
	writeComponent(h, []byte(protocol))

	cfg, err := json.Marshal(config)
	if err != nil {
		// Config values arrive from decoded JSON and always re-encode;
		// fall back to an empty config rather than failing the run.
		cfg = []byte("{}")
	}
	writeComponent(h, cfg)

	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func writeComponent(h interface{ Write(p []byte) (int, error) }, b []byte) {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(b)))
	_, _ = h.Write(lenBuf[:])
	_, _ = h.Write(b)
}

// Get returns the memoized output for the key, if present.
func (c *Cache) Get(ctx context.Context, key string) (domain.StrategyOutput, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached result", zap.String("key", key), zap.Error(err))
		}
		c.incCache("miss")
		return domain.StrategyOutput{}, false
	}

	var out domain.StrategyOutput
	if err := json.Unmarshal(data, &out); err != nil {
		c.logger.Warn("Failed to decode cached result", zap.String("key", key), zap.Error(err))
		c.incCache("miss")
		return domain.StrategyOutput{}, false
	}

	c.incCache("hit")
	return out, true
}

// Set stores the output under the key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, out domain.StrategyOutput) {
	data, err := json.Marshal(out)
	if err != nil {
		c.logger.Warn("Failed to encode result for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to store cached result", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
