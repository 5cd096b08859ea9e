package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/protobench/internal/domain"
)

type mapCache struct {
	entries map[string]domain.StrategyOutput
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]domain.StrategyOutput{}}
}

func (m *mapCache) Get(_ context.Context, key string) (domain.StrategyOutput, bool) {
	out, ok := m.entries[key]
	return out, ok
}

func (m *mapCache) Set(_ context.Context, key string, out domain.StrategyOutput) {
	m.sets++
	m.entries[key] = out
}

func TestCached_HitSkipsInner(t *testing.T) {
	inv := &mockInvoker{
		generateFn: func(string, domain.GenerationConfig) (domain.Generation, error) {
			return domain.Generation{Text: "fresh", Tokens: 30}, nil
		},
	}
	cache := newMapCache()
	exec := NewCached(NewRaw(inv), cache)
	in := domain.ProtocolInput{Prompt: "q", Document: "d"}
	ctx := context.Background()

	first, err := exec.Execute(ctx, in)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if inv.calls() != 1 || cache.sets != 1 {
		t.Fatalf("expected 1 call and 1 cache write, got %d/%d", inv.calls(), cache.sets)
	}

	second, err := exec.Execute(ctx, in)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if inv.calls() != 1 {
		t.Error("inner executor invoked on a cache hit")
	}
	if second.Response != first.Response || second.Tokens != first.Tokens {
		t.Errorf("cached output differs: %+v vs %+v", second, first)
	}
}

func TestCached_DifferentConfigMisses(t *testing.T) {
	inv := &mockInvoker{}
	exec := NewCached(NewRaw(inv), newMapCache())
	ctx := context.Background()

	if _, err := exec.Execute(ctx, domain.ProtocolInput{Prompt: "q", Document: "d"}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := exec.Execute(ctx, domain.ProtocolInput{
		Prompt: "q", Document: "d",
		Config: map[string]any{"max_tokens": float64(100)},
	}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if inv.calls() != 2 {
		t.Errorf("expected 2 calls for distinct configurations, got %d", inv.calls())
	}
}

func TestCached_FailureNotCached(t *testing.T) {
	inv := &mockInvoker{
		generateFn: func(string, domain.GenerationConfig) (domain.Generation, error) {
			return domain.Generation{}, errors.New("provider down")
		},
	}
	cache := newMapCache()
	exec := NewCached(NewRaw(inv), cache)

	if _, err := exec.Execute(context.Background(), domain.ProtocolInput{Prompt: "q", Document: "d"}); err == nil {
		t.Fatal("expected failure")
	}
	if cache.sets != 0 {
		t.Error("failed run written to the cache")
	}
}

func TestCached_PreservesName(t *testing.T) {
	exec := NewCached(NewRaw(&mockInvoker{}), newMapCache())
	if exec.Name() != domain.ProtocolRaw {
		t.Errorf("expected raw, got %s", exec.Name())
	}
}
