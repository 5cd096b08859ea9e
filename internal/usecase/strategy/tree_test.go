package strategy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/protobench/internal/domain"
)

func TestTree_BranchesThenAggregation(t *testing.T) {
	inv := &mockInvoker{
		generateFn: func(prompt string, _ domain.GenerationConfig) (domain.Generation, error) {
			if strings.Contains(prompt, "aggregation method") {
				return domain.Generation{Text: "combined", Tokens: 5}, nil
			}
			return domain.Generation{Text: "branch", Tokens: 10}, nil
		},
	}

	out, err := NewTree(inv).Execute(context.Background(), domain.ProtocolInput{
		Prompt:   "q",
		Document: "abcdefghijkl",
		Config:   map[string]any{"branch_factor": float64(3)},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if inv.calls() != 4 {
		t.Fatalf("expected 3 branch calls plus aggregation, got %d", inv.calls())
	}
	if out.Response != "combined" {
		t.Errorf("expected aggregation output, got %q", out.Response)
	}
	if out.Tokens != 35 {
		t.Errorf("expected accumulated tokens 35, got %d", out.Tokens)
	}
	if out.Metadata["model_calls"] != 4 {
		t.Errorf("expected 4 model calls in metadata, got %v", out.Metadata["model_calls"])
	}
}

func TestTree_AggregationMethodLabel(t *testing.T) {
	inv := &mockInvoker{
		generateFn: func(prompt string, _ domain.GenerationConfig) (domain.Generation, error) {
			return domain.Generation{Text: "x", Tokens: 1}, nil
		},
	}

	_, err := NewTree(inv).Execute(context.Background(), domain.ProtocolInput{
		Prompt:   "q",
		Document: "abcdefghijkl",
		Config:   map[string]any{"aggregation_method": "voting"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	found := false
	for _, p := range inv.recorded() {
		if strings.Contains(p, `"voting"`) {
			found = true
		}
	}
	if !found {
		t.Error("aggregation prompt misses the method label")
	}
}

func TestTree_SingleBranchIsLeaf(t *testing.T) {
	inv := &mockInvoker{}

	// One rune cannot split into multiple branches.
	_, err := NewTree(inv).Execute(context.Background(), domain.ProtocolInput{
		Prompt:   "q",
		Document: "a",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if inv.calls() != 1 {
		t.Errorf("expected a single leaf call, got %d", inv.calls())
	}
}

func TestTree_BranchFailureFailsRun(t *testing.T) {
	inv := &mockInvoker{
		generateFn: func(prompt string, _ domain.GenerationConfig) (domain.Generation, error) {
			if strings.Contains(prompt, "efgh") {
				return domain.Generation{}, errors.New("provider down")
			}
			return domain.Generation{Text: "ok", Tokens: 1}, nil
		},
	}

	_, err := NewTree(inv).Execute(context.Background(), domain.ProtocolInput{
		Prompt:   "q",
		Document: "abcdefghijkl",
	})
	if err == nil {
		t.Fatal("expected failure when one branch fails")
	}
	if !strings.Contains(err.Error(), "tree branch") {
		t.Errorf("error misses branch context: %v", err)
	}
}

func TestTree_UnknownAggregationMethod(t *testing.T) {
	inv := &mockInvoker{}
	_, err := NewTree(inv).Execute(context.Background(), domain.ProtocolInput{
		Prompt:   "q",
		Document: "abcdef",
		Config:   map[string]any{"aggregation_method": "average"},
	})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if inv.calls() != 0 {
		t.Error("invoker called despite invalid options")
	}
}

func TestTree_DepthTwoRecurses(t *testing.T) {
	inv := &mockInvoker{
		generateFn: func(prompt string, _ domain.GenerationConfig) (domain.Generation, error) {
			return domain.Generation{Text: "x", Tokens: 1}, nil
		},
	}

	// 18 runes, branch_factor 3, depth 2: three branches of 6, each split
	// again into three branches of 2. Nine leaves, three inner
	// aggregations, one root aggregation.
	out, err := NewTree(inv).Execute(context.Background(), domain.ProtocolInput{
		Prompt:   "q",
		Document: strings.Repeat("abcdef", 3),
		Config:   map[string]any{"max_depth": float64(2)},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out.Metadata["model_calls"] != 13 {
		t.Errorf("expected 13 model calls, got %v", out.Metadata["model_calls"])
	}
}
