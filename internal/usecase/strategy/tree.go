package strategy

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/protobench/internal/chunk"
	"github.com/kailas-cloud/protobench/internal/domain"
)

// Tree splits the document into branches processed concurrently, then
// merges the branch answers with an aggregation call. With max_depth
// above one, each branch is itself split and aggregated recursively.
// A failure in any branch fails the whole run.
type Tree struct {
	invoker domain.Invoker
}

// NewTree creates the tree strategy.
func NewTree(invoker domain.Invoker) *Tree {
	return &Tree{invoker: invoker}
}

func (t *Tree) Name() domain.Protocol { return domain.ProtocolTree }

func (t *Tree) Execute(ctx context.Context, in domain.ProtocolInput) (domain.StrategyOutput, error) {
	opts, err := domain.ParseTreeOptions(in.Config)
	if err != nil {
		return domain.StrategyOutput{}, err
	}

	text, tokens, calls, err := t.run(ctx, in.Prompt, in.Document, opts, opts.MaxDepth)
	if err != nil {
		return domain.StrategyOutput{}, err
	}

	return domain.StrategyOutput{
		Response: text,
		Tokens:   tokens,
		Metadata: map[string]any{
			"branch_factor":      opts.BranchFactor,
			"max_depth":          opts.MaxDepth,
			"aggregation_method": string(opts.AggregationMethod),
			"model_calls":        calls,
		},
	}, nil
}

func (t *Tree) run(
	ctx context.Context, prompt, text string, opts domain.TreeOptions, depth int,
) (string, int, int, error) {
	branches, err := chunk.SplitBranches(text, opts.BranchFactor)
	if err != nil {
		return "", 0, 0, err
	}

	// Leaf: nothing left to split, or the depth budget is spent.
	if depth < 1 || len(branches) <= 1 {
		gen, err := t.leaf(ctx, prompt, text)
		if err != nil {
			return "", 0, 0, err
		}
		return gen.Text, gen.Tokens, 1, nil
	}

	type branchResult struct {
		text   string
		tokens int
		calls  int
	}
	results := make([]branchResult, len(branches))

	g, gctx := errgroup.WithContext(ctx)
	for i, part := range branches {
		i, part := i, part
		g.Go(func() error {
			txt, tok, calls, err := t.run(gctx, prompt, part, opts, depth-1)
			if err != nil {
				return fmt.Errorf("tree branch %d/%d: %w", i+1, len(branches), err)
			}
			results[i] = branchResult{text: txt, tokens: tok, calls: calls}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", 0, 0, err
	}

	tokens, calls := 0, 0
	partials := make([]string, len(results))
	for i, r := range results {
		partials[i] = r.text
		tokens += r.tokens
		calls += r.calls
	}

	gen, err := t.aggregate(ctx, prompt, partials, opts.AggregationMethod)
	if err != nil {
		return "", 0, 0, fmt.Errorf("tree aggregation: %w", err)
	}
	return gen.Text, tokens + gen.Tokens, calls + 1, nil
}

func (t *Tree) leaf(ctx context.Context, prompt, text string) (domain.Generation, error) {
	p := fmt.Sprintf("%s\n\nDocument section:\n%s", prompt, text)
	gen, err := t.invoker.Generate(ctx, p, domain.GenerationConfig{
		MaxTokens:   domain.DefaultMaxTokens,
		Temperature: domain.DefaultTemperature,
	})
	if err != nil {
		return domain.Generation{}, fmt.Errorf("tree leaf: %w", err)
	}
	return gen, nil
}

func (t *Tree) aggregate(
	ctx context.Context, prompt string, partials []string, method domain.AggregationMethod,
) (domain.Generation, error) {
	p := fmt.Sprintf(
		"%s\n\nCombine the following answers, each covering one section of a document, "+
			"using the %q aggregation method:\n\n%s",
		prompt, method, numberedList(partials),
	)
	return t.invoker.Generate(ctx, p, domain.GenerationConfig{
		MaxTokens:   domain.DefaultMaxTokens,
		Temperature: domain.DefaultTemperature,
	})
}
