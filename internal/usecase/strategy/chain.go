package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/protobench/internal/chunk"
	"github.com/kailas-cloud/protobench/internal/domain"
)

// Chain processes the document as a sequence of overlapping windows, one
// model call per window, then combines the partial answers with a final
// aggregation call. Any failed call aborts the whole run.
type Chain struct {
	invoker domain.Invoker
}

// NewChain creates the chain strategy.
func NewChain(invoker domain.Invoker) *Chain {
	return &Chain{invoker: invoker}
}

func (c *Chain) Name() domain.Protocol { return domain.ProtocolChain }

func (c *Chain) Execute(ctx context.Context, in domain.ProtocolInput) (domain.StrategyOutput, error) {
	opts, err := domain.ParseChainOptions(in.Config)
	if err != nil {
		return domain.StrategyOutput{}, err
	}

	chunks, err := chunk.SplitSequential(in.Document, opts.ChunkSize, opts.Overlap)
	if err != nil {
		return domain.StrategyOutput{}, err
	}

	cfg := domain.GenerationConfig{
		MaxTokens:   opts.MaxTokens,
		Temperature: domain.DefaultTemperature,
	}

	totalTokens := 0

	// An empty document degenerates to a single direct call.
	if len(chunks) == 0 {
		gen, err := c.invoker.Generate(ctx, in.Prompt, cfg)
		if err != nil {
			return domain.StrategyOutput{}, fmt.Errorf("chain generation: %w", err)
		}
		return domain.StrategyOutput{
			Response: gen.Text,
			Tokens:   gen.Tokens,
			Metadata: map[string]any{"chunks": 0, "model_calls": 1},
		}, nil
	}

	partials := make([]string, 0, len(chunks))
	for i, part := range chunks {
		prompt := fmt.Sprintf(
			"%s\n\nDocument part %d of %d:\n%s",
			in.Prompt, i+1, len(chunks), part,
		)
		gen, err := c.invoker.Generate(ctx, prompt, cfg)
		if err != nil {
			return domain.StrategyOutput{}, fmt.Errorf("chain part %d/%d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, gen.Text)
		totalTokens += gen.Tokens
	}

	// Aggregation runs even for a single window so the final answer is always
	// produced by the same combining call.
	aggPrompt := fmt.Sprintf(
		"%s\n\nCombine the following partial answers, produced from consecutive parts "+
			"of one document, into a single coherent answer:\n\n%s",
		in.Prompt, numberedList(partials),
	)
	gen, err := c.invoker.Generate(ctx, aggPrompt, cfg)
	if err != nil {
		return domain.StrategyOutput{}, fmt.Errorf("chain aggregation: %w", err)
	}
	totalTokens += gen.Tokens

	return domain.StrategyOutput{
		Response: gen.Text,
		Tokens:   totalTokens,
		Metadata: map[string]any{
			"chunks":      len(chunks),
			"model_calls": len(chunks) + 1,
		},
	}, nil
}

func numberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return b.String()
}
