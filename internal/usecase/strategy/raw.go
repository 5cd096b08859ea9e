package strategy

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/protobench/internal/domain"
)

// Raw feeds the entire document alongside the prompt in a single call.
type Raw struct {
	invoker domain.Invoker
}

// NewRaw creates the raw strategy.
func NewRaw(invoker domain.Invoker) *Raw {
	return &Raw{invoker: invoker}
}

func (r *Raw) Name() domain.Protocol { return domain.ProtocolRaw }

func (r *Raw) Execute(ctx context.Context, in domain.ProtocolInput) (domain.StrategyOutput, error) {
	opts, err := domain.ParseRawOptions(in.Config)
	if err != nil {
		return domain.StrategyOutput{}, err
	}

	prompt := fmt.Sprintf("%s\n\nDocument:\n%s", in.Prompt, in.Document)

	gen, err := r.invoker.Generate(ctx, prompt, domain.GenerationConfig{
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return domain.StrategyOutput{}, fmt.Errorf("raw generation: %w", err)
	}

	return domain.StrategyOutput{
		Response: gen.Text,
		Tokens:   gen.Tokens,
		Metadata: map[string]any{"model_calls": 1},
	}, nil
}
