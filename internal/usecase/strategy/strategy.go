// Package strategy implements the four context-feeding strategies that
// drive a prompt and a document through the model provider: raw single
// call, sequential chain, concurrent tree and retrieval-augmented.
package strategy

import (
	"context"

	"github.com/kailas-cloud/protobench/internal/domain"
)

// Executor runs one strategy over a single input.
type Executor interface {
	Name() domain.Protocol
	Execute(ctx context.Context, in domain.ProtocolInput) (domain.StrategyOutput, error)
}

// retriever is the consumer interface over the fragment index (ISP).
type retriever interface {
	Store(ctx context.Context, id, text string, vector []float32) error
	Query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalChunk, error)
	Delete(ctx context.Context, id string) error
}
