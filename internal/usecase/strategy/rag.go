package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/protobench/internal/domain"
)

// RAG indexes the document as an embedded fragment, retrieves the
// fragments most similar to the prompt and generates an answer from the
// retrieved context only. Indexed fragments are removed when the run
// finishes, whatever its outcome.
type RAG struct {
	invoker  domain.Invoker
	embedder domain.Embedder
	index    retriever
	logger   *zap.Logger
}

// NewRAG creates the retrieval-augmented strategy.
func NewRAG(invoker domain.Invoker, embedder domain.Embedder, index retriever, logger *zap.Logger) *RAG {
	return &RAG{invoker: invoker, embedder: embedder, index: index, logger: logger}
}

func (r *RAG) Name() domain.Protocol { return domain.ProtocolRAG }

func (r *RAG) Execute(ctx context.Context, in domain.ProtocolInput) (domain.StrategyOutput, error) {
	opts, err := domain.ParseRAGOptions(in.Config)
	if err != nil {
		return domain.StrategyOutput{}, err
	}

	docEmb, err := r.embedder.Embed(ctx, in.Document, opts.EmbeddingModel)
	if err != nil {
		return domain.StrategyOutput{}, fmt.Errorf("embed document: %w", err)
	}

	fragID := uuid.NewString()
	if err := r.index.Store(ctx, fragID, in.Document, docEmb.Vector); err != nil {
		return domain.StrategyOutput{}, err
	}
	defer func() {
		// Cleanup must run on every exit path so no fragment outlives its run.
		if err := r.index.Delete(context.WithoutCancel(ctx), fragID); err != nil {
			r.logger.Warn("Failed to delete fragment", zap.String("fragment_id", fragID), zap.Error(err))
		}
	}()

	promptEmb, err := r.embedder.Embed(ctx, in.Prompt, opts.EmbeddingModel)
	if err != nil {
		return domain.StrategyOutput{}, fmt.Errorf("embed prompt: %w", err)
	}

	chunks, err := r.index.Query(ctx, promptEmb.Vector, opts.TopK)
	if err != nil {
		return domain.StrategyOutput{}, err
	}

	relevant := make([]domain.RetrievalChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Similarity >= opts.SimilarityThreshold {
			relevant = append(relevant, c)
		}
	}

	prompt := r.buildPrompt(in.Prompt, relevant)
	gen, err := r.invoker.Generate(ctx, prompt, domain.GenerationConfig{
		MaxTokens:   domain.DefaultMaxTokens,
		Temperature: domain.DefaultTemperature,
	})
	if err != nil {
		return domain.StrategyOutput{}, fmt.Errorf("rag generation: %w", err)
	}

	return domain.StrategyOutput{
		Response: gen.Text,
		Tokens:   gen.Tokens + docEmb.Tokens + promptEmb.Tokens,
		Metadata: map[string]any{
			"fragments_retrieved": len(chunks),
			"fragments_used":      len(relevant),
			"top_k":               opts.TopK,
		},
	}, nil
}

func (r *RAG) buildPrompt(question string, chunks []domain.RetrievalChunk) string {
	if len(chunks) == 0 {
		return fmt.Sprintf(
			"%s\n\nNo relevant context was retrieved. Answer from general knowledge "+
				"and say that the document did not help.",
			question,
		)
	}

	var b strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&b, "[%d] (similarity %.2f) %s\n", i+1, c.Similarity, c.Text)
	}
	return fmt.Sprintf("%s\n\nRetrieved context:\n%s", question, b.String())
}
