// Package retrieval wraps the vector store with the transient fragment
// index used by retrieval-augmented runs. Fragments live only for the
// duration of a run; callers store, query and then delete.
package retrieval

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/protobench/internal/db"
	"github.com/kailas-cloud/protobench/internal/domain"
)

// vectorStore is the consumer interface for the fragment index (ISP).
type vectorStore interface {
	VectorSet(ctx context.Context, id, text string, vector []float32) error
	VectorSearch(ctx context.Context, vector []float32, topK int) ([]db.VectorMatch, error)
	VectorDel(ctx context.Context, id string) error
}

// Index is the document fragment index backing similarity retrieval.
type Index struct {
	store vectorStore
}

// New creates a fragment index over the given vector store.
func New(s vectorStore) *Index {
	return &Index{store: s}
}

// Store indexes one embedded fragment under the given id.
func (i *Index) Store(ctx context.Context, id, text string, vector []float32) error {
	if err := i.store.VectorSet(ctx, id, text, vector); err != nil {
		return fmt.Errorf("store fragment %s: %w: %w", id, domain.ErrRetrievalIndex, err)
	}
	return nil
}

// Query returns the topK fragments most similar to the query vector,
// ordered by descending similarity.
func (i *Index) Query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalChunk, error) {
	matches, err := i.store.VectorSearch(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w: %w", domain.ErrRetrievalIndex, err)
	}

	chunks := make([]domain.RetrievalChunk, 0, len(matches))
	for _, m := range matches {
		chunks = append(chunks, domain.RetrievalChunk{
			ID:         m.ID,
			Text:       m.Text,
			Similarity: m.Similarity,
		})
	}
	return chunks, nil
}

// Delete removes one fragment from the index. Missing fragments are not
// an error so that cleanup stays idempotent.
func (i *Index) Delete(ctx context.Context, id string) error {
	if err := i.store.VectorDel(ctx, id); err != nil {
		return fmt.Errorf("delete fragment %s: %w: %w", id, domain.ErrRetrievalIndex, err)
	}
	return nil
}
