package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/protobench/internal/db"
	"github.com/kailas-cloud/protobench/internal/db/memory"
	"github.com/kailas-cloud/protobench/internal/domain"
)

func TestIndex_StoreQueryDelete(t *testing.T) {
	idx := New(memory.NewStore())
	ctx := context.Background()

	if err := idx.Store(ctx, "frag-1", "alpha", []float32{1, 0, 0}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := idx.Store(ctx, "frag-2", "beta", []float32{0, 1, 0}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	chunks, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ID != "frag-1" {
		t.Errorf("expected frag-1 first, got %s", chunks[0].ID)
	}
	if chunks[0].Text != "alpha" {
		t.Errorf("expected text alpha, got %q", chunks[0].Text)
	}
	if chunks[0].Similarity <= chunks[1].Similarity {
		t.Errorf("results not ordered by similarity: %v vs %v",
			chunks[0].Similarity, chunks[1].Similarity)
	}

	if err := idx.Delete(ctx, "frag-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	chunks, err = idx.Query(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	for _, c := range chunks {
		if c.ID == "frag-1" {
			t.Error("deleted fragment still returned")
		}
	}
}

type failingStore struct{}

func (failingStore) VectorSet(context.Context, string, string, []float32) error {
	return errors.New("down")
}

func (failingStore) VectorSearch(context.Context, []float32, int) ([]db.VectorMatch, error) {
	return nil, errors.New("down")
}

func (failingStore) VectorDel(context.Context, string) error {
	return errors.New("down")
}

func TestIndex_WrapsErrors(t *testing.T) {
	idx := New(failingStore{})
	ctx := context.Background()

	if err := idx.Store(ctx, "id", "t", nil); !errors.Is(err, domain.ErrRetrievalIndex) {
		t.Errorf("Store: expected ErrRetrievalIndex, got %v", err)
	}
	if _, err := idx.Query(ctx, nil, 1); !errors.Is(err, domain.ErrRetrievalIndex) {
		t.Errorf("Query: expected ErrRetrievalIndex, got %v", err)
	}
	if err := idx.Delete(ctx, "id"); !errors.Is(err, domain.ErrRetrievalIndex) {
		t.Errorf("Delete: expected ErrRetrievalIndex, got %v", err)
	}
}
