package db

import (
	"context"
	"time"
)

// Store is the storage facade shared by the result cache and the retrieval
// index. Consumers depend on the narrow sub-interfaces.
type Store interface {
	Pinger
	KVStore
	VectorStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides key-value operations with expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// VectorMatch is one similarity search hit.
type VectorMatch struct {
	ID         string
	Text       string
	Similarity float64 // cosine similarity in [0,1]
}

// VectorStore provides the embedded-fragment operations used by retrieval.
type VectorStore interface {
	// EnsureVectorIndex creates the fragment index if it does not exist yet.
	EnsureVectorIndex(ctx context.Context, dimensions int) error
	VectorSet(ctx context.Context, id, text string, vector []float32) error
	VectorSearch(ctx context.Context, vector []float32, topK int) ([]VectorMatch, error)
	VectorDel(ctx context.Context, id string) error
}
