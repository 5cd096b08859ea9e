// Package memory implements db.Store in-process. It backs local runs and
// tests where no Redis is available; vector search is brute-force cosine.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/protobench/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type kvEntry struct {
	value     []byte
	expiresAt time.Time
}

type vecEntry struct {
	text   string
	vector []float32
}

// Store is an in-process db.Store.
type Store struct {
	mu   sync.Mutex
	kv   map[string]kvEntry
	vecs map[string]vecEntry

	now func() time.Time // overridable in tests
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		kv:   make(map[string]kvEntry),
		vecs: make(map[string]vecEntry),
		now:  time.Now,
	}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Get retrieves a value by key. Expired entries are purged and reported missing.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.kv, key)
		return nil, db.ErrKeyNotFound
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// SetWithTTL stores a value with an expiration. ttl <= 0 means no expiry.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := kvEntry{value: make([]byte, len(value))}
	copy(e.value, value)
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.kv[key] = e
	return nil
}

// Del removes a key.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kv, key)
	return nil
}

// EnsureVectorIndex is a no-op for the in-memory store.
func (s *Store) EnsureVectorIndex(_ context.Context, _ int) error { return nil }

// VectorSet stores one embedded fragment.
func (s *Store) VectorSet(_ context.Context, id, text string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]float32, len(vector))
	copy(v, vector)
	s.vecs[id] = vecEntry{text: text, vector: v}
	return nil
}

// VectorSearch scans all fragments and returns the topK by cosine similarity.
func (s *Store) VectorSearch(_ context.Context, vector []float32, topK int) ([]db.VectorMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]db.VectorMatch, 0, len(s.vecs))
	for id, e := range s.vecs {
		matches = append(matches, db.VectorMatch{
			ID:         id,
			Text:       e.text,
			Similarity: cosineSimilarity(vector, e.vector),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// VectorDel removes a stored fragment by id.
func (s *Store) VectorDel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vecs, id)
	return nil
}

// VectorCount reports the number of stored fragments. Test helper.
func (s *Store) VectorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vecs)
}

func cosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return max(0, min(sim, 1))
}
