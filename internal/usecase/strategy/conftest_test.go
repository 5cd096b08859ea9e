package strategy

import (
	"context"
	"sync"

	"github.com/kailas-cloud/protobench/internal/domain"
)

// mockInvoker records every prompt and answers from a scripted function.
type mockInvoker struct {
	mu         sync.Mutex
	generateFn func(prompt string, cfg domain.GenerationConfig) (domain.Generation, error)
	prompts    []string
}

func (m *mockInvoker) Generate(
	_ context.Context, prompt string, cfg domain.GenerationConfig,
) (domain.Generation, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.generateFn != nil {
		return m.generateFn(prompt, cfg)
	}
	return domain.Generation{Text: "answer", Tokens: 10}, nil
}

func (m *mockInvoker) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockInvoker) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

type mockEmbedder struct {
	embedFn func(text, model string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(_ context.Context, text, model string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(text, model)
	}
	return domain.EmbeddingResult{Vector: []float32{1, 0, 0}, Tokens: 1}, nil
}

// mockRetriever implements the retriever consumer interface.
type mockRetriever struct {
	storeFn  func(id, text string, vector []float32) error
	queryFn  func(vector []float32, topK int) ([]domain.RetrievalChunk, error)
	deleteFn func(id string) error

	storedIDs  []string
	deletedIDs []string
}

func (m *mockRetriever) Store(_ context.Context, id, text string, vector []float32) error {
	m.storedIDs = append(m.storedIDs, id)
	if m.storeFn != nil {
		return m.storeFn(id, text, vector)
	}
	return nil
}

func (m *mockRetriever) Query(_ context.Context, vector []float32, topK int) ([]domain.RetrievalChunk, error) {
	if m.queryFn != nil {
		return m.queryFn(vector, topK)
	}
	return nil, nil
}

func (m *mockRetriever) Delete(_ context.Context, id string) error {
	m.deletedIDs = append(m.deletedIDs, id)
	if m.deleteFn != nil {
		return m.deleteFn(id)
	}
	return nil
}
