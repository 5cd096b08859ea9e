package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/protobench/internal/domain"
	"github.com/kailas-cloud/protobench/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEngineMetrics()
	os.Exit(m.Run())
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&Config{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		Model:          "test-model",
		EmbeddingModel: "test-embed",
		Dimensions:     4,
		Logger:         zap.NewNop(),
	}), server
}

func TestGenerate(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": " generated text \n"}},
			},
			"usage": map[string]any{"total_tokens": 42},
		})
	})

	gen, err := client.Generate(context.Background(), "prompt", domain.GenerationConfig{
		MaxTokens:   100,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if gen.Text != "generated text" {
		t.Errorf("expected trimmed text, got %q", gen.Text)
	}
	if gen.Tokens != 42 {
		t.Errorf("expected 42 tokens, got %d", gen.Tokens)
	}
}

func TestGenerate_APIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"backend exploded"}`))
	})

	_, err := client.Generate(context.Background(), "prompt", domain.GenerationConfig{})
	if !errors.Is(err, domain.ErrModelProvider) {
		t.Fatalf("expected ErrModelProvider, got %v", err)
	}
}

func TestGenerate_EmptyChoices(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Generate(context.Background(), "prompt", domain.GenerationConfig{})
	if !errors.Is(err, domain.ErrModelProvider) {
		t.Fatalf("expected ErrModelProvider, got %v", err)
	}
}

func TestEmbed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-embed" {
			t.Errorf("expected default embedding model, got %q", req.Model)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":  []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3, 0.4}, "index": 0}},
			"usage": map[string]any{"prompt_tokens": 7, "total_tokens": 7},
		})
	})

	res, err := client.Embed(context.Background(), "hello", "")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(res.Vector) != 4 {
		t.Errorf("expected 4-dim vector, got %d", len(res.Vector))
	}
	if res.Tokens != 7 {
		t.Errorf("expected 7 tokens, got %d", res.Tokens)
	}
}

func TestEmbed_ModelOverride(t *testing.T) {
	var gotModel string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1}, "index": 0}},
		})
	})

	if _, err := client.Embed(context.Background(), "hello", "custom-embed"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if gotModel != "custom-embed" {
		t.Errorf("expected model override, got %q", gotModel)
	}
}
