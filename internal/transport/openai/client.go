// Package openai is the model transport over an OpenAI-compatible API.
// It provides both the generation invoker and the embedder used by RAG.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/protobench/internal/domain"
	"github.com/kailas-cloud/protobench/internal/metrics"
)

// Client implements domain.Invoker and domain.Embedder against an
// OpenAI-compatible endpoint.
type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	dimensions     int
	logger         *zap.Logger
}

// Config holds model provider settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Dimensions     int
	Logger         *zap.Logger
}

// NewClient creates an OpenAI-compatible model client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		dimensions:     cfg.Dimensions,
		logger:         cfg.Logger,
	}
}

// Generate implements domain.Invoker via a single chat completion call.
func (c *Client) Generate(
	ctx context.Context, prompt string, cfg domain.GenerationConfig,
) (domain.Generation, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   cfg.MaxTokens,
		Temperature: float32(cfg.Temperature),
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return domain.Generation{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.ModelRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return domain.Generation{}, fmt.Errorf("empty completion response: %w", domain.ErrModelProvider)
	}

	metrics.ModelRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.ModelRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())

	tokens := resp.Usage.TotalTokens
	if tokens > 0 {
		metrics.ModelTokensTotal.WithLabelValues(c.model).Add(float64(tokens))
	}

	return domain.Generation{
		Text:   strings.TrimSpace(resp.Choices[0].Message.Content),
		Tokens: tokens,
	}, nil
}

// Embed implements domain.Embedder. An empty model selects the configured default.
func (c *Client) Embed(ctx context.Context, text, model string) (domain.EmbeddingResult, error) {
	if model == "" {
		model = c.embeddingModel
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return domain.EmbeddingResult{}, parseAPIError(err)
	}
	if len(resp.Data) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrModelProvider)
	}

	return domain.EmbeddingResult{
		Vector: resp.Data[0].Embedding,
		Tokens: resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrModelProvider so executors can
// degrade the affected protocol instead of failing the batch.
func parseAPIError(err error) error {
	wrap := domain.ErrModelProvider

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("model API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("model API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("model API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("model request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
