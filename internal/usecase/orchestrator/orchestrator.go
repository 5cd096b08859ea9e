// Package orchestrator sequences a batch of strategy runs over one
// prompt and document, scores the outcomes and records their metrics.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/protobench/internal/domain"
	"github.com/kailas-cloud/protobench/internal/metrics"
	"github.com/kailas-cloud/protobench/internal/usecase/strategy"
)

// scorer rates a response's quality (ISP).
type scorer interface {
	Score(ctx context.Context, prompt, response string) float64
}

// recorder keeps the run history (ISP).
type recorder interface {
	Record(protocol domain.Protocol, m domain.RunMetrics)
}

// Service runs the requested protocols one after another. A protocol
// failure degrades that protocol's result and never aborts the batch;
// invalid configuration is rejected up front and fails the whole batch.
type Service struct {
	executors map[domain.Protocol]strategy.Executor
	scorer    scorer
	recorder  recorder
	logger    *zap.Logger

	now func() time.Time
}

// New creates the orchestrator over the given executors.
func New(
	executors []strategy.Executor,
	sc scorer,
	rec recorder,
	logger *zap.Logger,
) *Service {
	byName := make(map[domain.Protocol]strategy.Executor, len(executors))
	for _, e := range executors {
		byName[e.Name()] = e
	}
	return &Service{
		executors: byName,
		scorer:    sc,
		recorder:  rec,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes each requested protocol in order and returns one result
// per protocol, in the same order. source is an optional label for where
// the document came from; configs maps a protocol to its raw options,
// missing entries mean defaults. An empty prompt or protocol list is
// rejected with ErrInvalidRequest before anything runs.
func (s *Service) Run(
	ctx context.Context,
	prompt, document, source string,
	protocols []domain.Protocol,
	configs map[domain.Protocol]map[string]any,
) (domain.BatchResult, error) {
	if prompt == "" {
		return domain.BatchResult{}, fmt.Errorf("%w: prompt is required", domain.ErrInvalidRequest)
	}
	if len(protocols) == 0 {
		return domain.BatchResult{}, fmt.Errorf("%w: no protocols requested", domain.ErrInvalidRequest)
	}

	// Reject bad configuration before any model call is spent.
	for _, p := range protocols {
		if _, ok := s.executors[p]; !ok {
			return domain.BatchResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownProtocol, p)
		}
		if err := domain.ValidateOptions(p, configs[p]); err != nil {
			return domain.BatchResult{}, fmt.Errorf("protocol %s: %w", p, err)
		}
	}

	sessionID := uuid.NewString()
	log := s.logger.With(zap.String("session_id", sessionID))
	log.Info("Starting batch run",
		zap.Int("protocols", len(protocols)),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("document_len", len(document)),
		zap.String("source", source),
	)

	batchStart := s.now()
	results := make([]domain.ProtocolResult, 0, len(protocols))

	for _, p := range protocols {
		results = append(results, s.runOne(ctx, log, p, domain.ProtocolInput{
			Prompt:   prompt,
			Document: document,
			Source:   source,
			Config:   configs[p],
		}))
	}

	total := s.now().Sub(batchStart).Milliseconds()
	log.Info("Batch run finished", zap.Int64("total_latency_ms", total))

	return domain.BatchResult{
		SessionID:      sessionID,
		Results:        results,
		TotalLatencyMS: total,
	}, nil
}

func (s *Service) runOne(
	ctx context.Context, log *zap.Logger, p domain.Protocol, in domain.ProtocolInput,
) domain.ProtocolResult {
	log.Info("Protocol run started", zap.String("protocol", string(p)))
	start := s.now()

	out, err := s.executors[p].Execute(ctx, in)
	latency := s.now().Sub(start).Milliseconds()

	if err != nil {
		log.Warn("Protocol run failed",
			zap.String("protocol", string(p)),
			zap.Int64("latency_ms", latency),
			zap.Error(err),
		)
		metrics.ProtocolRunsTotal.WithLabelValues(string(p), "failed").Inc()

		m := domain.RunMetrics{LatencyMS: latency}
		s.recorder.Record(p, m)
		return domain.ProtocolResult{
			Protocol: p,
			Response: fmt.Sprintf("ERROR: %v", err),
			Metrics:  m,
		}
	}

	quality := s.scorer.Score(ctx, in.Prompt, out.Response)

	log.Info("Protocol run succeeded",
		zap.String("protocol", string(p)),
		zap.Int64("latency_ms", latency),
		zap.Int("tokens", out.Tokens),
		zap.Float64("quality", quality),
	)
	metrics.ProtocolRunsTotal.WithLabelValues(string(p), "success").Inc()

	m := domain.RunMetrics{
		Tokens:    out.Tokens,
		LatencyMS: latency,
		Quality:   quality,
	}
	s.recorder.Record(p, m)
	return domain.ProtocolResult{
		Protocol: p,
		Response: out.Response,
		Metrics:  m,
		Metadata: out.Metadata,
	}
}
