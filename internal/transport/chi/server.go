// Package chi exposes the HTTP API: protocol execution, protocol
// discovery, run metrics and health.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/protobench/internal/domain"
	healthuc "github.com/kailas-cloud/protobench/internal/usecase/health"
	"github.com/kailas-cloud/protobench/internal/usecase/runmetrics"
)

// Input size limits enforced before any model call.
const (
	MaxPromptLen   = 10000
	MaxDocumentLen = 100000

	maxBodyBytes = 1 << 20
)

// Error codes returned in the error response body.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeInvalidConfig    = "invalid_config"
	CodeUnknownProtocol  = "unknown_protocol"
	CodeProviderError    = "model_provider_error"
	CodeIndexError       = "retrieval_index_error"
	CodeInternalError    = "internal_error"
)

// ErrorResponse is the error body shape shared by all endpoints.
type ErrorResponse struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

// RunRequest is the POST /protocols/run body.
type RunRequest struct {
	Prompt    string                    `json:"prompt"`
	Document  string                    `json:"document"`
	Source    string                    `json:"source,omitempty"`
	Protocols []string                  `json:"protocols"`
	Config    map[string]map[string]any `json:"config,omitempty"`
}

// orchestrator runs a batch of protocols (ISP).
type orchestrator interface {
	Run(
		ctx context.Context,
		prompt, document, source string,
		protocols []domain.Protocol,
		configs map[domain.Protocol]map[string]any,
	) (domain.BatchResult, error)
}

// Server holds the HTTP handlers.
type Server struct {
	runner  orchestrator
	metrics *runmetrics.Collector
	health  *healthuc.Service
	logger  *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	runner orchestrator,
	metrics *runmetrics.Collector,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		runner:  runner,
		metrics: metrics,
		health:  health,
		logger:  logger,
	}
}

// Routes registers the API endpoints on the router.
func (s *Server) Routes(r chirouter.Router) {
	r.Post("/protocols/run", s.RunProtocols)
	r.Get("/protocols/info", s.ProtocolInfo)
	r.Get("/metrics/summary", s.MetricsSummary)
	r.Get("/metrics/protocols/{protocol}", s.MetricsByProtocol)
	r.Get("/health", s.HealthCheck)
	r.Get("/prometheus", s.Prometheus)
}

// RunProtocols handles POST /protocols/run.
func (s *Server) RunProtocols(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	protocols, violations := validateRunRequest(req)
	if len(violations) > 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:       CodeValidationFailed,
			Message:    "Request validation failed",
			Violations: violations,
		})
		return
	}

	configs := make(map[domain.Protocol]map[string]any, len(req.Config))
	for name, cfg := range req.Config {
		configs[domain.Protocol(name)] = cfg
	}

	res, err := s.runner.Run(r.Context(), req.Prompt, req.Document, req.Source, protocols, configs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func validateRunRequest(req RunRequest) ([]domain.Protocol, []string) {
	var violations []string

	if req.Prompt == "" {
		violations = append(violations, "prompt is required")
	} else if utf8.RuneCountInString(req.Prompt) > MaxPromptLen {
		violations = append(violations, fmt.Sprintf("prompt exceeds %d characters", MaxPromptLen))
	}

	if req.Document == "" {
		violations = append(violations, "document is required")
	} else if utf8.RuneCountInString(req.Document) > MaxDocumentLen {
		violations = append(violations, fmt.Sprintf("document exceeds %d characters", MaxDocumentLen))
	}

	if len(req.Protocols) == 0 {
		violations = append(violations, "at least one protocol is required")
	}

	protocols := make([]domain.Protocol, 0, len(req.Protocols))
	for _, name := range req.Protocols {
		p, err := domain.ParseProtocol(name)
		if err != nil {
			violations = append(violations, fmt.Sprintf("unknown protocol %q", name))
			continue
		}
		protocols = append(protocols, p)
	}

	for name := range req.Config {
		if _, err := domain.ParseProtocol(name); err != nil {
			violations = append(violations, fmt.Sprintf("config for unknown protocol %q", name))
		}
	}

	return protocols, violations
}

// ProtocolInfo handles GET /protocols/info.
func (s *Server) ProtocolInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"protocols": domain.Catalog(),
	})
}

// MetricsSummary handles GET /metrics/summary.
func (s *Server) MetricsSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Summary())
}

// MetricsByProtocol handles GET /metrics/protocols/{protocol}.
func (s *Server) MetricsByProtocol(w http.ResponseWriter, r *http.Request) {
	p, err := domain.ParseProtocol(chirouter.URLParam(r, "protocol"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeUnknownProtocol, err.Error())
		return
	}

	records := s.metrics.ByProtocol(p)
	if records == nil {
		records = []domain.MetricRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"protocol": p,
		"runs":     records,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Prometheus handles GET /prometheus.
func (s *Server) Prometheus(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrInvalidConfig,
		domain.ErrUnknownProtocol,
		domain.ErrModelProvider,
		domain.ErrRetrievalIndex,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)

	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, CodeInvalidConfig, msg)
	case errors.Is(err, domain.ErrUnknownProtocol):
		writeError(w, http.StatusBadRequest, CodeUnknownProtocol, msg)
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, CodeBadRequest, msg)
	case errors.Is(err, domain.ErrModelProvider):
		writeError(w, http.StatusBadGateway, CodeProviderError, msg)
	case errors.Is(err, domain.ErrRetrievalIndex):
		writeError(w, http.StatusServiceUnavailable, CodeIndexError, msg)
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
	}
}
