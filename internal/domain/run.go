package domain

import "time"

// ProtocolInput is the immutable input of a single strategy run.
// Config holds the raw per-protocol options as supplied by the caller;
// it also feeds the cache fingerprint, so it must not be mutated.
type ProtocolInput struct {
	Prompt   string
	Document string
	Source   string
	Config   map[string]any
}

// StrategyOutput is a strategy's raw result prior to quality scoring and
// metrics attachment. This is the value memoized by the result cache.
type StrategyOutput struct {
	Response string         `json:"response"`
	Tokens   int            `json:"tokens"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RunMetrics holds the performance figures of one completed run.
type RunMetrics struct {
	Tokens    int     `json:"tokens"`
	LatencyMS int64   `json:"latency_ms"`
	Quality   float64 `json:"quality"`
}

// ProtocolResult is the final per-protocol outcome, produced once per run.
type ProtocolResult struct {
	Protocol Protocol       `json:"protocol"`
	Response string         `json:"response"`
	Metrics  RunMetrics     `json:"metrics"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// BatchResult holds one result per requested protocol, in request order.
type BatchResult struct {
	SessionID      string           `json:"session_id"`
	Results        []ProtocolResult `json:"results"`
	TotalLatencyMS int64            `json:"total_latency_ms"`
}

// MetricRecord is one append-only entry in the metrics history.
type MetricRecord struct {
	Protocol  Protocol   `json:"protocol"`
	Timestamp time.Time  `json:"timestamp"`
	Metrics   RunMetrics `json:"metrics"`
}

// RetrievalChunk is a transient index fragment returned by a similarity query.
type RetrievalChunk struct {
	ID         string
	Text       string
	Similarity float64
}
