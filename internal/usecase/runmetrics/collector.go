// Package runmetrics keeps an in-process history of completed runs and
// derives aggregate statistics from it.
package runmetrics

import (
	"sync"
	"time"

	"github.com/kailas-cloud/protobench/internal/domain"
)

// DefaultHistoryLimit bounds the history when no limit is configured.
const DefaultHistoryLimit = 10000

// ProtocolSummary aggregates the recorded runs of one protocol.
type ProtocolSummary struct {
	Runs         int     `json:"runs"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	AvgTokens    float64 `json:"avg_tokens"`
	AvgQuality   float64 `json:"avg_quality"`
}

// Summary aggregates all recorded runs.
type Summary struct {
	TotalRuns    int                                 `json:"total_runs"`
	AvgLatencyMS float64                             `json:"avg_latency_ms"`
	AvgTokens    float64                             `json:"avg_tokens"`
	AvgQuality   float64                             `json:"avg_quality"`
	PerProtocol  map[domain.Protocol]ProtocolSummary `json:"per_protocol"`
}

// Collector records run metrics in a bounded in-memory history. When
// the limit is reached the oldest records are dropped.
type Collector struct {
	mu      sync.Mutex
	records []domain.MetricRecord
	limit   int

	now func() time.Time
}

// NewCollector creates a collector keeping at most limit records.
// Non-positive limits fall back to DefaultHistoryLimit.
func NewCollector(limit int) *Collector {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Collector{limit: limit, now: time.Now}
}

// Record appends one completed run to the history.
func (c *Collector) Record(protocol domain.Protocol, m domain.RunMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = append(c.records, domain.MetricRecord{
		Protocol:  protocol,
		Timestamp: c.now(),
		Metrics:   m,
	})
	if len(c.records) > c.limit {
		c.records = c.records[len(c.records)-c.limit:]
	}
}

// Summary aggregates the whole history. An empty history yields zeroes.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{PerProtocol: make(map[domain.Protocol]ProtocolSummary)}

	type acc struct {
		runs            int
		latency, tokens int64
		quality         float64
	}
	perProto := make(map[domain.Protocol]*acc)

	var total acc
	for _, r := range c.records {
		total.runs++
		total.latency += r.Metrics.LatencyMS
		total.tokens += int64(r.Metrics.Tokens)
		total.quality += r.Metrics.Quality

		a, ok := perProto[r.Protocol]
		if !ok {
			a = &acc{}
			perProto[r.Protocol] = a
		}
		a.runs++
		a.latency += r.Metrics.LatencyMS
		a.tokens += int64(r.Metrics.Tokens)
		a.quality += r.Metrics.Quality
	}

	if total.runs == 0 {
		return s
	}

	s.TotalRuns = total.runs
	s.AvgLatencyMS = float64(total.latency) / float64(total.runs)
	s.AvgTokens = float64(total.tokens) / float64(total.runs)
	s.AvgQuality = total.quality / float64(total.runs)

	for p, a := range perProto {
		s.PerProtocol[p] = ProtocolSummary{
			Runs:         a.runs,
			AvgLatencyMS: float64(a.latency) / float64(a.runs),
			AvgTokens:    float64(a.tokens) / float64(a.runs),
			AvgQuality:   a.quality / float64(a.runs),
		}
	}
	return s
}

// ByProtocol returns the recorded history of one protocol in insertion
// order. The returned slice is a copy.
func (c *Collector) ByProtocol(protocol domain.Protocol) []domain.MetricRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []domain.MetricRecord
	for _, r := range c.records {
		if r.Protocol == protocol {
			out = append(out, r)
		}
	}
	return out
}
