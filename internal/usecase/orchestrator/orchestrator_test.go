package orchestrator

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/protobench/internal/domain"
	"github.com/kailas-cloud/protobench/internal/metrics"
	"github.com/kailas-cloud/protobench/internal/usecase/strategy"
)

func TestMain(m *testing.M) {
	metrics.RegisterEngineMetrics()
	os.Exit(m.Run())
}

// fakeExecutor implements strategy.Executor with scripted behavior.
type fakeExecutor struct {
	name  domain.Protocol
	out   domain.StrategyOutput
	err   error
	calls int
}

func (f *fakeExecutor) Name() domain.Protocol { return f.name }

func (f *fakeExecutor) Execute(context.Context, domain.ProtocolInput) (domain.StrategyOutput, error) {
	f.calls++
	if f.err != nil {
		return domain.StrategyOutput{}, f.err
	}
	return f.out, nil
}

type fixedScorer struct{ score float64 }

func (f fixedScorer) Score(context.Context, string, string) float64 { return f.score }

type memRecorder struct {
	records []domain.MetricRecord
}

func (m *memRecorder) Record(p domain.Protocol, rm domain.RunMetrics) {
	m.records = append(m.records, domain.MetricRecord{Protocol: p, Metrics: rm})
}

func executors(execs ...*fakeExecutor) []strategy.Executor {
	out := make([]strategy.Executor, len(execs))
	for i, e := range execs {
		out[i] = e
	}
	return out
}

func TestRun_AllProtocolsInOrder(t *testing.T) {
	raw := &fakeExecutor{name: domain.ProtocolRaw, out: domain.StrategyOutput{Response: "r", Tokens: 10}}
	chain := &fakeExecutor{name: domain.ProtocolChain, out: domain.StrategyOutput{Response: "c", Tokens: 20}}
	rec := &memRecorder{}

	svc := New(executors(raw, chain), fixedScorer{score: 8}, rec, zap.NewNop())

	res, err := svc.Run(context.Background(), "q", "d", "",
		[]domain.Protocol{domain.ProtocolChain, domain.ProtocolRaw}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.SessionID == "" {
		t.Error("missing session id")
	}
	if len(res.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.Results))
	}
	// Results come back in request order, not registration order.
	if res.Results[0].Protocol != domain.ProtocolChain || res.Results[1].Protocol != domain.ProtocolRaw {
		t.Errorf("results out of request order: %v, %v",
			res.Results[0].Protocol, res.Results[1].Protocol)
	}
	if res.Results[0].Metrics.Quality != 8 {
		t.Errorf("expected quality 8, got %v", res.Results[0].Metrics.Quality)
	}
	if len(rec.records) != 2 {
		t.Errorf("expected 2 recorded runs, got %d", len(rec.records))
	}
}

func TestRun_FailureDegradesOnlyThatProtocol(t *testing.T) {
	raw := &fakeExecutor{name: domain.ProtocolRaw, err: errors.New("provider down")}
	chain := &fakeExecutor{name: domain.ProtocolChain, out: domain.StrategyOutput{Response: "ok", Tokens: 5}}
	rec := &memRecorder{}

	svc := New(executors(raw, chain), fixedScorer{score: 7}, rec, zap.NewNop())

	res, err := svc.Run(context.Background(), "q", "d", "",
		[]domain.Protocol{domain.ProtocolRaw, domain.ProtocolChain}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	failed := res.Results[0]
	if !strings.HasPrefix(failed.Response, "ERROR:") {
		t.Errorf("degraded response misses error prefix: %q", failed.Response)
	}
	if failed.Metrics.Tokens != 0 || failed.Metrics.Quality != 0 {
		t.Errorf("degraded metrics not zeroed: %+v", failed.Metrics)
	}

	ok := res.Results[1]
	if ok.Response != "ok" || ok.Metrics.Quality != 7 {
		t.Errorf("healthy protocol affected by the failure: %+v", ok)
	}
	if chain.calls != 1 {
		t.Error("later protocol skipped after an earlier failure")
	}
	if len(rec.records) != 2 {
		t.Errorf("failed run not recorded: %d records", len(rec.records))
	}
}

func TestRun_InvalidConfigFailsBatchUpFront(t *testing.T) {
	raw := &fakeExecutor{name: domain.ProtocolRaw}
	chain := &fakeExecutor{name: domain.ProtocolChain}

	svc := New(executors(raw, chain), fixedScorer{}, &memRecorder{}, zap.NewNop())

	_, err := svc.Run(context.Background(), "q", "d", "",
		[]domain.Protocol{domain.ProtocolRaw, domain.ProtocolChain},
		map[domain.Protocol]map[string]any{
			domain.ProtocolChain: {"chunk_size": float64(10), "overlap": float64(10)},
		})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	// Nothing runs when any requested protocol is misconfigured.
	if raw.calls != 0 || chain.calls != 0 {
		t.Error("executors ran despite invalid configuration")
	}
}

func TestRun_RejectsEmptyRequest(t *testing.T) {
	raw := &fakeExecutor{name: domain.ProtocolRaw}
	svc := New(executors(raw), fixedScorer{}, &memRecorder{}, zap.NewNop())

	if _, err := svc.Run(context.Background(), "", "d", "",
		[]domain.Protocol{domain.ProtocolRaw}, nil); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("empty prompt: expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.Run(context.Background(), "q", "d", "", nil, nil); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("no protocols: expected ErrInvalidRequest, got %v", err)
	}
	if raw.calls != 0 {
		t.Error("executor ran for a rejected request")
	}
}

func TestRun_UnknownProtocol(t *testing.T) {
	svc := New(executors(&fakeExecutor{name: domain.ProtocolRaw}), fixedScorer{}, &memRecorder{}, zap.NewNop())

	_, err := svc.Run(context.Background(), "q", "d", "", []domain.Protocol{"telepathy"}, nil)
	if !errors.Is(err, domain.ErrUnknownProtocol) {
		t.Fatalf("expected ErrUnknownProtocol, got %v", err)
	}
}
