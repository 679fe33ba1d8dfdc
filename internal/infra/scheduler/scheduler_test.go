package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/scheduler"
)

// --- Mocks ---

type mockAnalyzer struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (m *mockAnalyzer) Analyze(ctx context.Context, customerID string, asOf time.Time) (*domain.InsightReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, customerID)
	if !asOf.IsZero() {
		return nil, errors.New("scheduled runs must use today")
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a per-customer deadline")
	}
	if err := m.fail[customerID]; err != nil {
		return nil, err
	}
	return &domain.InsightReport{
		CustomerID:       customerID,
		Mode:             domain.ModeState{CurrentMode: domain.ModeIskra},
		ModeTransitioned: true,
	}, nil
}

// --- Tests ---

func TestRunNow_AnalyzesEveryCustomer(t *testing.T) {
	a := &mockAnalyzer{fail: map[string]error{"b": errors.New("ledger down")}}
	s := scheduler.New(context.Background(), a, []string{"a", "b", "c"}, time.Second, zap.NewNop())

	results := s.RunNow()

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Mode != domain.ModeIskra || !results[0].Changed {
		t.Errorf("unexpected result for a: %+v", results[0])
	}
	if results[1].Err == nil {
		t.Error("expected the failure of b to be reported")
	}
	if results[2].Err != nil {
		t.Errorf("expected c to run after b failed, got %v", results[2].Err)
	}
}

func TestRunNow_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &mockAnalyzer{}
	s := scheduler.New(ctx, a, []string{"a", "b"}, time.Second, zap.NewNop())

	if results := s.RunNow(); len(results) != 0 {
		t.Errorf("expected no runs after cancellation, got %+v", results)
	}
	if len(a.calls) != 0 {
		t.Errorf("expected analyzer untouched, got %v", a.calls)
	}
}

func TestRegister(t *testing.T) {
	s := scheduler.New(context.Background(), &mockAnalyzer{}, nil, time.Second, zap.NewNop())

	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"0 30 6 * * *", false},
		{"@daily", false},
		{"not a spec", true},
		{"30 6 * * *", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := s.Register(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("Register(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestStartStop(t *testing.T) {
	s := scheduler.New(context.Background(), &mockAnalyzer{}, []string{"a"}, time.Second, zap.NewNop())
	if err := s.Register("0 0 6 * * *"); err != nil {
		t.Fatal(err)
	}
	s.Start()
	s.Stop()
}
