package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// --- Mocks ---

type mockProfileClient struct {
	profile *domain.Profile
	err     error
}

func (m *mockProfileClient) GetProfile(_ context.Context, _ string) (*domain.Profile, error) {
	return m.profile, m.err
}

type mockTransactionsClient struct {
	mu           sync.Mutex
	transactions []domain.Transaction
	err          error
	calls        int
}

func (m *mockTransactionsClient) GetTransactions(_ context.Context, _ string) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.transactions, m.err
}

type mockModeStore struct {
	mu      sync.Mutex
	states  map[string]domain.ModeState
	saves   int
	loadErr error
	saveErr error
}

func newMockModeStore() *mockModeStore {
	return &mockModeStore{states: make(map[string]domain.ModeState)}
}

func (m *mockModeStore) LoadMode(_ context.Context, customerID string) (*domain.ModeState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	s, ok := m.states[customerID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockModeStore) SaveMode(_ context.Context, customerID string, s domain.ModeState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.states[customerID] = s
	return nil
}

type mockWeeklyStore struct {
	mu      sync.Mutex
	weeks   []domain.WeeklyAdjustment
	appends [][]domain.WeeklyAdjustment
}

func (m *mockWeeklyStore) LoadWeeks(_ context.Context, _ string) ([]domain.WeeklyAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.WeeklyAdjustment(nil), m.weeks...), nil
}

func (m *mockWeeklyStore) AppendWeeks(_ context.Context, _ string, weeks []domain.WeeklyAdjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends = append(m.appends, weeks)
	m.weeks = append(m.weeks, weeks...)
	return nil
}

type mockRecorder struct {
	mu      sync.Mutex
	runs    []string
	reports []*domain.InsightReport
	listErr error
}

func (m *mockRecorder) RecordRun(_ context.Context, r *domain.InsightReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r.RunID)
	m.reports = append(m.reports, r)
	return nil
}

func (m *mockRecorder) RecentRuns(_ context.Context, customerID string, limit int) ([]domain.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []domain.RunSummary{}
	for i := len(m.reports) - 1; i >= 0 && len(out) < limit; i-- {
		r := m.reports[i]
		if r.CustomerID != customerID {
			continue
		}
		out = append(out, domain.RunSummary{RunID: r.RunID, CustomerID: r.CustomerID, Mode: r.Mode.CurrentMode})
	}
	return out, nil
}

// --- Fixtures ---

func day(m, d int) time.Time {
	return time.Date(2024, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func fixedClock() time.Time {
	return time.Date(2024, 6, 11, 9, 30, 0, 0, time.UTC)
}

// dailyGroceries spends 100 per day from June 1 to June 10.
func dailyGroceries() []domain.Transaction {
	var txs []domain.Transaction
	for d := 1; d <= 10; d++ {
		txs = append(txs, domain.Transaction{
			ID:          fmt.Sprintf("g%02d", d),
			Date:        day(6, d),
			Amount:      -100,
			Type:        domain.TypeSaida,
			Description: "SUPERMERCADO BOM PRECO",
		})
	}
	return txs
}

// tightProfile leaves the balance at zero by the opening of June 11.
func tightProfile() *domain.Profile {
	return &domain.Profile{InitialBalance: 1000, MonthlyBudget: 3000}
}
