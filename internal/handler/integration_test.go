package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/analysis"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/handler"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/cache"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/client"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/filestore"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/port"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/service"
)

func integrationClock() time.Time {
	return time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC)
}

// groceriesSnapshot leaves the balance at zero by June 11 while spending
// 100 per day.
func groceriesSnapshot() *domain.LedgerSnapshot {
	snap := &domain.LedgerSnapshot{Profile: domain.Profile{InitialBalance: 1000, MonthlyBudget: 3000}}
	for d := 1; d <= 10; d++ {
		snap.Transactions = append(snap.Transactions, domain.Transaction{
			ID:          fmt.Sprintf("g%02d", d),
			Date:        time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC),
			Amount:      -100,
			Type:        domain.TypeSaida,
			Description: "SUPERMERCADO BOM PRECO",
		})
	}
	return snap
}

type stack struct {
	router http.Handler
	keeper *service.ModeKeeper
}

func newStack(t *testing.T, profiles port.ProfileFetcher, transactions port.TransactionsFetcher, store *sqlite.Store) *stack {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	keeper := service.NewModeKeeper(store, logger)
	t.Cleanup(keeper.Close)
	findings := cache.New[*service.Findings](time.Minute)
	t.Cleanup(findings.Stop)

	svc := service.NewInsightsService(
		transactions,
		profiles,
		keeper,
		findings,
		analysis.DefaultThresholds(),
		metrics,
		logger,
		service.WithClock(integrationClock),
		service.WithWeeklyHistory(store),
		service.WithRunRecorder(store),
	)
	checks := []handler.HealthCheck{{Name: "sqlite", Ping: store.Ping}}
	return &stack{router: handler.NewRouter(svc, checks, metrics, "", logger), keeper: keeper}
}

func openSQLite(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func getJSON(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec.Code
}

// TestIntegration_SnapshotLedgerWithSQLiteState runs the whole stack over
// a snapshot file and checks that the mode survives a restart.
func TestIntegration_SnapshotLedgerWithSQLiteState(t *testing.T) {
	dir := t.TempDir()
	files := filestore.New(filepath.Join(dir, "snapshots"))
	if err := files.Save("cust-int", groceriesSnapshot()); err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(dir, "state", "insights.db")
	store := openSQLite(t, dbPath)
	st := newStack(t, files, files, store)

	var first domain.InsightReport
	if code := getJSON(t, st.router, "/v1/customers/cust-int/insights?asOf=2024-06-11", &first); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if first.Mode.CurrentMode != domain.ModeIskra || !first.ModeTransitioned {
		t.Fatalf("expected iskra on the first run, got %s", first.Mode.CurrentMode)
	}

	var weekly struct {
		History []domain.WeeklyAdjustment `json:"history"`
	}
	if code := getJSON(t, st.router, "/v1/customers/cust-int/weekly-adjustments?asOf=2024-06-12", &weekly); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(weekly.History) != 1 || weekly.History[0].WeekNumber != 1 {
		t.Errorf("expected week 1 in history, got %+v", weekly.History)
	}

	var mode domain.ModeState
	getJSON(t, st.router, "/v1/customers/cust-int/mode", &mode)
	if mode.CurrentMode != domain.ModeMochila {
		t.Errorf("expected mochila after the next day's run, got %s", mode.CurrentMode)
	}

	// Replaying an older day leaves the mode where it is.
	var replay domain.InsightReport
	getJSON(t, st.router, "/v1/customers/cust-int/insights?asOf=2024-06-05", &replay)
	if replay.ModeTransitioned || replay.Mode.CurrentMode != domain.ModeMochila {
		t.Errorf("expected a replay to keep mochila, got %s (transitioned=%v)", replay.Mode.CurrentMode, replay.ModeTransitioned)
	}

	var runs []domain.RunSummary
	if code := getJSON(t, st.router, "/v1/customers/cust-int/runs?limit=10", &runs); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(runs) != 3 || runs[0].AsOf != "2024-06-05" {
		t.Errorf("expected 3 recorded runs with the replay first, got %+v", runs)
	}

	// Restart: a fresh keeper over the same database.
	st.keeper.Close()
	restarted := newStack(t, files, files, openSQLite(t, dbPath))
	getJSON(t, restarted.router, "/v1/customers/cust-int/mode", &mode)
	if mode.CurrentMode != domain.ModeMochila {
		t.Errorf("expected mochila to survive a restart, got %s", mode.CurrentMode)
	}

	var health domain.HealthStatus
	getJSON(t, restarted.router, "/healthz", &health)
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %+v", health)
	}

	if code := getJSON(t, restarted.router, "/v1/customers/ghost/insights", nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for a customer without snapshot, got %d", code)
	}
}

// TestIntegration_HTTPLedgerAPI runs against a mock ledger API.
func TestIntegration_HTTPLedgerAPI(t *testing.T) {
	snap := groceriesSnapshot()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/customers/ghost/"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, "/profile"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, "/transactions"):
			json.NewEncoder(w).Encode(snap.Transactions)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer api.Close()

	cb := resilience.NewCircuitBreaker("integration")
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	st := newStack(t,
		client.NewProfileClient(httpClient, api.URL, cb, cfg),
		client.NewTransactionsClient(httpClient, api.URL, cb, cfg),
		openSQLite(t, filepath.Join(t.TempDir(), "insights.db")),
	)

	var forecast domain.ForecastResult
	if code := getJSON(t, st.router, "/v1/customers/cust-http/forecast?asOf=2024-06-11", &forecast); code != http.StatusOK {
		t.Fatalf("expected 200 with an empty profile, got %d", code)
	}
	if forecast.CurrentBalance != -1000 || !forecast.WillGoNegative {
		t.Errorf("expected -1000 from a zero opening balance, got %+v", forecast)
	}

	if code := getJSON(t, st.router, "/v1/customers/ghost/forecast", nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown ledger, got %d", code)
	}
}
