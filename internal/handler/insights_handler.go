package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// maxSnapshotBytes bounds the body of POST /v1/insights/analyze.
const maxSnapshotBytes = 10 << 20

// ============================================================
// 1. Relatório e seções
// ============================================================

func reportHandler(svc Insights, logger *zap.Logger) http.HandlerFunc {
	return sectionHandler(svc, "insights", func(rep *domain.InsightReport) any { return rep }, logger)
}

// sectionHandler runs the full pipeline and serves one slice of the
// report. Every section route triggers a run; the mode machine applies at
// most one evaluation per as-of day, so polling several routes is safe.
func sectionHandler(svc Insights, name string, pick func(*domain.InsightReport) any, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/customers/{customerId}/"+name)
		defer span.End()

		customerID := chi.URLParam(r, "customerId")
		if customerID == "" {
			writeError(w, http.StatusBadRequest, "customer_id is required")
			return
		}
		span.SetAttributes(attribute.String("customer.id", customerID))

		asOf, err := parseAsOf(r.URL.Query().Get("asOf"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		report, err := svc.Analyze(ctx, customerID, asOf)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pick(report))
	}
}

type weeklyResponse struct {
	Current []domain.WeeklyAdjustment `json:"current"`
	History []domain.WeeklyAdjustment `json:"history"`
}

func weeklySection(rep *domain.InsightReport) any {
	out := weeklyResponse{Current: rep.WeeklyAdjustments, History: rep.WeeklyHistory}
	if out.Current == nil {
		out.Current = []domain.WeeklyAdjustment{}
	}
	if out.History == nil {
		out.History = []domain.WeeklyAdjustment{}
	}
	return out
}

// ============================================================
// 2. Modo
// ============================================================

func modeHandler(svc Insights, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/customers/{customerId}/mode")
		defer span.End()

		customerID := chi.URLParam(r, "customerId")
		span.SetAttributes(attribute.String("customer.id", customerID))

		mode, err := svc.CurrentMode(ctx, customerID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, mode)
	}
}

// ============================================================
// 3. Histórico de execuções
// ============================================================

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

func runsHandler(svc Insights, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/customers/{customerId}/runs")
		defer span.End()

		customerID := chi.URLParam(r, "customerId")
		span.SetAttributes(attribute.String("customer.id", customerID))

		limit := defaultRunsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				handleServiceError(w, &domain.ErrValidation{Field: "limit", Message: "expected a positive integer"}, logger)
				return
			}
			limit = min(n, maxRunsLimit)
		}

		runs, err := svc.RecentRuns(ctx, customerID, limit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

// ============================================================
// 4. Análise avulsa
// ============================================================

type analyzeRequest struct {
	AsOf string `json:"asOf"`
	domain.LedgerSnapshot
}

func analyzeSnapshotHandler(svc Insights, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/insights/analyze")
		defer span.End()

		var req analyzeRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSnapshotBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.Int("transactions.count", len(req.Transactions)))

		asOf, err := parseAsOf(req.AsOf)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		report, err := svc.AnalyzeSnapshot(ctx, &req.LedgerSnapshot, asOf)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
