package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/observability"
)

var tracer = otel.Tracer("handler")

// Insights is the service surface the HTTP layer exposes.
type Insights interface {
	Analyze(ctx context.Context, customerID string, asOf time.Time) (*domain.InsightReport, error)
	AnalyzeSnapshot(ctx context.Context, snapshot *domain.LedgerSnapshot, asOf time.Time) (*domain.InsightReport, error)
	CurrentMode(ctx context.Context, customerID string) (domain.ModeState, error)
	RecentRuns(ctx context.Context, customerID string, limit int) ([]domain.RunSummary, error)
}

// HealthCheck probes one dependency for /healthz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Insights, checks []HealthCheck, metrics *observability.Metrics, jwtSecret string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(checks))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(jwtSecret, logger))

		// =============================================
		// 1. Relatório completo e seções
		// GET /v1/customers/{customerId}/insights?asOf=YYYY-MM-DD
		// =============================================
		r.Route("/customers/{customerId}", func(r chi.Router) {
			r.Use(customerScope)

			r.Get("/insights", reportHandler(svc, logger))
			r.Get("/forecast", sectionHandler(svc, "forecast", func(rep *domain.InsightReport) any { return rep.Forecast }, logger))
			r.Get("/category-forecasts", sectionHandler(svc, "category-forecasts", func(rep *domain.InsightReport) any { return rep.CategoryForecasts }, logger))
			r.Get("/anomalies", sectionHandler(svc, "anomalies", func(rep *domain.InsightReport) any { return rep.Anomalies }, logger))
			r.Get("/patterns", sectionHandler(svc, "patterns", func(rep *domain.InsightReport) any { return rep.Patterns }, logger))
			r.Get("/scarcity", sectionHandler(svc, "scarcity", func(rep *domain.InsightReport) any { return rep.Scarcity }, logger))
			r.Get("/pix-groups", sectionHandler(svc, "pix-groups", func(rep *domain.InsightReport) any { return rep.PIXGroups }, logger))
			r.Get("/weekly-adjustments", sectionHandler(svc, "weekly-adjustments", weeklySection, logger))
			r.Get("/goal", sectionHandler(svc, "goal", func(rep *domain.InsightReport) any { return rep.Goal }, logger))
			r.Get("/discipline", sectionHandler(svc, "discipline", func(rep *domain.InsightReport) any { return rep.Discipline }, logger))
			r.Get("/suggestions", sectionHandler(svc, "suggestions", func(rep *domain.InsightReport) any { return rep.Suggestions }, logger))

			// =============================================
			// 2. Modo operacional (leitura sem bloqueio)
			// GET /v1/customers/{customerId}/mode
			// =============================================
			r.Get("/mode", modeHandler(svc, logger))

			// =============================================
			// 3. Histórico de execuções
			// GET /v1/customers/{customerId}/runs?limit=N
			// =============================================
			r.Get("/runs", runsHandler(svc, logger))
		})

		// =============================================
		// 4. Análise avulsa de um extrato enviado
		// POST /v1/insights/analyze
		// =============================================
		r.Post("/insights/analyze", analyzeSnapshotHandler(svc, logger))

		// =============================================
		// 5. Métricas
		// GET /v1/metrics/insights
		// =============================================
		r.Get("/metrics/insights", insightsMetricsHandler(metrics))
	})

	return r
}

func healthzHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
		}
		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			start := time.Now()
			err := c.Ping(ctx)
			cancel()

			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name:        c.Name,
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func insightsMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetInsightsSnapshot())
	}
}
