package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/analysis"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/cache"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/port"
)

var tracer = otel.Tracer("service/insights")

const dateLayout = "2006-01-02"

// Findings are the mode-independent results of a run. They depend only on
// the ledger, the profile, the as-of day and the thresholds, so they are
// cached by a hash of those inputs.
type Findings struct {
	Balance           float64
	Totals            domain.Totals
	CategoryStats     []domain.CategoryStat
	MonthlyTrend      []domain.MonthlyTrend
	Forecast          domain.ForecastResult
	CategoryForecasts []domain.CategoryForecast
	Anomalies         []domain.Anomaly
	Patterns          []domain.HiddenPattern
	Scarcity          []domain.ScarcityPattern
	PIXGroups         []domain.PIXGroup
	WeeklyAdjustments []domain.WeeklyAdjustment
	Goal              domain.GoalProgress
	GoalInput         analysis.GoalInput
	Suggestions       []domain.AISuggestion
	DailyBudget       float64
}

// InsightsService orchestrates an analysis run: fetch, normalize, detect,
// evaluate the mode and assemble the report.
type InsightsService struct {
	transactions port.TransactionsFetcher
	profiles     port.ProfileFetcher
	modes        *ModeKeeper
	cache        port.Cache[*Findings]
	th           analysis.Thresholds
	metrics      *observability.Metrics
	logger       *zap.Logger

	weekly   port.WeeklyHistoryStore // optional
	recorder port.RunRecorder        // optional
	bulkhead *resilience.Bulkhead
	now      func() time.Time
}

// Option customizes an InsightsService.
type Option func(*InsightsService)

// WithWeeklyHistory keeps closed weekly adjustments across runs.
func WithWeeklyHistory(store port.WeeklyHistoryStore) Option {
	return func(s *InsightsService) { s.weekly = store }
}

// WithRunRecorder stores a summary of every finished run.
func WithRunRecorder(rec port.RunRecorder) Option {
	return func(s *InsightsService) { s.recorder = rec }
}

// WithBulkhead bounds the number of concurrent runs.
func WithBulkhead(b *resilience.Bulkhead) Option {
	return func(s *InsightsService) { s.bulkhead = b }
}

// WithClock replaces the wall clock used for run timestamps and default
// as-of dates.
func WithClock(now func() time.Time) Option {
	return func(s *InsightsService) { s.now = now }
}

// NewInsightsService creates the service with all dependencies injected.
func NewInsightsService(
	transactions port.TransactionsFetcher,
	profiles port.ProfileFetcher,
	modes *ModeKeeper,
	findingsCache port.Cache[*Findings],
	th analysis.Thresholds,
	metrics *observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) *InsightsService {
	s := &InsightsService{
		transactions: transactions,
		profiles:     profiles,
		modes:        modes,
		cache:        findingsCache,
		th:           th,
		metrics:      metrics,
		logger:       logger,
		bulkhead:     resilience.NewBulkhead(50),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current date according to the service clock.
func (s *InsightsService) Today() time.Time {
	return dayOf(s.now().UTC())
}

// Analyze runs the full pipeline for a stored customer ledger. The mode
// state and weekly history are read from and written back to the stores.
// A zero asOf means today.
func (s *InsightsService) Analyze(ctx context.Context, customerID string, asOf time.Time) (*domain.InsightReport, error) {
	ctx, span := tracer.Start(ctx, "InsightsService.Analyze")
	defer span.End()

	if customerID == "" {
		return nil, &domain.ErrValidation{Field: "customerId", Message: "customer id is required"}
	}
	asOf = s.asOfOrToday(asOf)
	span.SetAttributes(
		attribute.String("customer.id", customerID),
		attribute.String("as_of", asOf.Format(dateLayout)),
	)

	start := time.Now()
	report, err := s.guarded(ctx, func() (*domain.InsightReport, error) {
		txs, profile, err := s.fetch(ctx, customerID)
		if err != nil {
			return nil, err
		}
		return s.run(ctx, customerID, txs, profile, asOf, s.keeperStep(customerID, asOf))
	})
	s.finish(span, "analyze", start, customerID, report, err)
	return report, err
}

// AnalyzeSnapshot runs the pipeline over an inbound snapshot without
// touching any store. The mode starts from snapshot.Mode, or normal.
func (s *InsightsService) AnalyzeSnapshot(ctx context.Context, snapshot *domain.LedgerSnapshot, asOf time.Time) (*domain.InsightReport, error) {
	ctx, span := tracer.Start(ctx, "InsightsService.AnalyzeSnapshot")
	defer span.End()

	if snapshot == nil {
		return nil, &domain.ErrValidation{Field: "snapshot", Message: "snapshot is required"}
	}
	asOf = s.asOfOrToday(asOf)
	span.SetAttributes(
		attribute.String("as_of", asOf.Format(dateLayout)),
		attribute.Int("transactions.count", len(snapshot.Transactions)),
	)

	prior := analysis.NewModeState(asOf)
	if snapshot.Mode != nil {
		prior = *snapshot.Mode
	}
	evaluate := func(_ context.Context, step ModeStep) (domain.ModeState, bool, error) {
		next, changed := step(prior)
		return next, changed, nil
	}

	start := time.Now()
	report, err := s.guarded(ctx, func() (*domain.InsightReport, error) {
		return s.run(ctx, "", snapshot.Transactions, snapshot.Profile, asOf, evaluate)
	})
	s.finish(span, "analyze_snapshot", start, "", report, err)
	return report, err
}

// CurrentMode returns the mode of a customer, loading it on first use.
func (s *InsightsService) CurrentMode(ctx context.Context, customerID string) (domain.ModeState, error) {
	if customerID == "" {
		return domain.ModeState{}, &domain.ErrValidation{Field: "customerId", Message: "customer id is required"}
	}
	return s.modes.Get(ctx, customerID, s.Today())
}

// RecentRuns lists the stored run summaries of a customer, newest first.
// Without a recorder the history is empty.
func (s *InsightsService) RecentRuns(ctx context.Context, customerID string, limit int) ([]domain.RunSummary, error) {
	if customerID == "" {
		return nil, &domain.ErrValidation{Field: "customerId", Message: "customer id is required"}
	}
	if limit <= 0 {
		return nil, &domain.ErrValidation{Field: "limit", Message: "limit must be positive"}
	}
	if s.recorder == nil {
		return []domain.RunSummary{}, nil
	}
	runs, err := s.recorder.RecentRuns(ctx, customerID, limit)
	if err != nil {
		s.logger.Error("failed to list runs", zap.String("customer_id", customerID), zap.Error(err))
		s.metrics.IncrExternalError("run_recorder")
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	return runs, nil
}

// modeEvaluator applies a step to the prior mode state.
type modeEvaluator func(ctx context.Context, step ModeStep) (domain.ModeState, bool, error)

func (s *InsightsService) keeperStep(customerID string, asOf time.Time) modeEvaluator {
	return func(ctx context.Context, step ModeStep) (domain.ModeState, bool, error) {
		return s.modes.Evaluate(ctx, customerID, asOf, step)
	}
}

// guarded runs fn inside the bulkhead.
func (s *InsightsService) guarded(ctx context.Context, fn func() (*domain.InsightReport, error)) (*domain.InsightReport, error) {
	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, &domain.ErrTimeout{Operation: "insights: waiting for a run slot"}
	}
	defer s.bulkhead.Release()
	return fn()
}

// fetch loads ledger and profile concurrently. A missing profile is not
// fatal: the ledger is analyzed against an empty profile.
func (s *InsightsService) fetch(ctx context.Context, customerID string) ([]domain.Transaction, domain.Profile, error) {
	var (
		txs     []domain.Transaction
		profile domain.Profile
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.profiles.GetProfile(gctx, customerID)
		if err != nil {
			var nf *domain.ErrNotFound
			if errors.As(err, &nf) {
				s.logger.Warn("profile not found, using empty profile", zap.String("customer_id", customerID))
				return nil
			}
			s.logger.Error("failed to fetch profile", zap.String("customer_id", customerID), zap.Error(err))
			s.metrics.IncrExternalError("profile")
			return fmt.Errorf("profile fetch: %w", err)
		}
		profile = *p
		return nil
	})

	g.Go(func() error {
		t, err := s.transactions.GetTransactions(gctx, customerID)
		if err != nil {
			var nf *domain.ErrNotFound
			if !errors.As(err, &nf) {
				s.logger.Error("failed to fetch transactions", zap.String("customer_id", customerID), zap.Error(err))
				s.metrics.IncrExternalError("transactions")
			}
			return fmt.Errorf("transactions fetch: %w", err)
		}
		txs = t
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, domain.Profile{}, err
	}
	return txs, profile, nil
}

// run is the pipeline shared by both entry points.
func (s *InsightsService) run(
	ctx context.Context,
	customerID string,
	raw []domain.Transaction,
	profile domain.Profile,
	asOf time.Time,
	evaluate modeEvaluator,
) (*domain.InsightReport, error) {
	normalized, err := analysis.Normalize(raw, profile.CustomCategories)
	if err != nil {
		return nil, err
	}
	ledger := throughDay(normalized, asOf)
	runAt := s.now().UTC()

	f, err := s.findings(ctx, ledger, profile, asOf, runAt)
	if err != nil {
		return nil, err
	}

	cfg := analysis.ModeConfig{Thresholds: s.th, DailyBudget: f.DailyBudget}
	step := func(prior domain.ModeState) (domain.ModeState, bool) {
		d := analysis.EvaluateDiscipline(prior, ledger, f.GoalInput, asOf, cfg)
		return analysis.EvaluateMode(prior, analysis.ModeSignals{
			At:                asOf,
			WillGoNegative:    f.Forecast.WillGoNegative,
			DaysUntilNegative: f.Forecast.DaysUntilNegative,
			Violations:        len(d.Violations),
			Warnings:          len(d.Warnings),
		}, cfg)
	}
	mode, transitioned, err := evaluate(ctx, step)
	if err != nil {
		return nil, err
	}

	report := &domain.InsightReport{
		RunID:             uuid.NewString(),
		CustomerID:        customerID,
		AsOf:              asOf,
		GeneratedAt:       runAt,
		Balance:           f.Balance,
		Totals:            f.Totals,
		CategoryStats:     f.CategoryStats,
		MonthlyTrend:      f.MonthlyTrend,
		Forecast:          f.Forecast,
		CategoryForecasts: f.CategoryForecasts,
		Anomalies:         f.Anomalies,
		Patterns:          f.Patterns,
		Scarcity:          f.Scarcity,
		PIXGroups:         f.PIXGroups,
		WeeklyAdjustments: f.WeeklyAdjustments,
		Mode:              mode,
		ModeTransitioned:  transitioned,
		Discipline:        analysis.EvaluateDiscipline(mode, ledger, f.GoalInput, asOf, cfg),
		Goal:              f.Goal,
		Suggestions:       f.Suggestions,
	}
	report.Detections = analysis.Describe(analysis.DescribeInput{
		Forecast:         f.Forecast,
		Anomalies:        f.Anomalies,
		Patterns:         f.Patterns,
		Scarcity:         f.Scarcity,
		Mode:             mode,
		ModeTransitioned: transitioned,
	})

	if customerID != "" {
		report.WeeklyHistory = s.mergeWeeklyHistory(ctx, customerID, f.WeeklyAdjustments)
		s.record(ctx, report)
	}
	return report, nil
}

// findings computes (or fetches from cache) the pure part of a run. The
// detectors are independent and run concurrently.
func (s *InsightsService) findings(ctx context.Context, ledger []domain.Transaction, profile domain.Profile, asOf, runAt time.Time) (*Findings, error) {
	_, span := tracer.Start(ctx, "InsightsService.findings")
	defer span.End()

	key, err := cache.KeyFor("findings", ledger, profile, asOf.Format(dateLayout), s.th)
	if err != nil {
		return nil, fmt.Errorf("findings key: %w", err)
	}
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("report")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	s.metrics.IncrCacheMiss("report")

	start := time.Now()
	f := &Findings{
		Balance:       analysis.Balance(profile.InitialBalance, ledger),
		Totals:        analysis.Totals(ledger),
		CategoryStats: analysis.CategoryStats(ledger),
		MonthlyTrend:  analysis.MonthlyTrend(ledger),
		DailyBudget:   analysis.DailyBudget(profile, asOf, s.th),
		GoalInput:     analysis.GoalInputFor(ledger, profile, asOf),
	}

	var g errgroup.Group
	g.Go(func() error { f.Forecast = analysis.Forecast(ledger, profile, asOf); return nil })
	g.Go(func() error { f.CategoryForecasts = analysis.ForecastCategories(ledger, asOf, s.th); return nil })
	g.Go(func() error { f.Anomalies = analysis.DetectAnomalies(ledger, asOf, runAt, s.th); return nil })
	g.Go(func() error { f.Patterns = analysis.DetectPatterns(ledger, asOf, s.th); return nil })
	g.Go(func() error { f.Scarcity = analysis.DetectScarcity(ledger, profile, asOf, s.th); return nil })
	g.Go(func() error { f.PIXGroups = analysis.GroupPIX(ledger, s.th); return nil })
	g.Go(func() error { f.WeeklyAdjustments = analysis.WeeklyAdjustments(ledger, profile, asOf, s.th); return nil })
	g.Go(func() error { f.Goal = analysis.ComputeGoalProgress(f.GoalInput, s.th); return nil })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.Suggestions = analysis.Suggest(analysis.SuggestionInput{
		Forecast:          f.Forecast,
		CategoryForecasts: f.CategoryForecasts,
		Anomalies:         f.Anomalies,
		Patterns:          f.Patterns,
		Scarcity:          f.Scarcity,
		PIXGroups:         f.PIXGroups,
		Goal:              f.Goal,
	}, s.th)

	s.metrics.RecordRunDuration("detectors", time.Since(start))
	s.cache.Set(key, f)
	return f, nil
}

// mergeWeeklyHistory appends newly closed weeks to the stored history. A
// store failure degrades to the weeks computed in this run.
func (s *InsightsService) mergeWeeklyHistory(ctx context.Context, customerID string, computed []domain.WeeklyAdjustment) []domain.WeeklyAdjustment {
	if s.weekly == nil {
		return analysis.MergeWeeklyHistory(nil, computed)
	}

	history, err := s.weekly.LoadWeeks(ctx, customerID)
	if err != nil {
		s.logger.Warn("weekly history unavailable", zap.String("customer_id", customerID), zap.Error(err))
		s.metrics.IncrExternalError("weekly_history")
		return analysis.MergeWeeklyHistory(nil, computed)
	}

	merged := analysis.MergeWeeklyHistory(history, computed)
	if added := merged[len(history):]; len(added) > 0 {
		if err := s.weekly.AppendWeeks(ctx, customerID, added); err != nil {
			s.logger.Warn("weekly history append failed", zap.String("customer_id", customerID), zap.Error(err))
			s.metrics.IncrExternalError("weekly_history")
		}
	}
	return merged
}

func (s *InsightsService) record(ctx context.Context, report *domain.InsightReport) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordRun(ctx, report); err != nil {
		s.logger.Warn("run summary not recorded", zap.String("run_id", report.RunID), zap.Error(err))
		s.metrics.IncrExternalError("run_recorder")
	}
}

func (s *InsightsService) finish(span trace.Span, operation string, start time.Time, customerID string, report *domain.InsightReport, err error) {
	s.metrics.RecordRunDuration(operation, time.Since(start))
	if err != nil {
		s.metrics.IncrRun("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("insight run failed",
			zap.String("operation", operation),
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return
	}

	s.metrics.IncrRun("success")
	s.metrics.RecordReport(report)
	span.SetAttributes(
		attribute.String("run.id", report.RunID),
		attribute.String("mode", string(report.Mode.CurrentMode)),
		attribute.Int("anomalies.count", len(report.Anomalies)),
	)
	s.logger.Info("insight run completed",
		zap.String("operation", operation),
		zap.String("run_id", report.RunID),
		zap.String("customer_id", customerID),
		zap.String("as_of", report.AsOf.Format(dateLayout)),
		zap.String("mode", string(report.Mode.CurrentMode)),
		zap.Bool("mode_transitioned", report.ModeTransitioned),
		zap.Int("anomalies", len(report.Anomalies)),
		zap.Duration("latency", time.Since(start)),
	)
}

func (s *InsightsService) asOfOrToday(asOf time.Time) time.Time {
	if asOf.IsZero() {
		return s.Today()
	}
	return dayOf(asOf)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// throughDay keeps the rows dated on or before day, so a replay with an
// older as-of date ignores later rows. Rows are compared by their calendar
// date in their own location, never by instant.
func throughDay(txs []domain.Transaction, day time.Time) []domain.Transaction {
	limit := calendarDate(day)
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !calendarDate(tx.Date).After(limit) {
			out = append(out, tx)
		}
	}
	return out
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
