// Package scheduler runs the insight pipeline on a cron schedule for a
// fixed list of customers, so mode transitions and weekly history advance
// even when nobody opens the app.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// Analyzer is the part of the insights service the scheduler drives.
type Analyzer interface {
	Analyze(ctx context.Context, customerID string, asOf time.Time) (*domain.InsightReport, error)
}

// Result is the outcome of one scheduled run for one customer.
type Result struct {
	CustomerID string
	Mode       domain.Mode
	Changed    bool
	Err        error
}

// Scheduler manages the cron task.
type Scheduler struct {
	cron      *cron.Cron
	analyzer  Analyzer
	customers []string
	timeout   time.Duration
	logger    *zap.Logger
	ctx       context.Context
}

// New creates a scheduler. Specs use the six-field format with seconds,
// e.g. "0 30 6 * * *" for 06:30 every day.
func New(ctx context.Context, analyzer Analyzer, customers []string, timeout time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		analyzer:  analyzer,
		customers: customers,
		timeout:   timeout,
		logger:    logger,
		ctx:       ctx,
	}
}

// Register adds the daily analysis task.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunNow() }); err != nil {
		return fmt.Errorf("register analysis task %q: %w", spec, err)
	}
	s.logger.Info("scheduled analysis registered",
		zap.String("spec", spec),
		zap.Int("customers", len(s.customers)),
	)
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow analyzes every configured customer once, in order. One failing
// customer does not stop the others.
func (s *Scheduler) RunNow() []Result {
	s.logger.Info("running scheduled analysis", zap.Int("customers", len(s.customers)))

	results := make([]Result, 0, len(s.customers))
	for _, id := range s.customers {
		if s.ctx.Err() != nil {
			s.logger.Warn("scheduled analysis interrupted", zap.Error(s.ctx.Err()))
			break
		}
		results = append(results, s.analyzeOne(id))
	}
	return results
}

func (s *Scheduler) analyzeOne(customerID string) Result {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.analyzer.Analyze(ctx, customerID, time.Time{})
	if err != nil {
		s.logger.Error("scheduled analysis failed",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return Result{CustomerID: customerID, Err: err}
	}

	if report.ModeTransitioned {
		s.logger.Info("scheduled analysis changed mode",
			zap.String("customer_id", customerID),
			zap.String("mode", string(report.Mode.CurrentMode)),
			zap.String("reason", report.Mode.Reason),
		)
	}
	return Result{
		CustomerID: customerID,
		Mode:       report.Mode.CurrentMode,
		Changed:    report.ModeTransitioned,
	}
}
