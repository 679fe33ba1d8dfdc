// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the analysis
// service from the concrete ledger sources and state stores.
package port

import (
	"context"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ProfileFetcher retrieves the ledger owner's profile.
type ProfileFetcher interface {
	GetProfile(ctx context.Context, customerID string) (*domain.Profile, error)
}

// TransactionsFetcher retrieves the raw ledger rows of a customer.
type TransactionsFetcher interface {
	GetTransactions(ctx context.Context, customerID string) ([]domain.Transaction, error)
}

// ModeStore persists the mode state between runs.
// LoadMode returns nil, nil when nothing was stored yet.
type ModeStore interface {
	LoadMode(ctx context.Context, customerID string) (*domain.ModeState, error)
	SaveMode(ctx context.Context, customerID string, state domain.ModeState) error
}

// WeeklyHistoryStore keeps closed weekly adjustments. History is append-only:
// a week already stored is never rewritten.
type WeeklyHistoryStore interface {
	LoadWeeks(ctx context.Context, customerID string) ([]domain.WeeklyAdjustment, error)
	AppendWeeks(ctx context.Context, customerID string, weeks []domain.WeeklyAdjustment) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// RunRecorder keeps a summary of every finished analysis run.
// RecentRuns lists them newest first.
type RunRecorder interface {
	RecordRun(ctx context.Context, report *domain.InsightReport) error
	RecentRuns(ctx context.Context, customerID string, limit int) ([]domain.RunSummary, error)
}
