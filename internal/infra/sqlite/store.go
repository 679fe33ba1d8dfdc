// Package sqlite persists the stateful parts of the insights service (mode
// state, weekly adjustment history and run summaries) in a local SQLite
// file through the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

const dateLayout = "2006-01-02"

// Store implements port.ModeStore, port.WeeklyHistoryStore and
// port.RunRecorder.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex // serializes writers
	logger *zap.Logger
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS mode_states (
			customer_id       TEXT PRIMARY KEY,
			current_mode      TEXT NOT NULL,
			reason            TEXT,
			activated_at      INTEGER NOT NULL,
			last_triggered_at INTEGER NOT NULL,
			last_evaluated_at INTEGER,
			restrictions      TEXT NOT NULL,
			updated_at        INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS weekly_adjustments (
			customer_id        TEXT NOT NULL,
			month              TEXT NOT NULL,
			week_number        INTEGER NOT NULL,
			start_date         TEXT NOT NULL,
			end_date           TEXT NOT NULL,
			actual_spending    REAL,
			projected_spending REAL,
			adjustment         REAL,
			new_daily_limit    REAL,
			closed             INTEGER NOT NULL,
			message            TEXT,
			PRIMARY KEY (customer_id, month, week_number)
		)`,

		`CREATE TABLE IF NOT EXISTS insight_runs (
			run_id            TEXT PRIMARY KEY,
			customer_id       TEXT,
			as_of             TEXT NOT NULL,
			generated_at      INTEGER NOT NULL,
			balance           REAL,
			projected_balance REAL,
			will_go_negative  INTEGER NOT NULL,
			mode              TEXT,
			mode_transitioned INTEGER NOT NULL,
			anomalies         INTEGER,
			patterns          INTEGER,
			suggestions       INTEGER,
			goal_status       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_customer ON insight_runs(customer_id, generated_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return s.addColumn("mode_states", "last_evaluated_at", "INTEGER")
}

// addColumn upgrades tables created before the column existed.
func (s *Store) addColumn(table, column, typ string) error {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, typ)); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ============================================================
// Mode state
// ============================================================

// LoadMode returns the stored mode state, or nil when none exists.
func (s *Store) LoadMode(ctx context.Context, customerID string) (*domain.ModeState, error) {
	var (
		mode, reason, restrictions string
		activated, triggered       int64
		evaluated                  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT current_mode, reason, activated_at, last_triggered_at, last_evaluated_at, restrictions
		 FROM mode_states WHERE customer_id = ?`, customerID,
	).Scan(&mode, &reason, &activated, &triggered, &evaluated, &restrictions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load mode %s: %w", customerID, err)
	}

	state := &domain.ModeState{
		CurrentMode:     domain.Mode(mode),
		Reason:          reason,
		ActivatedAt:     time.Unix(activated, 0).UTC(),
		LastTriggeredAt: time.Unix(triggered, 0).UTC(),
	}
	if evaluated.Valid {
		state.LastEvaluatedAt = time.Unix(evaluated.Int64, 0).UTC()
	}
	if err := json.Unmarshal([]byte(restrictions), &state.Restrictions); err != nil {
		return nil, fmt.Errorf("decode restrictions %s: %w", customerID, err)
	}
	return state, nil
}

// SaveMode upserts the mode state of a customer.
func (s *Store) SaveMode(ctx context.Context, customerID string, state domain.ModeState) error {
	restrictions, err := json.Marshal(state.Restrictions)
	if err != nil {
		return fmt.Errorf("encode restrictions: %w", err)
	}

	var evaluated sql.NullInt64
	if !state.LastEvaluatedAt.IsZero() {
		evaluated = sql.NullInt64{Int64: state.LastEvaluatedAt.Unix(), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO mode_states (customer_id, current_mode, reason, activated_at, last_triggered_at, last_evaluated_at, restrictions, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(customer_id) DO UPDATE SET
			current_mode = excluded.current_mode,
			reason = excluded.reason,
			activated_at = excluded.activated_at,
			last_triggered_at = excluded.last_triggered_at,
			last_evaluated_at = excluded.last_evaluated_at,
			restrictions = excluded.restrictions,
			updated_at = excluded.updated_at`,
		customerID, string(state.CurrentMode), state.Reason,
		state.ActivatedAt.Unix(), state.LastTriggeredAt.Unix(), evaluated,
		string(restrictions), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save mode %s: %w", customerID, err)
	}
	return nil
}

// ============================================================
// Weekly history
// ============================================================

// LoadWeeks returns the stored weekly history ordered by month and week.
func (s *Store) LoadWeeks(ctx context.Context, customerID string) ([]domain.WeeklyAdjustment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT month, week_number, start_date, end_date, actual_spending, projected_spending,
		        adjustment, new_daily_limit, closed, message
		 FROM weekly_adjustments WHERE customer_id = ?
		 ORDER BY month, week_number`, customerID)
	if err != nil {
		return nil, fmt.Errorf("load weeks %s: %w", customerID, err)
	}
	defer rows.Close()

	weeks := []domain.WeeklyAdjustment{}
	for rows.Next() {
		var (
			w          domain.WeeklyAdjustment
			start, end string
			limit      sql.NullFloat64
			closed     int
			message    sql.NullString
		)
		if err := rows.Scan(&w.Month, &w.WeekNumber, &start, &end, &w.ActualSpending,
			&w.ProjectedSpending, &w.Adjustment, &limit, &closed, &message); err != nil {
			return nil, fmt.Errorf("scan week: %w", err)
		}
		w.StartDate, _ = time.Parse(dateLayout, start)
		w.EndDate, _ = time.Parse(dateLayout, end)
		if limit.Valid {
			v := limit.Float64
			w.NewDailyLimit = &v
		}
		w.Closed = closed == 1
		w.Message = message.String
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

// AppendWeeks inserts weeks that are not stored yet. A stored
// (customer, month, week) row is never rewritten.
func (s *Store) AppendWeeks(ctx context.Context, customerID string, weeks []domain.WeeklyAdjustment) error {
	if len(weeks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO weekly_adjustments
		 (customer_id, month, week_number, start_date, end_date, actual_spending, projected_spending,
		  adjustment, new_daily_limit, closed, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, w := range weeks {
		var limit any
		if w.NewDailyLimit != nil {
			limit = *w.NewDailyLimit
		}
		closed := 0
		if w.Closed {
			closed = 1
		}
		if _, err := stmt.ExecContext(ctx, customerID, w.Month, w.WeekNumber,
			w.StartDate.Format(dateLayout), w.EndDate.Format(dateLayout),
			w.ActualSpending, w.ProjectedSpending, w.Adjustment, limit, closed, w.Message); err != nil {
			return fmt.Errorf("insert week %s/%d: %w", w.Month, w.WeekNumber, err)
		}
	}
	return tx.Commit()
}

// ============================================================
// Run summaries
// ============================================================

// RecordRun stores a summary of a finished report.
func (s *Store) RecordRun(ctx context.Context, r *domain.InsightReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO insight_runs
		 (run_id, customer_id, as_of, generated_at, balance, projected_balance, will_go_negative,
		  mode, mode_transitioned, anomalies, patterns, suggestions, goal_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.CustomerID, r.AsOf.Format(dateLayout), r.GeneratedAt.Unix(),
		r.Balance, r.Forecast.ProjectedBalance, boolInt(r.Forecast.WillGoNegative),
		string(r.Mode.CurrentMode), boolInt(r.ModeTransitioned),
		len(r.Anomalies), len(r.Patterns), len(r.Suggestions), string(r.Goal.Status),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	return nil
}

// RecentRuns lists the latest runs of a customer, newest first.
func (s *Store) RecentRuns(ctx context.Context, customerID string, limit int) ([]domain.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, customer_id, as_of, generated_at, balance, projected_balance, will_go_negative,
		        mode, mode_transitioned, anomalies, patterns, suggestions, goal_status
		 FROM insight_runs WHERE customer_id = ?
		 ORDER BY generated_at DESC, rowid DESC LIMIT ?`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs %s: %w", customerID, err)
	}
	defer rows.Close()

	out := make([]domain.RunSummary, 0)
	for rows.Next() {
		var (
			r                  domain.RunSummary
			generated          int64
			negative, switched int
			mode, goal         string
		)
		if err := rows.Scan(&r.RunID, &r.CustomerID, &r.AsOf, &generated, &r.Balance, &r.ProjectedBalance,
			&negative, &mode, &switched, &r.Anomalies, &r.Patterns, &r.Suggestions, &goal); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.GeneratedAt = time.Unix(generated, 0).UTC()
		r.WillGoNegative = negative == 1
		r.ModeTransitioned = switched == 1
		r.Mode = domain.Mode(mode)
		r.GoalStatus = domain.GoalStatus(goal)
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
