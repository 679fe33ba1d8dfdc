package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/resilience"
)

// ============================================================
// Mode state (implements port.ModeStore)
// ============================================================

type modeRow struct {
	CustomerID      string              `json:"customer_id"`
	CurrentMode     string              `json:"current_mode"`
	Reason          string              `json:"reason"`
	ActivatedAt     time.Time           `json:"activated_at"`
	LastTriggeredAt time.Time           `json:"last_triggered_at"`
	LastEvaluatedAt *time.Time          `json:"last_evaluated_at"`
	Restrictions    domain.Restrictions `json:"restrictions"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// LoadMode returns the stored mode state, or nil when none exists.
func (c *Client) LoadMode(ctx context.Context, customerID string) (*domain.ModeState, error) {
	ctx, span := tracer.Start(ctx, "Supabase.LoadMode")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	var state *domain.ModeState
	err := c.call(ctx, "mode_states", func() error {
		path := fmt.Sprintf("mode_states?customer_id=eq.%s&limit=1", url.QueryEscape(customerID))
		body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
		if err != nil || body == nil {
			return err
		}

		var rows []modeRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return resilience.Permanent(fmt.Errorf("failed to decode mode state: %w", err))
		}
		if len(rows) == 0 {
			return nil
		}
		r := rows[0]
		state = &domain.ModeState{
			CurrentMode:     domain.Mode(r.CurrentMode),
			Reason:          r.Reason,
			ActivatedAt:     r.ActivatedAt,
			LastTriggeredAt: r.LastTriggeredAt,
			Restrictions:    r.Restrictions,
		}
		if r.LastEvaluatedAt != nil {
			state.LastEvaluatedAt = *r.LastEvaluatedAt
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return state, nil
}

// SaveMode upserts the mode state of a customer.
func (c *Client) SaveMode(ctx context.Context, customerID string, state domain.ModeState) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveMode")
	defer span.End()
	span.SetAttributes(
		attribute.String("customer.id", customerID),
		attribute.String("mode", string(state.CurrentMode)),
	)

	row := modeRow{
		CustomerID:      customerID,
		CurrentMode:     string(state.CurrentMode),
		Reason:          state.Reason,
		ActivatedAt:     state.ActivatedAt,
		LastTriggeredAt: state.LastTriggeredAt,
		Restrictions:    state.Restrictions,
		UpdatedAt:       time.Now().UTC(),
	}
	if !state.LastEvaluatedAt.IsZero() {
		evaluated := state.LastEvaluatedAt
		row.LastEvaluatedAt = &evaluated
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}

	err = c.call(ctx, "mode_states", func() error {
		_, err := c.doRequest(ctx, http.MethodPost, "mode_states?on_conflict=customer_id", payload,
			"resolution=merge-duplicates,return=minimal")
		return err
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// ============================================================
// Weekly history (implements port.WeeklyHistoryStore)
// ============================================================

type weekRow struct {
	CustomerID        string   `json:"customer_id"`
	Month             string   `json:"month"`
	WeekNumber        int      `json:"week_number"`
	StartDate         string   `json:"start_date"`
	EndDate           string   `json:"end_date"`
	ActualSpending    float64  `json:"actual_spending"`
	ProjectedSpending float64  `json:"projected_spending"`
	Adjustment        float64  `json:"adjustment"`
	NewDailyLimit     *float64 `json:"new_daily_limit"`
	Closed            bool     `json:"closed"`
	Message           string   `json:"message"`
}

// LoadWeeks returns the stored weekly history ordered by month and week.
func (c *Client) LoadWeeks(ctx context.Context, customerID string) ([]domain.WeeklyAdjustment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.LoadWeeks")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	weeks := []domain.WeeklyAdjustment{}
	err := c.call(ctx, "weekly_adjustments", func() error {
		path := fmt.Sprintf("weekly_adjustments?customer_id=eq.%s&order=month.asc,week_number.asc", url.QueryEscape(customerID))
		body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
		if err != nil || body == nil {
			return err
		}

		var rows []weekRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return resilience.Permanent(fmt.Errorf("failed to decode weekly history: %w", err))
		}
		weeks = weeks[:0]
		for _, r := range rows {
			start, _ := parseDate(r.StartDate)
			end, _ := parseDate(r.EndDate)
			weeks = append(weeks, domain.WeeklyAdjustment{
				Month:             r.Month,
				WeekNumber:        r.WeekNumber,
				StartDate:         start,
				EndDate:           end,
				ActualSpending:    r.ActualSpending,
				ProjectedSpending: r.ProjectedSpending,
				Adjustment:        r.Adjustment,
				NewDailyLimit:     r.NewDailyLimit,
				Closed:            r.Closed,
				Message:           r.Message,
			})
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return weeks, nil
}

// AppendWeeks inserts weeks that are not stored yet. Existing
// (customer, month, week) rows are left untouched.
func (c *Client) AppendWeeks(ctx context.Context, customerID string, weeks []domain.WeeklyAdjustment) error {
	if len(weeks) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "Supabase.AppendWeeks")
	defer span.End()
	span.SetAttributes(
		attribute.String("customer.id", customerID),
		attribute.Int("weeks.count", len(weeks)),
	)

	rows := make([]weekRow, 0, len(weeks))
	for _, w := range weeks {
		rows = append(rows, weekRow{
			CustomerID:        customerID,
			Month:             w.Month,
			WeekNumber:        w.WeekNumber,
			StartDate:         w.StartDate.Format("2006-01-02"),
			EndDate:           w.EndDate.Format("2006-01-02"),
			ActualSpending:    w.ActualSpending,
			ProjectedSpending: w.ProjectedSpending,
			Adjustment:        w.Adjustment,
			NewDailyLimit:     w.NewDailyLimit,
			Closed:            w.Closed,
			Message:           w.Message,
		})
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	err = c.call(ctx, "weekly_adjustments", func() error {
		_, err := c.doRequest(ctx, http.MethodPost, "weekly_adjustments?on_conflict=customer_id,month,week_number", payload,
			"resolution=ignore-duplicates,return=minimal")
		return err
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}
