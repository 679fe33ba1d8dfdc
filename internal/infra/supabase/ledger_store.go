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

// --- Transactions (implements port.TransactionsFetcher) ---

// transactionRow maps the ledger_transactions table.
type transactionRow struct {
	ID                  string  `json:"id"`
	CustomerID          string  `json:"customer_id"`
	Date                string  `json:"date"`
	Amount              float64 `json:"amount"`
	Type                string  `json:"type"`
	Description         string  `json:"description"`
	OriginalDescription string  `json:"original_description"`
	Category            string  `json:"category"`
	Detalhes            string  `json:"detalhes"`
	Lancamento          string  `json:"lancamento"`
	NumeroDocumento     string  `json:"numero_documento"`
}

// GetTransactions fetches the whole ledger of a customer, page by page.
func (c *Client) GetTransactions(ctx context.Context, customerID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	transactions := []domain.Transaction{}
	for offset := 0; ; offset += c.pageSize {
		var rows []transactionRow
		err := c.call(ctx, "transactions", func() error {
			path := fmt.Sprintf("ledger_transactions?customer_id=eq.%s&order=date.asc,id.asc&limit=%d&offset=%d",
				url.QueryEscape(customerID), c.pageSize, offset)
			body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
			if err != nil {
				return err
			}
			rows = nil
			if body == nil {
				return nil
			}
			if err := json.Unmarshal(body, &rows); err != nil {
				return resilience.Permanent(fmt.Errorf("failed to decode transactions: %w", err))
			}
			return nil
		})
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		for _, r := range rows {
			tx, err := r.toDomain()
			if err != nil {
				return nil, err
			}
			transactions = append(transactions, tx)
		}
		if len(rows) < c.pageSize {
			break
		}
	}

	span.SetAttributes(attribute.Int("transactions.count", len(transactions)))
	return transactions, nil
}

func (r transactionRow) toDomain() (domain.Transaction, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return domain.Transaction{}, &domain.ErrInvalidTransaction{ID: r.ID, Reason: fmt.Sprintf("invalid date %q", r.Date)}
	}
	return domain.Transaction{
		ID:                  r.ID,
		Date:                date,
		Amount:              r.Amount,
		Type:                domain.TransactionType(r.Type),
		Description:         r.Description,
		OriginalDescription: r.OriginalDescription,
		Category:            domain.Category(r.Category),
		Detalhes:            r.Detalhes,
		Lancamento:          r.Lancamento,
		NumeroDocumento:     r.NumeroDocumento,
	}, nil
}

// --- Profile (implements port.ProfileFetcher) ---

// profileRow maps the ledger_profiles table.
type profileRow struct {
	CustomerID       string   `json:"customer_id"`
	InitialBalance   float64  `json:"initial_balance"`
	Salary           float64  `json:"salary"`
	MonthlyBudget    float64  `json:"monthly_budget"`
	CustomCategories []string `json:"custom_categories"`
	Rav4Target       float64  `json:"rav4_target"`
	Rav4TargetDate   string   `json:"rav4_target_date"`
	Rav4StartDate    string   `json:"rav4_start_date"`
}

// GetProfile fetches the ledger owner's profile from Supabase.
func (c *Client) GetProfile(ctx context.Context, customerID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	var profile *domain.Profile

	err := c.call(ctx, "profile", func() error {
		path := fmt.Sprintf("ledger_profiles?customer_id=eq.%s&limit=1", url.QueryEscape(customerID))
		body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
		if err != nil {
			return err
		}

		var rows []profileRow
		if body != nil {
			if err := json.Unmarshal(body, &rows); err != nil {
				return resilience.Permanent(fmt.Errorf("failed to decode profile: %w", err))
			}
		}
		if len(rows) == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "profile", ID: customerID})
		}

		p := rows[0]
		profile = &domain.Profile{
			InitialBalance:   p.InitialBalance,
			Salary:           p.Salary,
			MonthlyBudget:    p.MonthlyBudget,
			CustomCategories: p.CustomCategories,
			Rav4Target:       p.Rav4Target,
		}
		// bad goal dates leave the goal unconfigured rather than failing the run
		profile.Rav4TargetDate, _ = parseDate(p.Rav4TargetDate)
		profile.Rav4StartDate, _ = parseDate(p.Rav4StartDate)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return profile, nil
}

// parseDate accepts RFC 3339 timestamps and plain dates. Empty is zero.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
