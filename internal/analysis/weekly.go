package analysis

import (
	"fmt"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Weekly adjustment
// ============================================================

// MonthlyBudget is the profile budget, or the salary minus the savings share
// when no explicit budget is set.
func MonthlyBudget(profile domain.Profile, th Thresholds) float64 {
	if profile.MonthlyBudget > 0 {
		return profile.MonthlyBudget
	}
	return profile.Salary * (1 - th.SavingsRate)
}

// DailyBudget spreads the monthly budget over the days of asOf's month.
func DailyBudget(profile domain.Profile, asOf time.Time, th Thresholds) float64 {
	return MonthlyBudget(profile, th) / float64(daysInMonth(asOf))
}

// WeeklyAdjustments reviews each 7-day block of asOf's month that has
// started by asOf. Week w covers days 7(w-1)+1 .. min(7w, monthEnd). A week
// is closed once its last day is before asOf; closed weeks are what
// MergeWeeklyHistory retains.
func WeeklyAdjustments(txs []domain.Transaction, profile domain.Profile, asOf time.Time, th Thresholds) []domain.WeeklyAdjustment {
	asOf = dateOf(asOf)
	budget := MonthlyBudget(profile, th)
	if budget <= 0 {
		return nil
	}
	start := monthStart(asOf)
	end := monthEnd(asOf)
	dim := daysInMonth(asOf)

	out := make([]domain.WeeklyAdjustment, 0, 5)
	cumulative := 0.0
	for w := 1; ; w++ {
		wStart := start.AddDate(0, 0, 7*(w-1))
		if wStart.After(end) || wStart.After(asOf) {
			break
		}
		wEnd := wStart.AddDate(0, 0, 6)
		if wEnd.After(end) {
			wEnd = end
		}
		readTo := wEnd
		if readTo.After(asOf) {
			readTo = asOf
		}

		weekDays := daysBetween(wStart, wEnd) + 1
		actual := spendBetween(txs, wStart, readTo)
		projected := budget * float64(weekDays) / float64(dim)
		cumulative += actual

		adj := domain.WeeklyAdjustment{
			Month:             monthKey(asOf),
			WeekNumber:        w,
			StartDate:         wStart,
			EndDate:           wEnd,
			ActualSpending:    round2(actual),
			ProjectedSpending: round2(projected),
			Adjustment:        round2(actual - projected),
			Closed:            wEnd.Before(asOf),
		}
		if remaining := daysBetween(wEnd, end); remaining > 0 {
			limit := (budget - cumulative) / float64(remaining)
			if limit < 0 {
				limit = 0
			}
			limit = round2(limit)
			adj.NewDailyLimit = &limit
		}
		adj.Message = weeklyMessage(adj)
		out = append(out, adj)
	}
	return out
}

func weeklyMessage(a domain.WeeklyAdjustment) string {
	var head string
	switch {
	case a.Adjustment > 0:
		head = fmt.Sprintf("Semana %d: %s acima do previsto", a.WeekNumber, brl(a.Adjustment))
	case a.Adjustment < 0:
		head = fmt.Sprintf("Semana %d: %s abaixo do previsto", a.WeekNumber, brl(-a.Adjustment))
	default:
		head = fmt.Sprintf("Semana %d: dentro do previsto", a.WeekNumber)
	}
	switch {
	case a.NewDailyLimit == nil:
		return head + ". Fim do mês, sem dias restantes para redistribuir."
	case *a.NewDailyLimit == 0:
		return head + ". Orçamento do mês esgotado."
	}
	return fmt.Sprintf("%s. Novo limite diário: %s.", head, brl(*a.NewDailyLimit))
}

// MergeWeeklyHistory appends the closed weeks of computed that history does
// not hold yet. Entries already in history are never rewritten.
func MergeWeeklyHistory(history, computed []domain.WeeklyAdjustment) []domain.WeeklyAdjustment {
	out := make([]domain.WeeklyAdjustment, len(history), len(history)+len(computed))
	copy(out, history)
	seen := make(map[string]bool, len(history))
	for _, h := range history {
		seen[weekID(h)] = true
	}
	for _, c := range computed {
		if !c.Closed || seen[weekID(c)] {
			continue
		}
		seen[weekID(c)] = true
		out = append(out, c)
	}
	return out
}

func weekID(a domain.WeeklyAdjustment) string {
	return fmt.Sprintf("%s#%d", a.Month, a.WeekNumber)
}
