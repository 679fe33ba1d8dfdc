package analysis

import (
	"fmt"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Projection engine
// ============================================================

// DailyRates is the historical burn and income per day.
type DailyRates struct {
	Income float64
	Spend  float64
}

// Net is the expected balance change per day.
func (r DailyRates) Net() float64 { return r.Income - r.Spend }

// Forecast projects the balance to the end of asOf's month.
//
// The current balance includes every row dated on or before asOf. Rates are
// month-to-date totals of the completed days (those before asOf) divided by
// their count; on the first day there is no history and the rates are zero.
// When asOf already has rows, the day counts as settled and only the days
// after it are projected at the rate; otherwise asOf is projected too.
func Forecast(txs []domain.Transaction, profile domain.Profile, asOf time.Time) domain.ForecastResult {
	asOf = dateOf(asOf)
	booked := upTo(txs, asOf)
	current := Balance(profile.InitialBalance, booked)

	var rates DailyRates
	if completed := asOf.Day() - 1; completed > 0 {
		totals := Totals(filterRange(before(txs, asOf), monthStart(asOf), asOf))
		rates = DailyRates{
			Income: totals.Entradas / float64(completed),
			Spend:  totals.Saidas / float64(completed),
		}
	}

	today := rates.Net()
	if len(booked) > len(before(booked, asOf)) {
		today = 0
	}
	return project(current, today, rates, asOf)
}

// Project scans day by day from asOf to the month end so a mid-month dip is
// caught even if the balance recovers before the month closes. Day j ends
// with current + (j+1)*net.
func Project(current float64, rates DailyRates, asOf time.Time) domain.ForecastResult {
	return project(current, rates.Net(), rates, asOf)
}

// project is Project with asOf's own movement given apart: day j ends with
// current + today + j*net.
func project(current, today float64, rates DailyRates, asOf time.Time) domain.ForecastResult {
	asOf = dateOf(asOf)
	end := monthEnd(asOf)
	daysRemaining := daysBetween(asOf, end)
	net := rates.Net()

	res := domain.ForecastResult{
		CurrentBalance: round2(current),
		DailySpending:  round2(rates.Spend),
		DailyIncome:    round2(rates.Income),
		ProjectionDate: end,
		DaysRemaining:  daysRemaining,
	}

	minBalance := current
	markNegative := func(j int) {
		if res.NegativeDate != nil {
			return
		}
		d := asOf.AddDate(0, 0, j)
		n := j
		res.NegativeDate = &d
		res.DaysUntilNegative = &n
	}
	if current < 0 {
		markNegative(0)
	}
	for j := 0; j <= daysRemaining; j++ {
		bal := current + today + float64(j)*net
		if bal < minBalance {
			minBalance = bal
		}
		if bal < 0 {
			markNegative(j)
		}
	}

	res.ProjectedBalance = round2(current + today + float64(daysRemaining)*net)
	res.WillGoNegative = res.ProjectedBalance < 0 || res.NegativeDate != nil
	if minBalance < 0 {
		res.NegativeAmount = round2(-minBalance)
	}

	switch {
	case !res.WillGoNegative:
		res.Recommendation = fmt.Sprintf("Projeção positiva: saldo estimado de %s em %s.", brl(res.ProjectedBalance), fullDate(end))
	case daysRemaining == 0:
		res.Recommendation = fmt.Sprintf("Saldo negativo previsto hoje (%s): ação imediata necessária.", brl(-res.NegativeAmount))
	default:
		e := round2(res.NegativeAmount / float64(daysRemaining))
		res.EconomyPerDay = &e
		res.Recommendation = fmt.Sprintf("Economize %s por dia para não ficar negativo até %s.", brl(e), fullDate(end))
	}
	return res
}
