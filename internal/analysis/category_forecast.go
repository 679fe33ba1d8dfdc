package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Category forecast
// ============================================================

// ForecastCategories projects each spending category of asOf's month.
// Month-to-date includes the as-of day, so daysElapsed is always at least 1.
func ForecastCategories(txs []domain.Transaction, asOf time.Time, th Thresholds) []domain.CategoryForecast {
	asOf = dateOf(asOf)
	start := monthStart(asOf)
	daysElapsed := asOf.Day()
	dim := daysInMonth(asOf)

	type acc struct {
		total   float64
		earlier float64
		recent  float64
	}
	half := daysElapsed / 2
	byCat := make(map[domain.Category]*acc)
	order := make([]domain.Category, 0)
	for _, tx := range filterRange(txs, start, asOf) {
		if tx.Type != domain.TypeSaida {
			continue
		}
		a, ok := byCat[tx.Category]
		if !ok {
			a = &acc{}
			byCat[tx.Category] = a
			order = append(order, tx.Category)
		}
		a.total += tx.AbsAmount()
		if tx.Date.Day() <= half {
			a.earlier += tx.AbsAmount()
		} else {
			a.recent += tx.AbsAmount()
		}
	}

	hist := historicalMonthlyAverages(before(txs, start))

	out := make([]domain.CategoryForecast, 0, len(order))
	for _, c := range order {
		a := byCat[c]
		daily := a.total / float64(daysElapsed)
		f := domain.CategoryForecast{
			Category:                 c,
			CurrentTotal:             round2(a.total),
			DailyAverage:             round2(daily),
			ProjectedMonthly:         round2(daily * float64(dim)),
			HistoricalMonthlyAverage: round2(hist[c]),
			Trend:                    trendOf(a.earlier, a.recent, half, daysElapsed, th.TrendMargin),
		}
		f.Message = categoryMessage(f)
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProjectedMonthly != out[j].ProjectedMonthly {
			return out[i].ProjectedMonthly > out[j].ProjectedMonthly
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// trendOf compares the per-day spend of the recent half of the elapsed
// month against the earlier half.
func trendOf(earlier, recent float64, half, elapsed int, margin float64) domain.Trend {
	if half == 0 {
		return domain.TrendStable
	}
	earlierAvg := earlier / float64(half)
	recentAvg := recent / float64(elapsed-half)
	switch {
	case earlierAvg == 0 && recentAvg > 0:
		return domain.TrendIncreasing
	case earlierAvg == 0:
		return domain.TrendStable
	case recentAvg > earlierAvg*(1+margin):
		return domain.TrendIncreasing
	case recentAvg < earlierAvg*(1-margin):
		return domain.TrendDecreasing
	}
	return domain.TrendStable
}

// historicalMonthlyAverages averages category spend over the months that
// have any activity in txs.
func historicalMonthlyAverages(txs []domain.Transaction) map[domain.Category]float64 {
	months := make(map[string]bool)
	sums := make(map[domain.Category]float64)
	for _, tx := range txs {
		months[monthKey(tx.Date)] = true
		if tx.Type == domain.TypeSaida {
			sums[tx.Category] += tx.AbsAmount()
		}
	}
	if len(months) == 0 {
		return sums
	}
	for c, v := range sums {
		sums[c] = v / float64(len(months))
	}
	return sums
}

func categoryMessage(f domain.CategoryForecast) string {
	base := fmt.Sprintf("%s: %s até agora, projeção de %s no mês", f.Category, brl(f.CurrentTotal), brl(f.ProjectedMonthly))
	switch f.Trend {
	case domain.TrendIncreasing:
		base += ", gastos acelerando"
	case domain.TrendDecreasing:
		base += ", gastos desacelerando"
	}
	if f.HistoricalMonthlyAverage > 0 {
		base += fmt.Sprintf(" (média histórica %s)", brl(f.HistoricalMonthlyAverage))
	}
	return base + "."
}
