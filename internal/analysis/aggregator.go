package analysis

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Aggregator
// ============================================================

// Sums go through decimal so the balance identity holds exactly no matter
// how the rows are ordered.

// Totals sums inflows and the absolute value of outflows.
func Totals(txs []domain.Transaction) domain.Totals {
	in, out := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		amt := decimal.NewFromFloat(tx.Amount)
		if tx.IsIncome() {
			in = in.Add(amt)
		} else {
			out = out.Add(amt.Abs())
		}
	}
	return domain.Totals{Entradas: in.InexactFloat64(), Saidas: out.InexactFloat64()}
}

// Balance is initial + entradas - saidas, recomputed on every call.
func Balance(initial float64, txs []domain.Transaction) float64 {
	sum := decimal.NewFromFloat(initial)
	for _, tx := range txs {
		sum = sum.Add(decimal.NewFromFloat(tx.Amount))
	}
	return sum.InexactFloat64()
}

// CategoryStats aggregates by category, ordered by |total| descending;
// ties keep the order in which the categories first appear.
func CategoryStats(txs []domain.Transaction) []domain.CategoryStat {
	type acc struct {
		first int
		count int
		total decimal.Decimal
	}
	byCat := make(map[domain.Category]*acc)
	order := make([]domain.Category, 0)
	for i, tx := range txs {
		a, ok := byCat[tx.Category]
		if !ok {
			a = &acc{first: i, total: decimal.Zero}
			byCat[tx.Category] = a
			order = append(order, tx.Category)
		}
		a.count++
		a.total = a.total.Add(decimal.NewFromFloat(tx.Amount))
	}

	stats := make([]domain.CategoryStat, 0, len(order))
	for _, c := range order {
		a := byCat[c]
		avg := a.total.Div(decimal.NewFromInt(int64(a.count)))
		stats = append(stats, domain.CategoryStat{
			Category: c,
			Count:    a.count,
			Total:    a.total.InexactFloat64(),
			Average:  avg.Round(2).InexactFloat64(),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		ti, tj := abs(stats[i].Total), abs(stats[j].Total)
		if ti != tj {
			return ti > tj
		}
		return byCat[stats[i].Category].first < byCat[stats[j].Category].first
	})
	return stats
}

// CategoryStatMap is CategoryStats keyed by category.
func CategoryStatMap(txs []domain.Transaction) map[domain.Category]domain.CategoryStat {
	stats := CategoryStats(txs)
	m := make(map[domain.Category]domain.CategoryStat, len(stats))
	for _, s := range stats {
		m[s.Category] = s
	}
	return m
}

// MonthlyTrend returns income, expenses and net per calendar month, ascending.
func MonthlyTrend(txs []domain.Transaction) []domain.MonthlyTrend {
	type acc struct{ in, out decimal.Decimal }
	byMonth := make(map[string]*acc)
	for _, tx := range txs {
		k := monthKey(tx.Date)
		a, ok := byMonth[k]
		if !ok {
			a = &acc{in: decimal.Zero, out: decimal.Zero}
			byMonth[k] = a
		}
		amt := decimal.NewFromFloat(tx.Amount)
		if tx.IsIncome() {
			a.in = a.in.Add(amt)
		} else {
			a.out = a.out.Add(amt.Abs())
		}
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	trend := make([]domain.MonthlyTrend, 0, len(keys))
	for _, k := range keys {
		a := byMonth[k]
		trend = append(trend, domain.MonthlyTrend{
			Month:    k,
			Income:   a.in.InexactFloat64(),
			Expenses: a.out.InexactFloat64(),
			Balance:  a.in.Sub(a.out).InexactFloat64(),
		})
	}
	return trend
}

// spendTotal sums |amount| over the outflows of txs.
func spendTotal(txs []domain.Transaction) float64 {
	sum := decimal.Zero
	for _, tx := range txs {
		if tx.Type == domain.TypeSaida {
			sum = sum.Add(decimal.NewFromFloat(tx.Amount).Abs())
		}
	}
	return sum.InexactFloat64()
}

// spendBetween sums outflows dated in [from, to].
func spendBetween(txs []domain.Transaction, from, to time.Time) float64 {
	return spendTotal(filterRange(txs, from, to))
}

func filterRange(txs []domain.Transaction, from, to time.Time) []domain.Transaction {
	out := make([]domain.Transaction, 0)
	for _, tx := range txs {
		if inRange(tx.Date, from, to) {
			out = append(out, tx)
		}
	}
	return out
}

// before returns the rows dated strictly before day.
func before(txs []domain.Transaction, day time.Time) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if daysBetween(tx.Date, day) > 0 {
			out = append(out, tx)
		}
	}
	return out
}

// upTo returns the rows dated on or before day.
func upTo(txs []domain.Transaction, day time.Time) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if daysBetween(tx.Date, day) >= 0 {
			out = append(out, tx)
		}
	}
	return out
}

// dailySpend maps each calendar day to its total outflow.
func dailySpend(txs []domain.Transaction) map[string]float64 {
	m := make(map[string]float64)
	for _, tx := range txs {
		if tx.Type == domain.TypeSaida {
			m[dayKey(tx.Date)] += tx.AbsAmount()
		}
	}
	return m
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
