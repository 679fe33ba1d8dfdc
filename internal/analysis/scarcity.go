package analysis

import (
	"fmt"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Scarcity pattern detector
// ============================================================

// Calendar anchors: a detector analyses asOf's month once enough of it has
// elapsed for its window, otherwise the previous month.
const (
	expensiveWeekMinDay = 14
	midMonthStart       = 11
	midMonthEnd         = 20
	postSalaryCycleDays = 30
	postSalaryMinBase   = 7
)

// DetectScarcity flags spend spikes anchored to salary credit or month
// boundaries. Severity grows with how far the ratio exceeds the baseline.
func DetectScarcity(txs []domain.Transaction, profile domain.Profile, asOf time.Time, th Thresholds) []domain.ScarcityPattern {
	asOf = dateOf(asOf)
	scope := upTo(txs, asOf)

	out := make([]domain.ScarcityPattern, 0)
	if p, ok := expensiveWeek(scope, asOf, th); ok {
		out = append(out, p)
	}
	if p, ok := postSalarySpending(scope, profile, asOf, th); ok {
		out = append(out, p)
	}
	if p, ok := preMonthEnd(scope, asOf, th); ok {
		out = append(out, p)
	}
	if p, ok := midMonthSpike(scope, asOf, th); ok {
		out = append(out, p)
	}
	return out
}

func scarcitySeverity(ratio float64, th Thresholds) domain.Severity {
	switch {
	case ratio >= th.ScarcityHighRatio:
		return domain.SeverityHigh
	case ratio >= th.ScarcityMediumRatio:
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}

// anchorMonth returns the month to analyse and the last day to read from it.
func anchorMonth(asOf time.Time, minDay int) (start, last time.Time) {
	if asOf.Day() >= minDay {
		return monthStart(asOf), asOf
	}
	prev := monthStart(asOf).AddDate(0, -1, 0)
	return prev, monthEnd(prev)
}

// expensiveWeek picks the costliest ISO week of the anchor month.
func expensiveWeek(txs []domain.Transaction, asOf time.Time, th Thresholds) (domain.ScarcityPattern, bool) {
	start, last := anchorMonth(asOf, expensiveWeekMinDay)

	weeks := make(map[string]float64)
	weekNum := make(map[string]int)
	order := make([]string, 0)
	for d := start; !d.After(last); d = d.AddDate(0, 0, 1) {
		k, n := isoWeekKey(d)
		if _, ok := weekNum[k]; !ok {
			weekNum[k] = n
			order = append(order, k)
		}
	}
	for _, tx := range filterRange(txs, start, last) {
		if tx.Type == domain.TypeSaida {
			k, _ := isoWeekKey(tx.Date)
			weeks[k] += tx.AbsAmount()
		}
	}
	if len(order) < 2 {
		return domain.ScarcityPattern{}, false
	}

	total := 0.0
	top := order[0]
	for _, k := range order {
		total += weeks[k]
		if weeks[k] > weeks[top] {
			top = k
		}
	}
	avg := total / float64(len(order))
	if avg <= 0 {
		return domain.ScarcityPattern{}, false
	}
	ratio := weeks[top] / avg
	if ratio < th.ScarcityMinRatio {
		return domain.ScarcityPattern{}, false
	}
	n := weekNum[top]
	return domain.ScarcityPattern{
		ID:          string(domain.ScarcityExpensiveWeek) + ":" + top,
		Type:        domain.ScarcityExpensiveWeek,
		Severity:    scarcitySeverity(ratio, th),
		Title:       fmt.Sprintf("Semana mais cara do mês (semana %d)", n),
		Description: fmt.Sprintf("%s gastos na semana %d, %s a média semanal de %s", brl(weeks[top]), n, timesLabel(ratio), brl(avg)),
		Amount:      round2(weeks[top]),
		Baseline:    round2(avg),
		Ratio:       round2(ratio),
		WeekNumber:  &n,
		Evidence: []string{
			fmt.Sprintf("Semana %s: %s", top, brl(weeks[top])),
			fmt.Sprintf("Média de %d semanas: %s", len(order), brl(avg)),
		},
		Recommendation: "Antecipe ou adie compras dessa semana para equilibrar o mês.",
	}, true
}

// isSalaryCredit matches the salary category or, when the statement text is
// not explicit, an inflow of at least 90% of the profile salary.
func isSalaryCredit(tx domain.Transaction, profile domain.Profile) bool {
	if !tx.IsIncome() {
		return false
	}
	if tx.Category == domain.CategorySalario {
		return true
	}
	return profile.Salary > 0 && tx.Amount >= 0.9*profile.Salary
}

// postSalarySpending compares the daily spend right after the latest salary
// credit with the rest of the salary cycle.
func postSalarySpending(txs []domain.Transaction, profile domain.Profile, asOf time.Time, th Thresholds) (domain.ScarcityPattern, bool) {
	var salary time.Time
	found := false
	for _, tx := range txs {
		if isSalaryCredit(tx, profile) {
			windowEnd := dateOf(tx.Date).AddDate(0, 0, th.PostSalaryWindowDays)
			if daysBetween(windowEnd, asOf) < 0 {
				continue
			}
			salary = dateOf(tx.Date)
			found = true
		}
	}
	if !found {
		return domain.ScarcityPattern{}, false
	}

	windowEnd := salary.AddDate(0, 0, th.PostSalaryWindowDays)
	baseFrom := windowEnd.AddDate(0, 0, 1)
	baseTo := salary.AddDate(0, 0, postSalaryCycleDays-1)
	if baseTo.After(asOf) {
		baseTo = asOf
	}
	baseDays := daysBetween(baseFrom, baseTo) + 1
	if baseDays < postSalaryMinBase {
		return domain.ScarcityPattern{}, false
	}

	windowDays := th.PostSalaryWindowDays + 1
	windowSpend := spendBetween(txs, salary, windowEnd)
	base := spendBetween(txs, baseFrom, baseTo) / float64(baseDays)
	if base <= 0 {
		return domain.ScarcityPattern{}, false
	}
	daily := windowSpend / float64(windowDays)
	ratio := daily / base
	if ratio < th.ScarcityMinRatio {
		return domain.ScarcityPattern{}, false
	}
	return domain.ScarcityPattern{
		ID:          string(domain.ScarcityPostSalarySpending) + ":" + dayKey(salary),
		Type:        domain.ScarcityPostSalarySpending,
		Severity:    scarcitySeverity(ratio, th),
		Title:       "Gastos logo após o salário",
		Description: fmt.Sprintf("Nos %d dias após o salário você gastou %s por dia, %s o ritmo do resto do ciclo", windowDays, brl(daily), timesLabel(ratio)),
		Amount:      round2(windowSpend),
		Baseline:    round2(base),
		Ratio:       round2(ratio),
		DayRange:    &domain.DayRange{Start: salary.Day(), End: windowEnd.Day()},
		Evidence: []string{
			fmt.Sprintf("Salário creditado em %s", fullDate(salary)),
			fmt.Sprintf("Gasto diário pós-salário: %s", brl(daily)),
			fmt.Sprintf("Gasto diário no restante do ciclo: %s", brl(base)),
		},
		Recommendation: "Separe a reserva da meta assim que o salário cair, antes das compras.",
	}, true
}

// preMonthEnd compares the final days of the anchor month with the rest of it.
func preMonthEnd(txs []domain.Transaction, asOf time.Time, th Thresholds) (domain.ScarcityPattern, bool) {
	dim := daysInMonth(asOf)
	windowStartDay := dim - th.PreMonthEndDays + 1
	start, last := anchorMonth(asOf, windowStartDay)
	dim = daysInMonth(start)
	windowStartDay = dim - th.PreMonthEndDays + 1

	windowFrom := start.AddDate(0, 0, windowStartDay-1)
	restTo := windowFrom.AddDate(0, 0, -1)
	windowDays := daysBetween(windowFrom, last) + 1
	restDays := windowStartDay - 1
	if windowDays <= 0 || restDays <= 0 {
		return domain.ScarcityPattern{}, false
	}
	windowSpend := spendBetween(txs, windowFrom, last)
	base := spendBetween(txs, start, restTo) / float64(restDays)
	if base <= 0 {
		return domain.ScarcityPattern{}, false
	}
	daily := windowSpend / float64(windowDays)
	ratio := daily / base
	if ratio < th.ScarcityMinRatio {
		return domain.ScarcityPattern{}, false
	}
	return domain.ScarcityPattern{
		ID:          string(domain.ScarcityPreMonthEnd) + ":" + monthKey(start),
		Type:        domain.ScarcityPreMonthEnd,
		Severity:    scarcitySeverity(ratio, th),
		Title:       "Aperto no fim do mês",
		Description: fmt.Sprintf("Nos últimos %d dias do mês o gasto diário foi %s, %s o restante do mês", th.PreMonthEndDays, brl(daily), timesLabel(ratio)),
		Amount:      round2(windowSpend),
		Baseline:    round2(base),
		Ratio:       round2(ratio),
		DayRange:    &domain.DayRange{Start: windowStartDay, End: dim},
		Evidence: []string{
			fmt.Sprintf("Dias %d-%d: %s", windowStartDay, dim, brl(windowSpend)),
			fmt.Sprintf("Média diária antes: %s", brl(base)),
		},
		Recommendation: "Reserve parte do orçamento para os últimos dias do mês.",
	}, true
}

// midMonthSpike compares days 11-20 of the anchor month with its other days.
func midMonthSpike(txs []domain.Transaction, asOf time.Time, th Thresholds) (domain.ScarcityPattern, bool) {
	start, last := anchorMonth(asOf, midMonthEnd)
	midFrom := start.AddDate(0, 0, midMonthStart-1)
	midTo := start.AddDate(0, 0, midMonthEnd-1)

	month := filterRange(txs, start, last)
	mid := spendBetween(month, midFrom, midTo)
	rest := spendTotal(month) - mid
	restDays := daysBetween(start, last) + 1 - (midMonthEnd - midMonthStart + 1)
	if restDays <= 0 {
		return domain.ScarcityPattern{}, false
	}
	base := rest / float64(restDays)
	if base <= 0 {
		return domain.ScarcityPattern{}, false
	}
	daily := mid / float64(midMonthEnd-midMonthStart+1)
	ratio := daily / base
	if ratio < th.ScarcityMinRatio {
		return domain.ScarcityPattern{}, false
	}
	return domain.ScarcityPattern{
		ID:          string(domain.ScarcityMidMonthSpike) + ":" + monthKey(start),
		Type:        domain.ScarcityMidMonthSpike,
		Severity:    scarcitySeverity(ratio, th),
		Title:       "Pico de gastos no meio do mês",
		Description: fmt.Sprintf("Entre os dias %d e %d o gasto diário foi %s, %s os demais dias", midMonthStart, midMonthEnd, brl(daily), timesLabel(ratio)),
		Amount:      round2(mid),
		Baseline:    round2(base),
		Ratio:       round2(ratio),
		DayRange:    &domain.DayRange{Start: midMonthStart, End: midMonthEnd},
		Evidence: []string{
			fmt.Sprintf("Dias %d-%d: %s", midMonthStart, midMonthEnd, brl(mid)),
			fmt.Sprintf("Média diária nos outros dias: %s", brl(base)),
		},
		Recommendation: "Revise os compromissos que vencem no meio do mês.",
	}, true
}
