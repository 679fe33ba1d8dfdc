package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Pattern detector
// ============================================================

const weeksPerMonth = 4.33

const maxEvidence = 5

// DetectPatterns scans every row up to asOf for behavioral signatures.
// Detectors are independent; each may fire zero or more times.
func DetectPatterns(txs []domain.Transaction, asOf time.Time, th Thresholds) []domain.HiddenPattern {
	asOf = dateOf(asOf)
	scope := upTo(txs, asOf)

	out := make([]domain.HiddenPattern, 0)
	if p, ok := nightPix(scope, th); ok {
		out = append(out, p)
	}
	if p, ok := emotionalAfterStress(scope, th); ok {
		out = append(out, p)
	}
	out = append(out, pressureWeeks(scope, asOf, th)...)
	if p, ok := tiredDelivery(scope, th); ok {
		out = append(out, p)
	}
	if p, ok := midMonthSpending(scope, asOf, th); ok {
		out = append(out, p)
	}
	return out
}

func nightPix(txs []domain.Transaction, th Thresholds) (domain.HiddenPattern, bool) {
	var hits []domain.Transaction
	total := 0.0
	for _, tx := range txs {
		if tx.Type == domain.TypeSaida && isTransfer(tx) && isLateNight(tx.Date, th) {
			hits = append(hits, tx)
			total += tx.AbsAmount()
		}
	}
	if len(hits) < th.NightPixMinOccurrences {
		return domain.HiddenPattern{}, false
	}
	evidence := make([]string, 0, maxEvidence)
	for _, tx := range hits {
		if len(evidence) == maxEvidence {
			break
		}
		evidence = append(evidence, fmt.Sprintf("%s %s: %s", shortDate(tx.Date), tx.Date.Format("15:04"), brl(tx.AbsAmount())))
	}
	sev := domain.SeverityMedium
	if len(hits) >= 2*th.NightPixMinOccurrences {
		sev = domain.SeverityHigh
	}
	return domain.HiddenPattern{
		ID:             string(domain.PatternNightPix),
		Type:           domain.PatternNightPix,
		Severity:       sev,
		Title:          "PIX de madrugada",
		Description:    fmt.Sprintf("%d transferências entre %dh e %dh somando %s", len(hits), th.NightStartHour, th.NightEndHour, brl(total)),
		Occurrences:    len(hits),
		TotalAmount:    round2(total),
		MonthlyAverage: round2(total / float64(monthSpan(hits))),
		Evidence:       evidence,
		Recommendation: "Ative um limite noturno para PIX e adie transferências para o dia seguinte.",
	}, true
}

// emotionalAfterStress counts episodes where a high-value outflow is
// followed by emotional purchases within StressWindowDays.
func emotionalAfterStress(txs []domain.Transaction, th Thresholds) (domain.HiddenPattern, bool) {
	used := make(map[int]bool)
	var bought []domain.Transaction
	episodes := 0
	total := 0.0
	evidence := make([]string, 0, maxEvidence)
	for i, stress := range txs {
		if stress.Type != domain.TypeSaida || stress.AbsAmount() < th.StressAmount {
			continue
		}
		found := 0
		for j := i + 1; j < len(txs); j++ {
			gap := daysBetween(stress.Date, txs[j].Date)
			if gap > th.StressWindowDays {
				break
			}
			if used[j] || !IsEmotional(txs[j], th) {
				continue
			}
			used[j] = true
			bought = append(bought, txs[j])
			found++
			total += txs[j].AbsAmount()
		}
		if found == 0 {
			continue
		}
		episodes++
		if len(evidence) < maxEvidence {
			evidence = append(evidence, fmt.Sprintf("%s: %s em %s seguido de %d compra(s) por impulso",
				shortDate(stress.Date), brl(stress.AbsAmount()), stress.Category, found))
		}
	}
	if episodes < th.StressMinEpisodes {
		return domain.HiddenPattern{}, false
	}
	sev := domain.SeverityMedium
	if episodes >= 2*th.StressMinEpisodes {
		sev = domain.SeverityHigh
	}
	return domain.HiddenPattern{
		ID:             string(domain.PatternEmotionalAfterStress),
		Type:           domain.PatternEmotionalAfterStress,
		Severity:       sev,
		Title:          "Compras emocionais após gasto alto",
		Description:    fmt.Sprintf("%d episódios de compras por impulso logo após um gasto elevado, somando %s", episodes, brl(total)),
		Occurrences:    episodes,
		TotalAmount:    round2(total),
		MonthlyAverage: round2(total / float64(monthSpan(bought))),
		Evidence:       evidence,
		Recommendation: "Depois de um gasto grande, espere 48h antes de compras não essenciais.",
	}, true
}

// pressureWeeks compares each week of a month with the average active week
// of that same month and reports the heaviest one when it exceeds
// PressureWeekRatio. Only the last PressureWeekMonths months up to asOf are
// scanned, and a month needs at least two weeks with spending.
func pressureWeeks(txs []domain.Transaction, asOf time.Time, th Thresholds) []domain.HiddenPattern {
	since := monthStart(asOf).AddDate(0, -(max(th.PressureWeekMonths, 1) - 1), 0)
	byMonth := make(map[string]map[string]float64)
	weekNum := make(map[string]int)
	for _, tx := range txs {
		if tx.Type != domain.TypeSaida || daysBetween(since, tx.Date) < 0 {
			continue
		}
		m := monthKey(tx.Date)
		if byMonth[m] == nil {
			byMonth[m] = make(map[string]float64)
		}
		k, n := isoWeekKey(tx.Date)
		byMonth[m][k] += tx.AbsAmount()
		weekNum[k] = n
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]domain.HiddenPattern, 0)
	seen := make(map[string]bool)
	for _, m := range months {
		weeks := byMonth[m]
		if len(weeks) < 2 {
			continue
		}
		sum, worst := 0.0, ""
		for k, v := range weeks {
			sum += v
			if worst == "" || v > weeks[worst] || (v == weeks[worst] && k < worst) {
				worst = k
			}
		}
		baseline := sum / float64(len(weeks))
		ratio := weeks[worst] / baseline
		if ratio <= th.PressureWeekRatio || seen[worst] {
			continue
		}
		seen[worst] = true
		sev := domain.SeverityMedium
		if ratio >= th.ScarcityHighRatio {
			sev = domain.SeverityHigh
		}
		out = append(out, domain.HiddenPattern{
			ID:             string(domain.PatternPressureWeek) + ":" + worst,
			Type:           domain.PatternPressureWeek,
			Severity:       sev,
			Title:          fmt.Sprintf("Semana de pressão (semana %d)", weekNum[worst]),
			Description:    fmt.Sprintf("Gastos de %s na semana, %s a média semanal do mês", brl(weeks[worst]), timesLabel(ratio)),
			Occurrences:    1,
			TotalAmount:    round2(weeks[worst]),
			MonthlyAverage: round2(weeks[worst]),
			Evidence: []string{
				fmt.Sprintf("Semana %s: %s", worst, brl(weeks[worst])),
				fmt.Sprintf("Média semanal em %s: %s", m, brl(baseline)),
			},
			Recommendation: "Planeje as despesas grandes para semanas diferentes do mês.",
		})
	}
	return out
}

// tiredDelivery fires when delivery orders concentrate on one weekday or in
// the evening.
func tiredDelivery(txs []domain.Transaction, th Thresholds) (domain.HiddenPattern, bool) {
	byDay := make(map[time.Weekday]int)
	var orders []domain.Transaction
	count, withClock, evening := 0, 0, 0
	total := 0.0
	for _, tx := range txs {
		if tx.Type != domain.TypeSaida || tx.Category != domain.CategoryDelivery {
			continue
		}
		count++
		total += tx.AbsAmount()
		orders = append(orders, tx)
		byDay[tx.Date.Weekday()]++
		if hasClock(tx.Date) {
			withClock++
			if tx.Date.Hour() >= th.EveningStartHour {
				evening++
			}
		}
	}
	if count < th.DeliveryMinOccurrences {
		return domain.HiddenPattern{}, false
	}

	topDay, topCount := time.Sunday, 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if byDay[d] > topCount {
			topDay, topCount = d, byDay[d]
		}
	}
	dayShare := float64(topCount) / float64(count)
	eveningShare := 0.0
	if withClock > 0 {
		eveningShare = float64(evening) / float64(withClock)
	}
	if dayShare < th.DeliveryWeekdayShare && eveningShare < th.DeliveryEveningShare {
		return domain.HiddenPattern{}, false
	}

	evidence := []string{fmt.Sprintf("%d pedidos somando %s", count, brl(total))}
	if dayShare >= th.DeliveryWeekdayShare {
		evidence = append(evidence, fmt.Sprintf("%s dos pedidos às %ss", pct(dayShare), weekdayNames[topDay]))
	}
	if eveningShare >= th.DeliveryEveningShare {
		evidence = append(evidence, fmt.Sprintf("%s dos pedidos depois das %dh", pct(eveningShare), th.EveningStartHour))
	}
	sev := domain.SeverityLow
	if count >= 2*th.DeliveryMinOccurrences {
		sev = domain.SeverityMedium
	}
	return domain.HiddenPattern{
		ID:             string(domain.PatternTiredDelivery),
		Type:           domain.PatternTiredDelivery,
		Severity:       sev,
		Title:          "Delivery por cansaço",
		Description:    fmt.Sprintf("Pedidos de delivery concentrados (%d no período)", count),
		Occurrences:    count,
		TotalAmount:    round2(total),
		MonthlyAverage: round2(total / float64(monthSpan(orders))),
		Evidence:       evidence,
		Recommendation: "Deixe refeições prontas para os dias de maior cansaço.",
	}, true
}

// midMonthSpending measures the share of spend on days 11-20, using only
// months whose middle third has fully elapsed by asOf.
func midMonthSpending(txs []domain.Transaction, asOf time.Time, th Thresholds) (domain.HiddenPattern, bool) {
	total, mid := 0.0, 0.0
	months := make(map[string]bool)
	for _, tx := range txs {
		if tx.Type != domain.TypeSaida {
			continue
		}
		cutoff := monthStart(tx.Date).AddDate(0, 0, 20)
		if daysBetween(cutoff, asOf) < 0 {
			continue
		}
		total += tx.AbsAmount()
		months[monthKey(tx.Date)] = true
		if d := tx.Date.Day(); d >= 11 && d <= 20 {
			mid += tx.AbsAmount()
		}
	}
	if total <= 0 {
		return domain.HiddenPattern{}, false
	}
	share := mid / total
	if share < th.MidMonthShare {
		return domain.HiddenPattern{}, false
	}
	sev := domain.SeverityMedium
	if share >= th.MidMonthShare+0.15 {
		sev = domain.SeverityHigh
	}
	return domain.HiddenPattern{
		ID:          string(domain.PatternMidMonthSpending),
		Type:        domain.PatternMidMonthSpending,
		Severity:    sev,
		Title:       "Gastos concentrados no meio do mês",
		Description: fmt.Sprintf("%s dos gastos acontecem entre os dias 11 e 20", pct(share)),
		Occurrences:    1,
		TotalAmount:    round2(mid),
		MonthlyAverage: round2(mid / float64(len(months))),
		Evidence: []string{
			fmt.Sprintf("Dias 11-20: %s", brl(mid)),
			fmt.Sprintf("Total analisado: %s", brl(total)),
		},
		Recommendation: "Distribua as compras do meio do mês ao longo das semanas.",
	}, true
}
