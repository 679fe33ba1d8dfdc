package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// PIX grouping
// ============================================================

// GroupPIX clusters outgoing transfers by normalized recipient and classifies
// the cadence from the median gap between consecutive transfers. Groups with
// fewer than PixMinOccurrences rows are dropped.
func GroupPIX(txs []domain.Transaction, th Thresholds) []domain.PIXGroup {
	groups := make(map[string][]domain.Transaction)
	order := make([]string, 0)
	for _, tx := range txs {
		if tx.Type != domain.TypeSaida || !isTransfer(tx) {
			continue
		}
		key := recipientKey(tx.Detalhes, tx.Description)
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], tx)
	}

	out := make([]domain.PIXGroup, 0)
	for _, key := range order {
		rows := groups[key]
		if len(rows) < th.PixMinOccurrences {
			continue
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

		total := 0.0
		ids := make([]string, 0, len(rows))
		for _, r := range rows {
			total += r.AbsAmount()
			ids = append(ids, r.ID)
		}
		gaps := make([]float64, 0, len(rows)-1)
		for i := 1; i < len(rows); i++ {
			gaps = append(gaps, float64(daysBetween(rows[i-1].Date, rows[i].Date)))
		}
		freq, pattern := cadenceOf(median(gaps), rows[len(rows)-1].Date.Day())

		out = append(out, domain.PIXGroup{
			Recipient:        displayRecipient(rows[0], key),
			Key:              key,
			TotalAmount:      round2(total),
			Count:            len(rows),
			AverageAmount:    round2(total / float64(len(rows))),
			Frequency:        freq,
			Pattern:          pattern,
			FirstTransaction: rows[0].Date,
			LastTransaction:  rows[len(rows)-1].Date,
			TransactionIDs:   ids,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalAmount != out[j].TotalAmount {
			return out[i].TotalAmount > out[j].TotalAmount
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func cadenceOf(medianGap float64, lastDay int) (domain.Frequency, string) {
	switch {
	case medianGap <= 1.5:
		return domain.FrequencyDaily, "Transferências praticamente diárias"
	case medianGap >= 6 && medianGap <= 8:
		return domain.FrequencyWeekly, "Toda semana (a cada ~7 dias)"
	case medianGap >= 25 && medianGap <= 35:
		return domain.FrequencyMonthly, fmt.Sprintf("Todo mês, por volta do dia %d", lastDay)
	}
	return domain.FrequencyIrregular, fmt.Sprintf("Sem cadência fixa (intervalo mediano de %.0f dias)", math.Round(medianGap))
}

func displayRecipient(tx domain.Transaction, key string) string {
	if d := strings.TrimSpace(tx.Detalhes); d != "" {
		return d
	}
	return strings.ToUpper(key)
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
