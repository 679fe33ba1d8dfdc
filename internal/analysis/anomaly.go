package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Anomaly detector
// ============================================================

var feeKeywords = []string{
	"tarifa", "anuidade", "iof", "juros", "multa", "encargo", "taxa",
	"cesta de servicos", "manutencao de conta", "saque",
}

// DetectAnomalies flags transactions inside the look-back window ending at
// asOf, each tested against the rows dated before it. detectedAt is runAt.
// An empty result means nothing was detected.
func DetectAnomalies(txs []domain.Transaction, asOf, runAt time.Time, th Thresholds) []domain.Anomaly {
	asOf = dateOf(asOf)
	from := asOf.AddDate(0, 0, -(th.AnomalyLookbackDays - 1))

	out := make([]domain.Anomaly, 0)
	for i, tx := range txs {
		if !inRange(tx.Date, from, asOf) {
			continue
		}
		prior := before(txs, dateOf(tx.Date))
		id := txRef(tx, i)

		if a, ok := largePurchase(tx, prior, th); ok {
			out = append(out, finishAnomaly(a, tx, id, runAt))
		}
		if a, ok := unusualPix(tx, prior, th); ok {
			out = append(out, finishAnomaly(a, tx, id, runAt))
		}
		if a, ok := duplicateOf(tx, txs[:i], th); ok {
			out = append(out, finishAnomaly(a, tx, id, runAt))
		}
		if a, ok := unexpectedFee(tx, prior, th); ok {
			out = append(out, finishAnomaly(a, tx, id, runAt))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank(); ri != rj {
			return ri > rj
		}
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// txRef is a stable reference to a row: its id, or its position when the
// source did not assign one.
func txRef(tx domain.Transaction, i int) string {
	if tx.ID != "" {
		return tx.ID
	}
	return fmt.Sprintf("row-%d", i)
}

func finishAnomaly(a domain.Anomaly, tx domain.Transaction, ref string, runAt time.Time) domain.Anomaly {
	a.ID = string(a.Type) + ":" + ref
	a.TransactionID = tx.ID
	a.Amount = tx.Amount
	a.Date = tx.Date
	a.DetectedAt = runAt
	return a
}

func largePurchase(tx domain.Transaction, prior []domain.Transaction, th Thresholds) (domain.Anomaly, bool) {
	if tx.Type != domain.TypeSaida {
		return domain.Anomaly{}, false
	}
	values := make([]float64, 0)
	for _, p := range prior {
		if p.Type == domain.TypeSaida && p.Category == tx.Category {
			values = append(values, p.AbsAmount())
		}
	}
	if len(values) < th.LargePurchaseMinHistory {
		return domain.Anomaly{}, false
	}
	mean, std := meanStd(values)
	if mean <= 0 {
		return domain.Anomaly{}, false
	}
	amt := tx.AbsAmount()
	ratio := amt / mean
	z := 0.0
	if std > 0 {
		z = (amt - mean) / std
	}
	if ratio <= th.LargePurchaseMultiplier && !(std > 0 && z > th.LargePurchaseZScore) {
		return domain.Anomaly{}, false
	}

	sev := domain.SeverityMedium
	switch {
	case ratio >= 10:
		sev = domain.SeverityCritical
	case ratio >= 5:
		sev = domain.SeverityHigh
	}
	evidence := []string{
		fmt.Sprintf("Valor: %s", brl(amt)),
		fmt.Sprintf("Média histórica em %s: %s", tx.Category, brl(mean)),
		fmt.Sprintf("%s acima da média (%d transações anteriores)", timesLabel(ratio), len(values)),
	}
	if std > 0 {
		evidence = append(evidence, fmt.Sprintf("Desvio padrão: %s", brl(std)))
	}
	return domain.Anomaly{
		Type:           domain.AnomalyLargePurchase,
		Severity:       sev,
		Title:          fmt.Sprintf("Compra atípica em %s", tx.Category),
		Description:    fmt.Sprintf("%s de %s é %s a média da categoria", tx.Description, brl(amt), timesLabel(ratio)),
		Evidence:       evidence,
		Recommendation: "Confirme se a compra foi planejada e ajuste o orçamento da categoria.",
	}, true
}

func unusualPix(tx domain.Transaction, prior []domain.Transaction, th Thresholds) (domain.Anomaly, bool) {
	if tx.Type != domain.TypeSaida || !isTransfer(tx) || tx.AbsAmount() < th.PixMinAmount {
		return domain.Anomaly{}, false
	}
	key := recipientKey(tx.Detalhes, tx.Description)
	seen := make(map[string]bool)
	transfers := 0
	for _, p := range prior {
		if p.Type == domain.TypeSaida && isTransfer(p) {
			transfers++
			seen[recipientKey(p.Detalhes, p.Description)] = true
		}
	}
	newRecipient := transfers > 0 && key != "" && !seen[key]
	oddHour := hasClock(tx.Date) && tx.Date.Hour() < th.UnusualHourEnd
	if !newRecipient && !oddHour {
		return domain.Anomaly{}, false
	}

	evidence := []string{fmt.Sprintf("Valor: %s", brl(tx.AbsAmount()))}
	if newRecipient {
		evidence = append(evidence, fmt.Sprintf("Destinatário sem histórico: %s", key))
	}
	if oddHour {
		evidence = append(evidence, fmt.Sprintf("Horário incomum: %s", tx.Date.Format("15:04")))
	}
	sev := domain.SeverityMedium
	if oddHour || tx.AbsAmount() >= th.PixHighAmount {
		sev = domain.SeverityHigh
	}
	return domain.Anomaly{
		Type:           domain.AnomalyUnusualPix,
		Severity:       sev,
		Title:          "PIX incomum",
		Description:    fmt.Sprintf("Transferência de %s fora do padrão habitual", brl(tx.AbsAmount())),
		Evidence:       evidence,
		Recommendation: "Verifique se reconhece o destinatário e o horário da transferência.",
	}, true
}

// duplicateOf looks for an earlier row with the same cents, a date at most
// DuplicateMaxDays apart and a similar description. The later row is flagged.
func duplicateOf(tx domain.Transaction, earlier []domain.Transaction, th Thresholds) (domain.Anomaly, bool) {
	cents := int64(math.Round(tx.Amount * 100))
	for j := len(earlier) - 1; j >= 0; j-- {
		e := earlier[j]
		if e.Type != tx.Type || int64(math.Round(e.Amount*100)) != cents {
			continue
		}
		gap := daysBetween(e.Date, tx.Date)
		if gap < 0 || gap > th.DuplicateMaxDays {
			continue
		}
		if !similarDescriptions(e.Description, tx.Description, th.DuplicateSimilarity) {
			continue
		}
		sev := domain.SeverityMedium
		if tx.AbsAmount() >= th.StressAmount {
			sev = domain.SeverityHigh
		}
		return domain.Anomaly{
			Type:        domain.AnomalyDuplicate,
			Severity:    sev,
			Title:       "Possível lançamento duplicado",
			Description: fmt.Sprintf("%s de %s aparece duas vezes", tx.Description, brl(tx.AbsAmount())),
			Evidence: []string{
				fmt.Sprintf("Lançamento original em %s: %s", fullDate(e.Date), e.Description),
				fmt.Sprintf("Repetição em %s: %s", fullDate(tx.Date), tx.Description),
				fmt.Sprintf("Mesmo valor: %s", brl(tx.AbsAmount())),
			},
			Recommendation: "Confira o extrato e solicite o estorno se a cobrança foi feita em dobro.",
		}, true
	}
	return domain.Anomaly{}, false
}

// unexpectedFee flags a small fee whose vocabulary never appeared in a prior
// month. Without prior months there is no baseline and nothing is flagged.
func unexpectedFee(tx domain.Transaction, prior []domain.Transaction, th Thresholds) (domain.Anomaly, bool) {
	if tx.Type != domain.TypeSaida || tx.AbsAmount() > th.FeeMaxAmount {
		return domain.Anomaly{}, false
	}
	kw, ok := containsAny(classificationText(tx), feeKeywords)
	if !ok {
		return domain.Anomaly{}, false
	}

	start := monthStart(tx.Date)
	hasHistory := false
	for _, p := range prior {
		if daysBetween(p.Date, start) <= 0 {
			continue
		}
		hasHistory = true
		if p.Type != domain.TypeSaida {
			continue
		}
		if k, ok := containsAny(classificationText(p), feeKeywords); ok && k == kw {
			return domain.Anomaly{}, false
		}
	}
	if !hasHistory {
		return domain.Anomaly{}, false
	}

	sev := domain.SeverityLow
	if kw == "juros" || kw == "multa" {
		sev = domain.SeverityMedium
	}
	return domain.Anomaly{
		Type:        domain.AnomalyUnexpectedFee,
		Severity:    sev,
		Title:       "Tarifa inesperada",
		Description: fmt.Sprintf("Cobrança de %s (%s) sem ocorrência nos meses anteriores", brl(tx.AbsAmount()), tx.Description),
		Evidence: []string{
			fmt.Sprintf("Valor: %s", brl(tx.AbsAmount())),
			fmt.Sprintf("Termo identificado: %s", kw),
			"Nenhuma cobrança semelhante nos meses anteriores",
		},
		Recommendation: "Conteste a tarifa com o banco ou revise o pacote de serviços.",
	}, true
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		std += (v - mean) * (v - mean)
	}
	std = math.Sqrt(std / float64(len(values)))
	return mean, std
}
