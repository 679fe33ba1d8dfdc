package analysis

import (
	"fmt"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// DescribeInput is the subset of a run that gets a sentence.
type DescribeInput struct {
	Forecast         domain.ForecastResult
	Anomalies        []domain.Anomaly
	Patterns         []domain.HiddenPattern
	Scarcity         []domain.ScarcityPattern
	Mode             domain.ModeState
	ModeTransitioned bool
}

// Describe renders one Portuguese sentence per finding, most urgent first:
// mode change, forecast, anomalies, patterns, scarcity.
func Describe(in DescribeInput) []domain.NaturalLanguageDetection {
	out := make([]domain.NaturalLanguageDetection, 0)

	if in.ModeTransitioned {
		sev := domain.SeverityMedium
		if in.Mode.CurrentMode == domain.ModeMochila {
			sev = domain.SeverityCritical
		}
		out = append(out, domain.NaturalLanguageDetection{
			Source:   "mode",
			Type:     string(in.Mode.CurrentMode),
			Severity: sev,
			Message:  fmt.Sprintf("Modo %s ativado: %s.", in.Mode.CurrentMode, in.Mode.Reason),
		})
	}

	if f := in.Forecast; f.WillGoNegative {
		sev := domain.SeverityHigh
		msg := fmt.Sprintf("Seu saldo deve ficar negativo em até %s neste mês.", brl(f.NegativeAmount))
		if f.NegativeDate != nil && f.DaysUntilNegative != nil {
			msg = fmt.Sprintf("Seu saldo deve ficar negativo em %s (daqui a %d dias), chegando a -%s.",
				fullDate(*f.NegativeDate), *f.DaysUntilNegative, brl(f.NegativeAmount))
			if *f.DaysUntilNegative <= 3 {
				sev = domain.SeverityCritical
			}
		}
		out = append(out, domain.NaturalLanguageDetection{Source: "forecast", Type: "NEGATIVE_BALANCE", Severity: sev, Message: msg})
	}

	for _, a := range in.Anomalies {
		out = append(out, domain.NaturalLanguageDetection{
			Source:   "anomaly",
			Type:     string(a.Type),
			Severity: a.Severity,
			Message:  fmt.Sprintf("%s em %s: %s.", a.Title, fullDate(a.Date), a.Description),
		})
	}
	for _, p := range in.Patterns {
		out = append(out, domain.NaturalLanguageDetection{
			Source:   "pattern",
			Type:     string(p.Type),
			Severity: p.Severity,
			Message:  fmt.Sprintf("Padrão detectado, %s: %s.", p.Title, p.Description),
		})
	}
	for _, s := range in.Scarcity {
		out = append(out, domain.NaturalLanguageDetection{
			Source:   "scarcity",
			Type:     string(s.Type),
			Severity: s.Severity,
			Message:  fmt.Sprintf("%s: %s.", s.Title, s.Description),
		})
	}
	return out
}
