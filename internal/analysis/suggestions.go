package analysis

import (
	"fmt"
	"sort"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Suggestion engine
// ============================================================

// SuggestionInput gathers the detector outputs a run produced.
type SuggestionInput struct {
	Forecast          domain.ForecastResult
	CategoryForecasts []domain.CategoryForecast
	Anomalies         []domain.Anomaly
	Patterns          []domain.HiddenPattern
	Scarcity          []domain.ScarcityPattern
	PIXGroups         []domain.PIXGroup
	Goal              domain.GoalProgress
}

// Suggest synthesizes recommendations and ranks them by priority, then by
// monthly savings, then by id.
func Suggest(in SuggestionInput, th Thresholds) []domain.AISuggestion {
	out := make([]domain.AISuggestion, 0)
	add := func(s domain.AISuggestion, monthly float64, impactMsg string) {
		if monthly <= 0 {
			return
		}
		s.Impact = domain.SuggestionImpact{
			MonthlySavings: round2(monthly),
			AnnualSavings:  round2(monthly * 12),
			Message:        impactMsg,
		}
		s.Priority = priorityFor(monthly, th)
		out = append(out, s)
	}

	for _, g := range in.PIXGroups {
		var monthly float64
		switch g.Frequency {
		case domain.FrequencyMonthly:
			monthly = g.AverageAmount
		case domain.FrequencyWeekly:
			monthly = g.AverageAmount * weeksPerMonth
		default:
			continue
		}
		add(domain.AISuggestion{
			ID:          "cancel_subscription:pix:" + g.Key,
			Type:        domain.SuggestionCancelSubscription,
			Title:       fmt.Sprintf("Revise o PIX recorrente para %s", g.Recipient),
			Description: fmt.Sprintf("%s. %d transferências somando %s.", g.Pattern, g.Count, brl(g.TotalAmount)),
			Category:    domain.CategoryPIX,
		}, monthly, fmt.Sprintf("Cancelar libera %s por mês", brl(monthly)))
	}

	for _, f := range in.CategoryForecasts {
		if f.Category == domain.CategoryAssinaturas && f.ProjectedMonthly > 0 {
			monthly := f.ProjectedMonthly * th.SubscriptionCutShare
			add(domain.AISuggestion{
				ID:          "cancel_subscription:" + string(f.Category),
				Type:        domain.SuggestionCancelSubscription,
				Title:       "Cancele assinaturas pouco usadas",
				Description: fmt.Sprintf("Assinaturas projetadas em %s neste mês.", brl(f.ProjectedMonthly)),
				Category:    f.Category,
			}, monthly, fmt.Sprintf("Cortar metade das assinaturas economiza %s por mês", brl(monthly)))
		}
		if f.Trend == domain.TrendIncreasing && f.HistoricalMonthlyAverage > 0 && f.ProjectedMonthly > f.HistoricalMonthlyAverage {
			monthly := f.ProjectedMonthly - f.HistoricalMonthlyAverage
			add(domain.AISuggestion{
				ID:          "reduce_category:" + string(f.Category),
				Type:        domain.SuggestionReduceCategory,
				Title:       fmt.Sprintf("Reduza gastos com %s", f.Category),
				Description: fmt.Sprintf("Projeção de %s contra média histórica de %s, com tendência de alta.", brl(f.ProjectedMonthly), brl(f.HistoricalMonthlyAverage)),
				Category:    f.Category,
			}, monthly, fmt.Sprintf("Voltar à média economiza %s por mês", brl(monthly)))
		}
	}

	for _, p := range in.Patterns {
		monthly := p.MonthlyAverage * th.OptimizeShare
		add(domain.AISuggestion{
			ID:          "optimize_spending:" + p.ID,
			Type:        domain.SuggestionOptimizeSpending,
			Title:       p.Title,
			Description: p.Recommendation,
		}, monthly, fmt.Sprintf("Reduzir %s desse padrão economiza %s", pct(th.OptimizeShare), brl(monthly)))
	}

	for _, s := range in.Scarcity {
		if s.Ratio <= 1 {
			continue
		}
		monthly := s.Amount * (1 - 1/s.Ratio)
		add(domain.AISuggestion{
			ID:          "optimize_spending:" + s.ID,
			Type:        domain.SuggestionOptimizeSpending,
			Title:       s.Title,
			Description: s.Recommendation,
		}, monthly, fmt.Sprintf("Gastar no ritmo habitual nesse período economiza %s", brl(monthly)))
	}

	fees, debtFees := 0.0, 0.0
	for _, a := range in.Anomalies {
		if a.Type != domain.AnomalyUnexpectedFee {
			continue
		}
		fees += abs(a.Amount)
		if _, ok := containsAny(fold(a.Description), []string{"juros", "multa"}); ok {
			debtFees += abs(a.Amount)
		}
	}
	add(domain.AISuggestion{
		ID:          "optimize_spending:fees",
		Type:        domain.SuggestionOptimizeSpending,
		Title:       "Elimine tarifas bancárias",
		Description: fmt.Sprintf("Tarifas inesperadas somam %s no período.", brl(fees)),
		Category:    domain.CategoryTarifas,
	}, fees, fmt.Sprintf("Evitar as tarifas economiza %s por mês", brl(fees)))

	if in.Forecast.WillGoNegative {
		monthly := in.Forecast.NegativeAmount * th.OverdraftMonthlyRate
		add(domain.AISuggestion{
			ID:          "debt_payoff:overdraft",
			Type:        domain.SuggestionDebtPayoff,
			Title:       "Evite o cheque especial",
			Description: fmt.Sprintf("A projeção indica saldo negativo de até %s neste mês.", brl(in.Forecast.NegativeAmount)),
		}, monthly, fmt.Sprintf("Evitar juros do especial poupa cerca de %s", brl(monthly)))
	}
	add(domain.AISuggestion{
		ID:          "debt_payoff:fees",
		Type:        domain.SuggestionDebtPayoff,
		Title:       "Quite débitos com juros e multa",
		Description: fmt.Sprintf("Juros e multas cobrados somam %s.", brl(debtFees)),
		Category:    domain.CategoryTarifas,
	}, debtFees, fmt.Sprintf("Quitar os débitos elimina %s em encargos por mês", brl(debtFees)))

	if !in.Forecast.WillGoNegative && in.Forecast.ProjectedBalance > 0 &&
		(in.Goal.Status == domain.GoalBehind || in.Goal.Status == domain.GoalCritical) {
		monthly := in.Forecast.ProjectedBalance
		if in.Goal.Remaining > 0 && in.Goal.Remaining < monthly {
			monthly = in.Goal.Remaining
		}
		add(domain.AISuggestion{
			ID:          "savings_opportunity:surplus",
			Type:        domain.SuggestionSavingsOpportunity,
			Title:       "Direcione a sobra do mês para a meta RAV4",
			Description: fmt.Sprintf("A projeção indica sobra de %s no fim do mês e a meta está %s.", brl(in.Forecast.ProjectedBalance), goalStatusLabel(in.Goal.Status)),
		}, monthly, fmt.Sprintf("Aplicar %s por mês acelera a meta", brl(monthly)))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if pi, pj := out[i].Priority.Rank(), out[j].Priority.Rank(); pi != pj {
			return pi > pj
		}
		if out[i].Impact.MonthlySavings != out[j].Impact.MonthlySavings {
			return out[i].Impact.MonthlySavings > out[j].Impact.MonthlySavings
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func priorityFor(monthly float64, th Thresholds) domain.Priority {
	switch {
	case monthly >= th.HighPrioritySavings:
		return domain.PriorityHigh
	case monthly >= th.MediumPrioritySavings:
		return domain.PriorityMedium
	}
	return domain.PriorityLow
}

func goalStatusLabel(s domain.GoalStatus) string {
	switch s {
	case domain.GoalAhead:
		return "adiantada"
	case domain.GoalOnTrack:
		return "no ritmo"
	case domain.GoalBehind:
		return "atrasada"
	}
	return "em situação crítica"
}
