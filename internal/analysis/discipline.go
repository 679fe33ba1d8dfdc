package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Discipline engine
// ============================================================

const daysPerMonth = 30.44

// normalWarningDays is how far back the normal mode looks for days over
// the daily budget.
const normalWarningDays = 7

// EvaluateDiscipline checks the active restrictions against the outflows
// of the current period, [max(monthStart, activatedAt), asOf].
//
// Violations are ordered: blocked categories, daily limits by date, then
// category caps. When any exist their excess is treated as diverted savings
// and the goal projection is re-run to price the delay.
func EvaluateDiscipline(state domain.ModeState, txs []domain.Transaction, goal GoalInput, asOf time.Time, cfg ModeConfig) domain.DisciplineStatus {
	th := cfg.Thresholds
	asOf = dateOf(asOf)
	from := monthStart(asOf)
	if state.CurrentMode != domain.ModeNormal && daysBetween(from, state.ActivatedAt) > 0 {
		from = dateOf(state.ActivatedAt)
	}
	period := make([]domain.Transaction, 0)
	for _, tx := range filterRange(txs, from, asOf) {
		if tx.Type == domain.TypeSaida {
			period = append(period, tx)
		}
	}

	st := domain.DisciplineStatus{
		Mode:       state.CurrentMode,
		Violations: []domain.Violation{},
		Warnings:   []string{},
	}

	if state.CurrentMode == domain.ModeNormal {
		st.Warnings = budgetWarnings(period, asOf, cfg.DailyBudget)
		st.Impact = domain.DisciplineImpact{Message: "Sem restrições ativas."}
		return st
	}

	r := state.Restrictions
	excess := 0.0

	byCat := make(map[domain.Category]float64)
	for _, tx := range period {
		byCat[tx.Category] += tx.AbsAmount()
	}

	blocked := append([]domain.Category(nil), r.BlockedCategories...)
	sort.Slice(blocked, func(i, j int) bool { return blocked[i] < blocked[j] })
	for _, c := range blocked {
		if spent := byCat[c]; spent > 0 {
			st.Violations = append(st.Violations, domain.Violation{
				Category: c,
				Message:  fmt.Sprintf("%s gastos em %s, categoria bloqueada no modo %s", brl(spent), c, state.CurrentMode),
				Amount:   round2(spent),
			})
			excess += spent
		}
	}

	if r.MaxDailySpending != nil {
		limit := *r.MaxDailySpending
		days := dailySpend(period)
		keys := make([]string, 0, len(days))
		for k := range days {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			spent := days[k]
			switch {
			case spent > limit:
				over := spent - limit
				st.Violations = append(st.Violations, domain.Violation{
					Message: fmt.Sprintf("Limite diário de %s excedido em %s no dia %s", brl(limit), brl(over), k),
					Amount:  round2(over),
				})
				excess += over
			case k == dayKey(asOf) && spent >= limit*th.WarningRatio:
				st.Warnings = append(st.Warnings, fmt.Sprintf("Hoje você já usou %s do limite diário de %s", pct(spent/limit), brl(limit)))
			}
		}
	}

	caps := make([]domain.Category, 0, len(r.MaxCategorySpending))
	for c := range r.MaxCategorySpending {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	for _, c := range caps {
		limit := r.MaxCategorySpending[c]
		spent := byCat[c]
		switch {
		case spent > limit:
			over := spent - limit
			st.Violations = append(st.Violations, domain.Violation{
				Category: c,
				Message:  fmt.Sprintf("%s ultrapassou o teto de %s em %s", c, brl(limit), brl(over)),
				Amount:   round2(over),
			})
			excess += over
		case limit > 0 && spent >= limit*th.WarningRatio:
			st.Warnings = append(st.Warnings, fmt.Sprintf("%s em %s do teto de %s", c, pct(spent/limit), brl(limit)))
		}
	}

	st.IsInAusterity = len(st.Violations) == 0
	st.Impact = disciplineImpact(excess, goal, th)
	return st
}

// budgetWarnings lists the recent days whose spend went over the daily
// budget. They are the soft signal that escalates normal to iskra.
func budgetWarnings(period []domain.Transaction, asOf time.Time, dailyBudget float64) []string {
	warnings := []string{}
	if dailyBudget <= 0 {
		return warnings
	}
	from := asOf.AddDate(0, 0, -(normalWarningDays - 1))
	days := dailySpend(filterRange(period, from, asOf))
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if days[k] > dailyBudget {
			warnings = append(warnings, fmt.Sprintf("Gasto de %s em %s acima do orçamento diário de %s", brl(days[k]), k, brl(dailyBudget)))
		}
	}
	return warnings
}

// disciplineImpact compares the goal completion date with and without the
// excess spend.
func disciplineImpact(excess float64, goal GoalInput, th Thresholds) domain.DisciplineImpact {
	if excess <= 0 {
		return domain.DisciplineImpact{Message: "Nenhum impacto na meta RAV4."}
	}
	actual := ComputeGoalProgress(goal, th)
	diverted := goal
	diverted.CurrentProgress += excess
	ideal := ComputeGoalProgress(diverted, th)

	impact := domain.DisciplineImpact{AdditionalCost: round2(excess)}
	if actual.ProjectedCompletionDate != nil && ideal.ProjectedCompletionDate != nil {
		days := daysBetween(*ideal.ProjectedCompletionDate, *actual.ProjectedCompletionDate)
		if days > 0 {
			impact.ProjectedDelay = round1(float64(days) / daysPerMonth)
		}
		impact.Message = fmt.Sprintf("As violações custaram %s e atrasam a meta RAV4 em %s meses.", brl(excess), decimalLabel(impact.ProjectedDelay))
		return impact
	}
	impact.Message = fmt.Sprintf("As violações custaram %s; sem projeção de conclusão no ritmo atual.", brl(excess))
	return impact
}
