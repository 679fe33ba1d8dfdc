package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Mode state machine
// ============================================================

// ModeSignals are the aggregate inputs of one evaluation.
type ModeSignals struct {
	At                time.Time
	WillGoNegative    bool
	DaysUntilNegative *int
	Violations        int
	Warnings          int
}

// ModeConfig carries the thresholds and the daily budget the restrictions
// are derived from.
type ModeConfig struct {
	Thresholds  Thresholds
	DailyBudget float64
}

// NewModeState is the initial state: normal, no restrictions.
func NewModeState(at time.Time) domain.ModeState {
	return domain.ModeState{
		CurrentMode:     domain.ModeNormal,
		Reason:          "Estado inicial",
		ActivatedAt:     at,
		LastTriggeredAt: at,
		Restrictions:    RestrictionsFor(domain.ModeNormal, ModeConfig{}),
	}
}

// RestrictionsFor returns a fresh copy of the policy of mode.
func RestrictionsFor(mode domain.Mode, cfg ModeConfig) domain.Restrictions {
	r := domain.Restrictions{
		BlockedCategories:   []domain.Category{},
		MaxCategorySpending: map[domain.Category]float64{},
	}
	th := cfg.Thresholds
	var factor float64
	var caps map[domain.Category]float64
	switch mode {
	case domain.ModeIskra:
		factor, caps = th.IskraDailyFactor, th.IskraCategoryCaps
	case domain.ModeMochila:
		factor, caps = th.MochilaDailyFactor, th.MochilaCategoryCaps
		r.BlockedCategories = append(r.BlockedCategories, th.MochilaBlocked...)
		sort.Slice(r.BlockedCategories, func(i, j int) bool { return r.BlockedCategories[i] < r.BlockedCategories[j] })
	default:
		return r
	}
	for c, v := range caps {
		r.MaxCategorySpending[c] = v
	}
	if cfg.DailyBudget > 0 && factor > 0 {
		v := round2(cfg.DailyBudget * factor)
		r.MaxDailySpending = &v
	}
	return r
}

// desiredLevel is the most severe mode the signals justify.
func desiredLevel(sig ModeSignals, th Thresholds) (domain.Mode, string) {
	days := -1
	if sig.WillGoNegative && sig.DaysUntilNegative != nil {
		days = *sig.DaysUntilNegative
	}
	switch {
	case days >= 0 && days <= th.MochilaHorizonDays:
		return domain.ModeMochila, fmt.Sprintf("Saldo negativo previsto em %d dia(s)", days)
	case sig.Violations > 0:
		return domain.ModeMochila, fmt.Sprintf("%d violação(ões) das restrições ativas", sig.Violations)
	case days >= 0 && days <= th.IskraHorizonDays:
		return domain.ModeIskra, fmt.Sprintf("Saldo negativo previsto em %d dias", days)
	case sig.Warnings >= th.WarningsForIskra:
		return domain.ModeIskra, fmt.Sprintf("%d alertas de disciplina acumulados", sig.Warnings)
	}
	return domain.ModeNormal, "Sem sinais de risco"
}

var modeByLevel = []domain.Mode{domain.ModeNormal, domain.ModeIskra, domain.ModeMochila}

// EvaluateMode is the only transition function of the machine. It never
// mutates state; it returns the next state and whether the mode changed.
//
// Escalation moves one level per run even when the signals justify two.
// De-escalation moves one level down once ModeCooldownDays have passed
// since the later of ActivatedAt and LastTriggeredAt.
//
// At most one evaluation applies per calendar day: signals dated on or
// before LastEvaluatedAt return the state unchanged, so re-running or
// replaying a day never moves the machine.
func EvaluateMode(state domain.ModeState, sig ModeSignals, cfg ModeConfig) (domain.ModeState, bool) {
	if !state.LastEvaluatedAt.IsZero() && daysBetween(state.LastEvaluatedAt, sig.At) <= 0 {
		return state, false
	}

	th := cfg.Thresholds
	next := state
	next.LastEvaluatedAt = dateOf(sig.At)
	next.Restrictions = RestrictionsFor(state.CurrentMode, cfg)

	desired, reason := desiredLevel(sig, th)
	cur := state.CurrentMode.Level()

	switch {
	case desired.Level() > cur:
		target := modeByLevel[cur+1]
		next.CurrentMode = target
		next.Reason = reason
		next.ActivatedAt = sig.At
		next.LastTriggeredAt = sig.At
		next.Restrictions = RestrictionsFor(target, cfg)
		return next, true

	case desired.Level() == cur:
		if cur > 0 {
			next.LastTriggeredAt = sig.At
		}
		return next, false
	}

	ref := state.ActivatedAt
	if state.LastTriggeredAt.After(ref) {
		ref = state.LastTriggeredAt
	}
	if daysBetween(ref, sig.At) < th.ModeCooldownDays {
		return next, false
	}
	target := modeByLevel[cur-1]
	next.CurrentMode = target
	next.Reason = fmt.Sprintf("%d dias sem gatilhos do modo %s", daysBetween(ref, sig.At), state.CurrentMode)
	next.ActivatedAt = sig.At
	if desired == target {
		next.LastTriggeredAt = sig.At
	}
	next.Restrictions = RestrictionsFor(target, cfg)
	return next, true
}
