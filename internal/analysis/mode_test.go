package analysis_test

import (
	"testing"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/analysis"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

var modeCfg = analysis.ModeConfig{Thresholds: th, DailyBudget: 100}

func intPtr(v int) *int { return &v }

func TestEvaluateMode_EscalatesOneLevelPerDay(t *testing.T) {
	state := analysis.NewModeState(day(2024, 6, 1))
	urgent := analysis.ModeSignals{At: day(2024, 6, 1), WillGoNegative: true, DaysUntilNegative: intPtr(1)}

	next, changed := analysis.EvaluateMode(state, urgent, modeCfg)
	if !changed || next.CurrentMode != domain.ModeIskra {
		t.Fatalf("expected normal to step to iskra, got %s (changed=%v)", next.CurrentMode, changed)
	}

	urgent.At = day(2024, 6, 2)
	next, changed = analysis.EvaluateMode(next, urgent, modeCfg)
	if !changed || next.CurrentMode != domain.ModeMochila {
		t.Fatalf("expected iskra to step to mochila, got %s", next.CurrentMode)
	}

	urgent.At = day(2024, 6, 3)
	next, changed = analysis.EvaluateMode(next, urgent, modeCfg)
	if changed || next.CurrentMode != domain.ModeMochila {
		t.Fatalf("expected mochila to hold, got %s (changed=%v)", next.CurrentMode, changed)
	}
}

func TestEvaluateMode_CooldownBeforeDeescalation(t *testing.T) {
	state := domain.ModeState{
		CurrentMode:     domain.ModeMochila,
		ActivatedAt:     day(2024, 6, 1),
		LastTriggeredAt: day(2024, 6, 1),
		Restrictions:    analysis.RestrictionsFor(domain.ModeMochila, modeCfg),
	}
	clear := func(d int) analysis.ModeSignals { return analysis.ModeSignals{At: day(2024, 6, d)} }

	next, changed := analysis.EvaluateMode(state, clear(2), modeCfg)
	if changed || next.CurrentMode != domain.ModeMochila {
		t.Fatalf("expected mochila within cooldown, got %s", next.CurrentMode)
	}

	next, changed = analysis.EvaluateMode(next, clear(8), modeCfg)
	if !changed || next.CurrentMode != domain.ModeIskra {
		t.Fatalf("expected step down to iskra after cooldown, got %s", next.CurrentMode)
	}

	next, changed = analysis.EvaluateMode(next, clear(10), modeCfg)
	if changed || next.CurrentMode != domain.ModeIskra {
		t.Fatalf("expected iskra to hold its own cooldown, got %s", next.CurrentMode)
	}

	next, changed = analysis.EvaluateMode(next, clear(15), modeCfg)
	if !changed || next.CurrentMode != domain.ModeNormal {
		t.Fatalf("expected normal after second cooldown, got %s", next.CurrentMode)
	}
	if len(next.Restrictions.BlockedCategories) != 0 || next.Restrictions.MaxDailySpending != nil {
		t.Errorf("expected normal mode without restrictions, got %+v", next.Restrictions)
	}
}

func TestEvaluateMode_RetriggerExtendsCooldown(t *testing.T) {
	state := domain.ModeState{
		CurrentMode:     domain.ModeIskra,
		ActivatedAt:     day(2024, 6, 1),
		LastTriggeredAt: day(2024, 6, 1),
	}
	warn := analysis.ModeSignals{At: day(2024, 6, 6), WillGoNegative: true, DaysUntilNegative: intPtr(8)}

	next, changed := analysis.EvaluateMode(state, warn, modeCfg)
	if changed || !next.LastTriggeredAt.Equal(day(2024, 6, 6)) {
		t.Fatalf("expected trigger time refreshed, got %v (changed=%v)", next.LastTriggeredAt, changed)
	}

	next, changed = analysis.EvaluateMode(next, analysis.ModeSignals{At: day(2024, 6, 10)}, modeCfg)
	if changed {
		t.Fatalf("expected no reversion 4 days after the last trigger, got %s", next.CurrentMode)
	}

	next, changed = analysis.EvaluateMode(next, analysis.ModeSignals{At: day(2024, 6, 13)}, modeCfg)
	if !changed || next.CurrentMode != domain.ModeNormal {
		t.Fatalf("expected normal 7 days after the last trigger, got %s", next.CurrentMode)
	}
}

func TestEvaluateMode_WarningsEscalateToIskra(t *testing.T) {
	next, changed := analysis.EvaluateMode(analysis.NewModeState(day(2024, 6, 1)), analysis.ModeSignals{At: day(2024, 6, 2), Warnings: 2}, modeCfg)
	if !changed || next.CurrentMode != domain.ModeIskra {
		t.Fatalf("expected iskra from accumulated warnings, got %s", next.CurrentMode)
	}
	if next.Restrictions.MaxDailySpending == nil || *next.Restrictions.MaxDailySpending != 80 {
		t.Errorf("expected iskra daily cap 80, got %v", next.Restrictions.MaxDailySpending)
	}
}

func TestRestrictionsFor_Mochila(t *testing.T) {
	r := analysis.RestrictionsFor(domain.ModeMochila, modeCfg)
	if !r.IsBlocked(domain.CategoryDelivery) {
		t.Error("expected Delivery blocked in mochila")
	}
	if r.MaxDailySpending == nil || *r.MaxDailySpending != 50 {
		t.Errorf("expected daily cap 50, got %v", r.MaxDailySpending)
	}

	r.BlockedCategories[0] = "mutated"
	r.MaxCategorySpending[domain.CategoryAlimentacao] = 1
	fresh := analysis.RestrictionsFor(domain.ModeMochila, modeCfg)
	if fresh.BlockedCategories[0] == "mutated" || fresh.MaxCategorySpending[domain.CategoryAlimentacao] == 1 {
		t.Error("expected each call to return an independent copy")
	}
}

func TestEvaluateMode_OneEvaluationPerDay(t *testing.T) {
	urgent := analysis.ModeSignals{At: day(2024, 6, 11), WillGoNegative: true, DaysUntilNegative: intPtr(0)}

	next, changed := analysis.EvaluateMode(analysis.NewModeState(day(2024, 6, 11)), urgent, modeCfg)
	if !changed || next.CurrentMode != domain.ModeIskra {
		t.Fatalf("expected iskra on the first run, got %s", next.CurrentMode)
	}
	if !next.LastEvaluatedAt.Equal(day(2024, 6, 11)) {
		t.Errorf("expected lastEvaluatedAt 2024-06-11, got %v", next.LastEvaluatedAt)
	}

	tests := []struct {
		name string
		at   int
	}{
		{"same day rerun", 11},
		{"older replay", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := urgent
			sig.At = day(2024, 6, tt.at)
			again, changed := analysis.EvaluateMode(next, sig, modeCfg)
			if changed || again.CurrentMode != domain.ModeIskra {
				t.Fatalf("expected iskra to hold, got %s (changed=%v)", again.CurrentMode, changed)
			}
			if !again.ActivatedAt.Equal(next.ActivatedAt) || !again.LastEvaluatedAt.Equal(next.LastEvaluatedAt) {
				t.Errorf("expected state untouched, got %+v", again)
			}
		})
	}

	urgent.At = day(2024, 6, 12)
	next, changed = analysis.EvaluateMode(next, urgent, modeCfg)
	if !changed || next.CurrentMode != domain.ModeMochila {
		t.Fatalf("expected mochila on the next day, got %s", next.CurrentMode)
	}
}
