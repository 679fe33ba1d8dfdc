package analysis_test

import (
	"testing"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/analysis"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

func TestComputeGoalProgress_DeadlineReached(t *testing.T) {
	in := analysis.GoalInput{
		CurrentProgress: 0,
		Target:          30000,
		TargetDate:      day(2024, 6, 1),
		AsOf:            day(2024, 6, 1),
	}
	gp := analysis.ComputeGoalProgress(in, th)

	if gp.Percentage != 0 {
		t.Errorf("expected 0%%, got %v", gp.Percentage)
	}
	if gp.Status != domain.GoalCritical {
		t.Errorf("expected critical, got %s", gp.Status)
	}
	if gp.ProjectedCompletionDate != nil {
		t.Errorf("expected no completion date, got %v", gp.ProjectedCompletionDate)
	}
	if gp.DaysRemaining != 0 {
		t.Errorf("expected 0 days remaining, got %d", gp.DaysRemaining)
	}
}

func TestComputeGoalProgress_Status(t *testing.T) {
	base := analysis.GoalInput{
		Target:     30000,
		StartDate:  day(2023, 1, 1),
		TargetDate: day(2024, 12, 31),
		AsOf:       day(2024, 1, 1),
	}
	tests := []struct {
		name     string
		progress float64
		rate     float64
		want     domain.GoalStatus
		hasDate  bool
	}{
		{"ahead with large slack", 20000, 100, domain.GoalAhead, true},
		{"on track", 10000, 55, domain.GoalOnTrack, true},
		{"behind", 10000, 48, domain.GoalBehind, true},
		{"behind without savings", 15000, 0, domain.GoalBehind, false},
		{"critical when progress lags elapsed time", 3000, 500, domain.GoalCritical, true},
		{"reached", 40000, 0, domain.GoalAhead, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			in.CurrentProgress = tt.progress
			in.DailyRate = tt.rate
			gp := analysis.ComputeGoalProgress(in, th)
			if gp.Status != tt.want {
				t.Errorf("expected %s, got %s (%s)", tt.want, gp.Status, gp.Message)
			}
			if (gp.ProjectedCompletionDate != nil) != tt.hasDate {
				t.Errorf("expected completion date present=%v, got %v", tt.hasDate, gp.ProjectedCompletionDate)
			}
			if gp.Percentage < 0 || gp.Percentage > 100 {
				t.Errorf("expected percentage in [0,100], got %v", gp.Percentage)
			}
		})
	}
}

func TestComputeGoalProgress_Unconfigured(t *testing.T) {
	tests := []struct {
		name string
		in   analysis.GoalInput
	}{
		{"no target", analysis.GoalInput{CurrentProgress: 500, TargetDate: day(2024, 12, 31), AsOf: day(2024, 6, 1)}},
		{"no target date", analysis.GoalInput{CurrentProgress: 500, Target: 10000, AsOf: day(2024, 6, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gp := analysis.ComputeGoalProgress(tt.in, th)
			if gp.Status != domain.GoalOnTrack {
				t.Errorf("expected on_track for missing goal, got %s", gp.Status)
			}
			if gp.DaysRemaining != 0 || gp.ProjectedCompletionDate != nil {
				t.Errorf("expected no schedule, got %+v", gp)
			}
		})
	}
}

func TestGoalInputFor(t *testing.T) {
	profile := domain.Profile{
		InitialBalance: 1000,
		Rav4Target:     30000,
		Rav4StartDate:  day(2024, 1, 1),
		Rav4TargetDate: day(2025, 1, 1),
	}
	txs := []domain.Transaction{
		entrada("1", day(2024, 1, 11), 500, "SALARIO", domain.CategorySalario),
		entrada("2", day(2024, 2, 1), 900, "SALARIO", domain.CategorySalario),
	}
	in := analysis.GoalInputFor(txs, profile, day(2024, 1, 11))

	if in.CurrentProgress != 1500 {
		t.Errorf("expected progress 1500, got %v", in.CurrentProgress)
	}
	if in.DailyRate != 50 {
		t.Errorf("expected 50/day, got %v", in.DailyRate)
	}
	if in.Target != 30000 {
		t.Errorf("expected target from profile, got %v", in.Target)
	}
}
