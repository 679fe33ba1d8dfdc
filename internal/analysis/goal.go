package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Goal progress (RAV4)
// ============================================================

// GoalInput is everything the goal projection depends on.
type GoalInput struct {
	CurrentProgress float64
	Target          float64
	DailyRate       float64 // net savings per day
	StartDate       time.Time
	TargetDate      time.Time
	AsOf            time.Time
}

// GoalInputFor derives the goal inputs from the ledger: progress is the
// non-negative balance through asOf and the rate is the net flow per day
// since the goal started.
func GoalInputFor(txs []domain.Transaction, profile domain.Profile, asOf time.Time) GoalInput {
	asOf = dateOf(asOf)
	scope := upTo(txs, asOf)

	in := GoalInput{
		CurrentProgress: math.Max(Balance(profile.InitialBalance, scope), 0),
		Target:          profile.Rav4Target,
		StartDate:       profile.Rav4StartDate,
		TargetDate:      profile.Rav4TargetDate,
		AsOf:            asOf,
	}
	if in.StartDate.IsZero() && len(scope) > 0 {
		in.StartDate = dateOf(scope[0].Date)
	}
	if in.StartDate.IsZero() {
		return in
	}
	if days := daysBetween(in.StartDate, asOf); days > 0 {
		since := filterRange(scope, in.StartDate, asOf)
		t := Totals(since)
		in.DailyRate = (t.Entradas - t.Saidas) / float64(days)
	}
	return in
}

// GoalProgressFor is GoalInputFor followed by ComputeGoalProgress.
func GoalProgressFor(txs []domain.Transaction, profile domain.Profile, asOf time.Time, th Thresholds) domain.GoalProgress {
	return ComputeGoalProgress(GoalInputFor(txs, profile, asOf), th)
}

// ComputeGoalProgress classifies the goal schedule. The completion date is
// nil whenever it cannot be projected (rate <= 0 or beyond GoalMaxYears).
// A goal without a target amount or a target date is not configured.
func ComputeGoalProgress(in GoalInput, th Thresholds) domain.GoalProgress {
	if in.Target <= 0 || in.TargetDate.IsZero() {
		return domain.GoalProgress{
			CurrentProgress: round2(in.CurrentProgress),
			Status:          domain.GoalOnTrack,
			Message:         "Meta RAV4 não configurada.",
		}
	}

	asOf := dateOf(in.AsOf)
	current := math.Max(in.CurrentProgress, 0)
	remaining := math.Max(in.Target-current, 0)
	daysLeft := daysBetween(asOf, in.TargetDate)

	gp := domain.GoalProgress{
		Percentage:       round2(clamp(current/in.Target*100, 0, 100)),
		CurrentProgress:  round2(current),
		TargetProgress:   round2(in.Target),
		Remaining:        round2(remaining),
		DaysRemaining:    max(daysLeft, 0),
		DailySavingsRate: round2(in.DailyRate),
	}
	gp.ProjectedCompletionDate = projectCompletion(asOf, remaining, in.DailyRate, th)
	gp.Status = goalStatus(in, gp, daysLeft, th)
	gp.Message = goalMessage(gp)
	return gp
}

func projectCompletion(asOf time.Time, remaining, rate float64, th Thresholds) *time.Time {
	if remaining <= 0 {
		d := asOf
		return &d
	}
	if rate <= 0 {
		return nil
	}
	days := math.Ceil(remaining / rate)
	if days > float64(th.GoalMaxYears)*365 {
		return nil
	}
	d := asOf.AddDate(0, 0, int(days))
	return &d
}

func goalStatus(in GoalInput, gp domain.GoalProgress, daysLeft int, th Thresholds) domain.GoalStatus {
	if gp.Remaining <= 0 {
		return domain.GoalAhead
	}
	if daysLeft <= 0 {
		return domain.GoalCritical
	}
	if !in.StartDate.IsZero() {
		total := daysBetween(in.StartDate, in.TargetDate)
		if total > 0 {
			elapsed := clamp(float64(daysBetween(in.StartDate, in.AsOf))/float64(total), 0, 1)
			if in.CurrentProgress/in.Target < elapsed-th.GoalProgressGap {
				return domain.GoalCritical
			}
		}
	}
	if gp.ProjectedCompletionDate == nil {
		return domain.GoalBehind
	}
	slack := daysBetween(*gp.ProjectedCompletionDate, in.TargetDate)
	switch {
	case slack >= th.GoalAheadSlackDays:
		return domain.GoalAhead
	case slack >= -th.GoalOnTrackToleranceDays:
		return domain.GoalOnTrack
	case slack >= -th.GoalBehindMarginDays:
		return domain.GoalBehind
	}
	return domain.GoalCritical
}

func goalMessage(gp domain.GoalProgress) string {
	when := "sem projeção de conclusão no ritmo atual"
	if gp.ProjectedCompletionDate != nil {
		when = "conclusão prevista em " + fullDate(*gp.ProjectedCompletionDate)
	}
	switch gp.Status {
	case domain.GoalAhead:
		if gp.Remaining <= 0 {
			return "Meta RAV4 atingida!"
		}
		return fmt.Sprintf("Adiantado: %s de %s guardados, %s.", brl(gp.CurrentProgress), brl(gp.TargetProgress), when)
	case domain.GoalOnTrack:
		return fmt.Sprintf("No ritmo: faltam %s, %s.", brl(gp.Remaining), when)
	case domain.GoalBehind:
		return fmt.Sprintf("Atrasado: faltam %s, %s.", brl(gp.Remaining), when)
	}
	return fmt.Sprintf("Crítico: faltam %s em %d dias, %s.", brl(gp.Remaining), gp.DaysRemaining, when)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
