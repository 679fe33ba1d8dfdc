package analysis_test

import (
	"testing"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/analysis"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

func TestDetectScarcity_ExpensiveWeek(t *testing.T) {
	txs := []domain.Transaction{
		saida("1", day(2024, 6, 3), 100, "PADARIA", domain.CategoryAlimentacao),
		saida("2", day(2024, 6, 10), 1000, "LOJA", domain.CategoryCompras),
		saida("3", day(2024, 6, 17), 100, "PADARIA", domain.CategoryAlimentacao),
		saida("4", day(2024, 6, 24), 100, "PADARIA", domain.CategoryAlimentacao),
	}
	p, ok := findScarcity(analysis.DetectScarcity(txs, domain.Profile{}, day(2024, 6, 30), th), domain.ScarcityExpensiveWeek)
	if !ok {
		t.Fatal("expected EXPENSIVE_WEEK")
	}
	if p.WeekNumber == nil || *p.WeekNumber != 24 {
		t.Errorf("expected week 24, got %v", p.WeekNumber)
	}
	if p.Baseline != 260 || p.Severity != domain.SeverityHigh {
		t.Errorf("expected baseline 260 and high severity, got %v/%s", p.Baseline, p.Severity)
	}
}

func TestDetectScarcity_PostSalary(t *testing.T) {
	txs := []domain.Transaction{entrada("salary", day(2024, 6, 1), 3000, "SALARIO", domain.CategorySalario)}
	txs = append(txs, dailySpend("hot", day(2024, 6, 1), day(2024, 6, 4), 300, "LOJA", domain.CategoryCompras)...)
	txs = append(txs, dailySpend("calm", day(2024, 6, 5), day(2024, 6, 30), 50, "PADARIA", domain.CategoryAlimentacao)...)

	p, ok := findScarcity(analysis.DetectScarcity(txs, domain.Profile{Salary: 3000}, day(2024, 6, 30), th), domain.ScarcityPostSalarySpending)
	if !ok {
		t.Fatal("expected POST_SALARY_SPENDING")
	}
	if p.Ratio != 6 || p.Baseline != 50 {
		t.Errorf("expected ratio 6 over base 50, got %v/%v", p.Ratio, p.Baseline)
	}
	if p.DayRange == nil || p.DayRange.Start != 1 || p.DayRange.End != 4 {
		t.Errorf("expected days 1-4, got %+v", p.DayRange)
	}
}

func preMonthEndLedger() []domain.Transaction {
	txs := dailySpend("rest", day(2024, 6, 1), day(2024, 6, 25), 40, "PADARIA", domain.CategoryAlimentacao)
	return append(txs, dailySpend("end", day(2024, 6, 26), day(2024, 6, 30), 200, "LOJA", domain.CategoryCompras)...)
}

func TestDetectScarcity_PreMonthEnd(t *testing.T) {
	tests := []struct {
		name string
		asOf int
		mon  int
	}{
		{"current month", 30, 6},
		{"previous month early in the next", 5, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asOf := day(2024, 6, tt.asOf)
			if tt.mon == 7 {
				asOf = day(2024, 7, tt.asOf)
			}
			p, ok := findScarcity(analysis.DetectScarcity(preMonthEndLedger(), domain.Profile{}, asOf, th), domain.ScarcityPreMonthEnd)
			if !ok {
				t.Fatal("expected PRE_MONTH_END")
			}
			if p.ID != "PRE_MONTH_END:2024-06" {
				t.Errorf("expected June anchor, got %q", p.ID)
			}
			if p.Ratio != 5 || p.DayRange == nil || p.DayRange.Start != 26 || p.DayRange.End != 30 {
				t.Errorf("unexpected pre month end figures: %+v", p)
			}
		})
	}
}

func TestDetectScarcity_MidMonthSpike(t *testing.T) {
	txs := dailySpend("a", day(2024, 6, 1), day(2024, 6, 10), 30, "PADARIA", domain.CategoryAlimentacao)
	txs = append(txs, dailySpend("b", day(2024, 6, 11), day(2024, 6, 20), 150, "LOJA", domain.CategoryCompras)...)
	txs = append(txs, dailySpend("c", day(2024, 6, 21), day(2024, 6, 30), 30, "PADARIA", domain.CategoryAlimentacao)...)

	p, ok := findScarcity(analysis.DetectScarcity(txs, domain.Profile{}, day(2024, 6, 30), th), domain.ScarcityMidMonthSpike)
	if !ok {
		t.Fatal("expected MID_MONTH_SPIKE")
	}
	if p.Ratio != 5 || p.Severity != domain.SeverityHigh {
		t.Errorf("expected ratio 5 with high severity, got %v/%s", p.Ratio, p.Severity)
	}
}

func TestDetectScarcity_FlatSpendIsQuiet(t *testing.T) {
	txs := dailySpend("flat", day(2024, 6, 1), day(2024, 6, 30), 50, "PADARIA", domain.CategoryAlimentacao)
	if got := analysis.DetectScarcity(txs, domain.Profile{}, day(2024, 6, 30), th); len(got) != 0 {
		t.Errorf("expected no scarcity for flat spend, got %+v", got)
	}
}
