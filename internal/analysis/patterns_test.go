package analysis_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/analysis"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

func TestDetectPatterns_NightPix(t *testing.T) {
	txs := []domain.Transaction{
		saida("1", clock(2024, 6, 3, 23, 15), 100, "PIX ENVIADO JOAO", domain.CategoryPIX),
		saida("2", clock(2024, 6, 10, 23, 40), 100, "PIX ENVIADO JOAO", domain.CategoryPIX),
		saida("3", clock(2024, 6, 17, 1, 5), 100, "PIX ENVIADO JOAO", domain.CategoryPIX),
	}
	p, ok := findPattern(analysis.DetectPatterns(txs, day(2024, 6, 30), th), domain.PatternNightPix)
	if !ok {
		t.Fatal("expected NIGHT_PIX")
	}
	if p.Occurrences != 3 || p.TotalAmount != 300 {
		t.Errorf("unexpected night pix figures: %+v", p)
	}
}

func TestDetectPatterns_EmotionalAfterStress(t *testing.T) {
	txs := []domain.Transaction{
		saida("1", day(2024, 6, 3), 800, "ALUGUEL", domain.CategoryMoradia),
		saida("2", day(2024, 6, 4), 45, "IFOOD", domain.CategoryDelivery),
		saida("3", day(2024, 6, 17), 600, "OFICINA", domain.CategoryOutros),
		saida("4", day(2024, 6, 18), 80, "SHOPEE", domain.CategoryCompras),
	}
	p, ok := findPattern(analysis.DetectPatterns(txs, day(2024, 6, 30), th), domain.PatternEmotionalAfterStress)
	if !ok {
		t.Fatal("expected EMOTIONAL_AFTER_STRESS")
	}
	if p.Occurrences != 2 || p.TotalAmount != 125 {
		t.Errorf("expected 2 episodes totalling 125, got %+v", p)
	}
}

func TestDetectPatterns_PressureWeek(t *testing.T) {
	txs := []domain.Transaction{
		saida("1", day(2024, 6, 3), 100, "PADARIA", domain.CategoryAlimentacao),
		saida("2", day(2024, 6, 10), 1000, "LOJA", domain.CategoryCompras),
		saida("3", day(2024, 6, 17), 100, "PADARIA", domain.CategoryAlimentacao),
		saida("4", day(2024, 6, 24), 100, "PADARIA", domain.CategoryAlimentacao),
	}
	var weeks []domain.HiddenPattern
	for _, p := range analysis.DetectPatterns(txs, day(2024, 6, 30), th) {
		if p.Type == domain.PatternPressureWeek {
			weeks = append(weeks, p)
		}
	}
	if len(weeks) != 1 {
		t.Fatalf("expected 1 pressure week, got %+v", weeks)
	}
	if weeks[0].ID != "PRESSURE_WEEK:2024-W24" {
		t.Errorf("expected week 24, got %q", weeks[0].ID)
	}
}

// yearOfNightTransfers books two 100 PIX transfers at 23:30 on the 5th and
// the 20th of every month from July 2023 to June 2024.
func yearOfNightTransfers() []domain.Transaction {
	var txs []domain.Transaction
	for m := 0; m < 12; m++ {
		first := time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC).AddDate(0, m, 0)
		for _, d := range []int{5, 20} {
			at := time.Date(first.Year(), first.Month(), d, 23, 30, 0, 0, time.UTC)
			txs = append(txs, saida(fmt.Sprintf("pix-%d-%d", m, d), at, 100, "PIX ENVIADO MARIA", domain.CategoryPIX))
		}
	}
	return txs
}

func TestDetectPatterns_RegularSpendingHasNoPressureWeek(t *testing.T) {
	for _, p := range analysis.DetectPatterns(yearOfNightTransfers(), day(2024, 6, 30), th) {
		if p.Type == domain.PatternPressureWeek {
			t.Errorf("expected no pressure week for an even routine, got %+v", p)
		}
	}
}

func TestDetectPatterns_PressureWeekLooksAtRecentMonths(t *testing.T) {
	txs := []domain.Transaction{
		saida("1", day(2024, 1, 8), 1000, "LOJA", domain.CategoryCompras),
		saida("2", day(2024, 1, 15), 100, "PADARIA", domain.CategoryAlimentacao),
		saida("3", day(2024, 1, 22), 100, "PADARIA", domain.CategoryAlimentacao),
		saida("4", day(2024, 6, 3), 100, "PADARIA", domain.CategoryAlimentacao),
		saida("5", day(2024, 6, 10), 100, "PADARIA", domain.CategoryAlimentacao),
	}
	for _, p := range analysis.DetectPatterns(txs, day(2024, 6, 30), th) {
		if p.Type == domain.PatternPressureWeek {
			t.Errorf("expected January to fall outside the window, got %+v", p)
		}
	}
}

func TestDetectPatterns_MonthlyAverageSpansOccurrences(t *testing.T) {
	p, ok := findPattern(analysis.DetectPatterns(yearOfNightTransfers(), day(2024, 6, 30), th), domain.PatternNightPix)
	if !ok {
		t.Fatal("expected NIGHT_PIX")
	}
	if p.TotalAmount != 2400 || p.MonthlyAverage != 200 {
		t.Errorf("expected 2400 over 12 months (200/month), got %v and %v", p.TotalAmount, p.MonthlyAverage)
	}
}

func TestDetectPatterns_TiredDelivery(t *testing.T) {
	var txs []domain.Transaction
	for i, d := range []int{7, 14, 21, 28} {
		txs = append(txs, saida(string(rune('a'+i)), day(2024, 6, d), 45, "IFOOD", domain.CategoryDelivery))
	}
	p, ok := findPattern(analysis.DetectPatterns(txs, day(2024, 6, 30), th), domain.PatternTiredDelivery)
	if !ok {
		t.Fatal("expected TIRED_DELIVERY")
	}
	if !strings.Contains(strings.Join(p.Evidence, " "), "sexta-feira") {
		t.Errorf("expected evidence to name friday, got %v", p.Evidence)
	}
}

func TestDetectPatterns_MidMonthNeedsElapsedMonth(t *testing.T) {
	txs := []domain.Transaction{
		saida("1", day(2024, 6, 5), 100, "PADARIA", domain.CategoryAlimentacao),
		saida("2", day(2024, 6, 15), 300, "SUPERMERCADO", domain.CategoryAlimentacao),
		saida("3", day(2024, 6, 25), 100, "PADARIA", domain.CategoryAlimentacao),
	}
	if _, ok := findPattern(analysis.DetectPatterns(txs, day(2024, 6, 30), th), domain.PatternMidMonthSpending); !ok {
		t.Error("expected MID_MONTH_SPENDING once the month passed day 20")
	}
	if _, ok := findPattern(analysis.DetectPatterns(txs, day(2024, 6, 18), th), domain.PatternMidMonthSpending); ok {
		t.Error("expected no MID_MONTH_SPENDING before day 21")
	}
}

func TestDetectPatterns_Empty(t *testing.T) {
	got := analysis.DetectPatterns(nil, day(2024, 6, 30), th)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty, non-nil result, got %v", got)
	}
}
