package analysis_test

import (
	"fmt"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/analysis"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

var th = analysis.DefaultThresholds()

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clock(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, time.UTC)
}

func saida(id string, date time.Time, amount float64, desc string, cat domain.Category) domain.Transaction {
	return domain.Transaction{ID: id, Date: date, Amount: -amount, Type: domain.TypeSaida, Description: desc, Category: cat}
}

func entrada(id string, date time.Time, amount float64, desc string, cat domain.Category) domain.Transaction {
	return domain.Transaction{ID: id, Date: date, Amount: amount, Type: domain.TypeEntrada, Description: desc, Category: cat}
}

// dailySpend builds one outflow per day in [from, to].
func dailySpend(prefix string, from, to time.Time, amount float64, desc string, cat domain.Category) []domain.Transaction {
	var out []domain.Transaction
	for d, i := from, 0; !d.After(to); d, i = d.AddDate(0, 0, 1), i+1 {
		out = append(out, saida(fmt.Sprintf("%s-%d", prefix, i), d, amount, desc, cat))
	}
	return out
}

func findPattern(ps []domain.HiddenPattern, t domain.PatternType) (domain.HiddenPattern, bool) {
	for _, p := range ps {
		if p.Type == t {
			return p, true
		}
	}
	return domain.HiddenPattern{}, false
}

func findScarcity(ps []domain.ScarcityPattern, t domain.ScarcityType) (domain.ScarcityPattern, bool) {
	for _, p := range ps {
		if p.Type == t {
			return p, true
		}
	}
	return domain.ScarcityPattern{}, false
}
