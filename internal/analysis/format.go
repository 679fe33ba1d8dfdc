package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// brl renders v as Brazilian currency: "R$ 1.234,56".
func brl(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "R$ " + humanize.FormatFloat("#.###,##", v)
}

func pct(ratio float64) string {
	return humanize.FormatFloat("#.###,", ratio*100) + "%"
}

func shortDate(t time.Time) string {
	return t.Format("02/01")
}

func fullDate(t time.Time) string {
	return t.Format("02/01/2006")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// timesLabel renders a ratio as "2,5x".
func timesLabel(r float64) string {
	return fmt.Sprintf("%sx", decimalLabel(r))
}

func decimalLabel(v float64) string {
	return humanize.FormatFloat("#.###,#", v)
}
