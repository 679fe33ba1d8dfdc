package analysis

import (
	"fmt"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// ============================================================
// Calendar helpers
// ============================================================

// dateOf truncates t to its calendar day, keeping the location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// monthEnd returns the last day of t's month at midnight.
func monthEnd(t time.Time) time.Time {
	return monthStart(t).AddDate(0, 1, -1)
}

func daysInMonth(t time.Time) int {
	return monthEnd(t).Day()
}

// daysBetween counts whole calendar days from a to b (negative when b < a).
// It compares dates in UTC so DST shifts never produce 23h or 25h days.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// hasClock reports whether the statement carried a time of day.
// Dates are stored at local midnight when the source has no clock.
func hasClock(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0
}

func isLateNight(t time.Time, th Thresholds) bool {
	if !hasClock(t) {
		return false
	}
	h := t.Hour()
	return h >= th.NightStartHour || h < th.NightEndHour
}

// monthSpan counts the calendar months from the earliest to the latest row,
// both inclusive. It is 1 for a single row and 0 for none.
func monthSpan(txs []domain.Transaction) int {
	if len(txs) == 0 {
		return 0
	}
	first, last := txs[0].Date, txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.Before(first) {
			first = tx.Date
		}
		if tx.Date.After(last) {
			last = tx.Date
		}
	}
	return (last.Year()-first.Year())*12 + int(last.Month()-first.Month()) + 1
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// isoWeekKey returns a sortable "2006-W01" key and the ISO week number.
func isoWeekKey(t time.Time) (string, int) {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w), w
}

// inRange compares calendar dates, so rows and bounds may carry different
// clock times or locations.
func inRange(t, from, to time.Time) bool {
	return daysBetween(from, t) >= 0 && daysBetween(t, to) >= 0
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda-feira",
	time.Tuesday:   "terça-feira",
	time.Wednesday: "quarta-feira",
	time.Thursday:  "quinta-feira",
	time.Friday:    "sexta-feira",
	time.Saturday:  "sábado",
}
