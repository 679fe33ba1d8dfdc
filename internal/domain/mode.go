package domain

import "time"

// ============================================================
// Operating mode
// ============================================================

// Mode is the operating regime of the ledger owner.
type Mode string

const (
	ModeNormal  Mode = "normal"  // no restrictions
	ModeIskra   Mode = "iskra"   // preventive protection
	ModeMochila Mode = "mochila" // emergency
)

// Level orders modes by severity.
func (m Mode) Level() int {
	switch m {
	case ModeIskra:
		return 1
	case ModeMochila:
		return 2
	}
	return 0
}

// Restrictions is the spending policy of a mode.
type Restrictions struct {
	BlockedCategories   []Category           `json:"blockedCategories"`
	MaxDailySpending    *float64             `json:"maxDailySpending"`
	MaxCategorySpending map[Category]float64 `json:"maxCategorySpending"`
}

// IsBlocked reports whether spending in c is forbidden.
func (r Restrictions) IsBlocked(c Category) bool {
	for _, b := range r.BlockedCategories {
		if b == c {
			return true
		}
	}
	return false
}

// ModeState is the only stateful piece of the core. It is replaced as a
// whole on every evaluation and never mutated in place.
type ModeState struct {
	CurrentMode     Mode         `json:"currentMode"`
	Reason          string       `json:"reason"`
	ActivatedAt     time.Time    `json:"activatedAt"`
	LastTriggeredAt time.Time    `json:"lastTriggeredAt"`
	LastEvaluatedAt time.Time    `json:"lastEvaluatedAt"` // zero until the first evaluation
	Restrictions    Restrictions `json:"restrictions"`
}
