// Package analysis is the deterministic insight pipeline of the ledger.
//
// Every function in this package is pure: it reads a normalized transaction
// slice, a profile snapshot and an explicit as-of date, and returns plain
// value types from the domain package. Nothing here performs I/O or reads
// the wall clock, so any run can be replayed from the same inputs.
package analysis

import "github.com/boddenberg/ledger-insights-bfa-go/internal/domain"

// Thresholds is the tunable configuration surface of the detectors.
// Defaults come from DefaultThresholds and can be overridden field by field
// from a YAML file (see config.LoadThresholds).
type Thresholds struct {
	// Projection / mode escalation
	IskraHorizonDays   int `yaml:"iskra_horizon_days"`
	MochilaHorizonDays int `yaml:"mochila_horizon_days"`
	WarningsForIskra   int `yaml:"warnings_for_iskra"`
	ModeCooldownDays   int `yaml:"mode_cooldown_days"`

	// Mode restrictions
	IskraDailyFactor    float64                     `yaml:"iskra_daily_factor"`
	IskraCategoryCaps   map[domain.Category]float64 `yaml:"iskra_category_caps"`
	MochilaDailyFactor  float64                     `yaml:"mochila_daily_factor"`
	MochilaBlocked      []domain.Category           `yaml:"mochila_blocked"`
	MochilaCategoryCaps map[domain.Category]float64 `yaml:"mochila_category_caps"`
	WarningRatio        float64                     `yaml:"warning_ratio"`

	// Anomalies
	AnomalyLookbackDays     int     `yaml:"anomaly_lookback_days"`
	LargePurchaseMultiplier float64 `yaml:"large_purchase_multiplier"`
	LargePurchaseZScore     float64 `yaml:"large_purchase_zscore"`
	LargePurchaseMinHistory int     `yaml:"large_purchase_min_history"`
	PixMinAmount            float64 `yaml:"pix_min_amount"`
	PixHighAmount           float64 `yaml:"pix_high_amount"`
	UnusualHourEnd          int     `yaml:"unusual_hour_end"`
	DuplicateMaxDays        int     `yaml:"duplicate_max_days"`
	DuplicateSimilarity     float64 `yaml:"duplicate_similarity"`
	FeeMaxAmount            float64 `yaml:"fee_max_amount"`

	// Patterns
	NightStartHour         int     `yaml:"night_start_hour"`
	NightEndHour           int     `yaml:"night_end_hour"`
	EveningStartHour       int     `yaml:"evening_start_hour"`
	NightPixMinOccurrences int     `yaml:"night_pix_min_occurrences"`
	StressAmount           float64 `yaml:"stress_amount"`
	StressWindowDays       int     `yaml:"stress_window_days"`
	StressMinEpisodes      int     `yaml:"stress_min_episodes"`
	PressureWeekRatio      float64 `yaml:"pressure_week_ratio"`
	PressureWeekMonths     int     `yaml:"pressure_week_months"`
	DeliveryMinOccurrences int     `yaml:"delivery_min_occurrences"`
	DeliveryWeekdayShare   float64 `yaml:"delivery_weekday_share"`
	DeliveryEveningShare   float64 `yaml:"delivery_evening_share"`
	MidMonthShare          float64 `yaml:"mid_month_share"`

	// Category forecast
	TrendMargin float64 `yaml:"trend_margin"`

	// Scarcity
	ScarcityMinRatio     float64 `yaml:"scarcity_min_ratio"`
	ScarcityMediumRatio  float64 `yaml:"scarcity_medium_ratio"`
	ScarcityHighRatio    float64 `yaml:"scarcity_high_ratio"`
	PostSalaryWindowDays int     `yaml:"post_salary_window_days"`
	PreMonthEndDays      int     `yaml:"pre_month_end_days"`

	// PIX grouping
	PixMinOccurrences int `yaml:"pix_min_occurrences"`

	// Budget
	SavingsRate float64 `yaml:"savings_rate"`

	// Goal
	GoalAheadSlackDays       int     `yaml:"goal_ahead_slack_days"`
	GoalOnTrackToleranceDays int     `yaml:"goal_on_track_tolerance_days"`
	GoalBehindMarginDays     int     `yaml:"goal_behind_margin_days"`
	GoalProgressGap          float64 `yaml:"goal_progress_gap"`
	GoalMaxYears             int     `yaml:"goal_max_years"`

	// Suggestions
	HighPrioritySavings   float64 `yaml:"high_priority_savings"`
	MediumPrioritySavings float64 `yaml:"medium_priority_savings"`
	SubscriptionCutShare  float64 `yaml:"subscription_cut_share"`
	OptimizeShare         float64 `yaml:"optimize_share"`
	OverdraftMonthlyRate  float64 `yaml:"overdraft_monthly_rate"`
}

// DefaultThresholds returns the reference tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		IskraHorizonDays:   10,
		MochilaHorizonDays: 3,
		WarningsForIskra:   2,
		ModeCooldownDays:   7,

		IskraDailyFactor: 0.8,
		IskraCategoryCaps: map[domain.Category]float64{
			domain.CategoryDelivery: 300,
			domain.CategoryLazer:    200,
			domain.CategoryCompras:  300,
		},
		MochilaDailyFactor: 0.5,
		MochilaBlocked: []domain.Category{
			domain.CategoryDelivery,
			domain.CategoryLazer,
			domain.CategoryCompras,
			domain.CategoryAssinaturas,
		},
		MochilaCategoryCaps: map[domain.Category]float64{
			domain.CategoryAlimentacao: 800,
			domain.CategoryTransporte:  300,
		},
		WarningRatio: 0.8,

		AnomalyLookbackDays:     30,
		LargePurchaseMultiplier: 3,
		LargePurchaseZScore:     3,
		LargePurchaseMinHistory: 3,
		PixMinAmount:            200,
		PixHighAmount:           1000,
		UnusualHourEnd:          6,
		DuplicateMaxDays:        1,
		DuplicateSimilarity:     0.6,
		FeeMaxAmount:            50,

		NightStartHour:         22,
		NightEndHour:           5,
		EveningStartHour:       18,
		NightPixMinOccurrences: 3,
		StressAmount:           500,
		StressWindowDays:       2,
		StressMinEpisodes:      2,
		PressureWeekRatio:      1.5,
		PressureWeekMonths:     3,
		DeliveryMinOccurrences: 4,
		DeliveryWeekdayShare:   0.4,
		DeliveryEveningShare:   0.6,
		MidMonthShare:          0.5,

		TrendMargin: 0.2,

		ScarcityMinRatio:     1.3,
		ScarcityMediumRatio:  1.8,
		ScarcityHighRatio:    2.5,
		PostSalaryWindowDays: 3,
		PreMonthEndDays:      5,

		PixMinOccurrences: 3,

		SavingsRate: 0.2,

		GoalAheadSlackDays:       30,
		GoalOnTrackToleranceDays: 15,
		GoalBehindMarginDays:     90,
		GoalProgressGap:          0.25,
		GoalMaxYears:             100,

		HighPrioritySavings:   300,
		MediumPrioritySavings: 100,
		SubscriptionCutShare:  0.5,
		OptimizeShare:         0.3,
		OverdraftMonthlyRate:  0.08,
	}
}
