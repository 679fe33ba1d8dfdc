package domain

import "time"

// ============================================================
// Severity / priority tiers
// ============================================================

// Severity is the tier attached to every detector finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities; higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Priority is the tier attached to a suggestion.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities; higher comes first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// ============================================================
// Projection
// ============================================================

// ForecastResult is the end-of-month balance projection.
type ForecastResult struct {
	CurrentBalance    float64    `json:"currentBalance"`
	DailySpending     float64    `json:"dailySpending"`
	DailyIncome       float64    `json:"dailyIncome"`
	WillGoNegative    bool       `json:"willGoNegative"`
	NegativeAmount    float64    `json:"negativeAmount"`
	NegativeDate      *time.Time `json:"negativeDate"`
	ProjectionDate    time.Time  `json:"projectionDate"`
	DaysUntilNegative *int       `json:"daysUntilNegative"`
	ProjectedBalance  float64    `json:"projectedBalance"`
	DaysRemaining     int        `json:"daysRemaining"`
	EconomyPerDay     *float64   `json:"economyPerDay"` // nil = not applicable
	Recommendation    string     `json:"recommendation,omitempty"`
}

// Trend is the direction of a category's spend inside the month.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// CategoryForecast is the monthly projection of one spending category.
type CategoryForecast struct {
	Category                 Category `json:"category"`
	CurrentTotal             float64  `json:"currentTotal"`
	DailyAverage             float64  `json:"dailyAverage"`
	ProjectedMonthly         float64  `json:"projectedMonthly"`
	HistoricalMonthlyAverage float64  `json:"historicalMonthlyAverage"`
	Trend                    Trend    `json:"trend"`
	Message                  string   `json:"message"`
}

// ============================================================
// Detectors
// ============================================================

// AnomalyType tags a per-transaction anomaly.
type AnomalyType string

const (
	AnomalyLargePurchase AnomalyType = "LARGE_PURCHASE"
	AnomalyUnusualPix    AnomalyType = "UNUSUAL_PIX"
	AnomalyDuplicate     AnomalyType = "DUPLICATE_TRANSACTION"
	AnomalyUnexpectedFee AnomalyType = "UNEXPECTED_FEE"
)

// AnomalyTypes lists every anomaly tag.
var AnomalyTypes = []AnomalyType{AnomalyLargePurchase, AnomalyUnusualPix, AnomalyDuplicate, AnomalyUnexpectedFee}

// Anomaly flags one transaction as abnormal.
type Anomaly struct {
	ID             string      `json:"id"`
	Type           AnomalyType `json:"type"`
	Severity       Severity    `json:"severity"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	TransactionID  string      `json:"transactionId"`
	Amount         float64     `json:"amount"`
	Date           time.Time   `json:"date"`
	Evidence       []string    `json:"evidence"`
	Recommendation string      `json:"recommendation"`
	DetectedAt     time.Time   `json:"detectedAt"`
}

// PatternType tags a behavioral pattern across the whole period.
type PatternType string

const (
	PatternNightPix             PatternType = "NIGHT_PIX"
	PatternEmotionalAfterStress PatternType = "EMOTIONAL_AFTER_STRESS"
	PatternPressureWeek         PatternType = "PRESSURE_WEEK"
	PatternTiredDelivery        PatternType = "TIRED_DELIVERY"
	PatternMidMonthSpending     PatternType = "MID_MONTH_SPENDING"
)

// PatternTypes lists every pattern tag.
var PatternTypes = []PatternType{PatternNightPix, PatternEmotionalAfterStress, PatternPressureWeek, PatternTiredDelivery, PatternMidMonthSpending}

// HiddenPattern is a recurring behavioral signature.
type HiddenPattern struct {
	ID             string      `json:"id"`
	Type           PatternType `json:"type"`
	Severity       Severity    `json:"severity"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Occurrences    int         `json:"occurrences"`
	TotalAmount    float64     `json:"totalAmount"`
	MonthlyAverage float64     `json:"monthlyAverage"` // TotalAmount over the months the occurrences span
	Evidence       []string    `json:"evidence"`
	Recommendation string      `json:"recommendation"`
}

// ScarcityType tags a calendar-relative spending pattern.
type ScarcityType string

const (
	ScarcityExpensiveWeek      ScarcityType = "EXPENSIVE_WEEK"
	ScarcityPostSalarySpending ScarcityType = "POST_SALARY_SPENDING"
	ScarcityPreMonthEnd        ScarcityType = "PRE_MONTH_END"
	ScarcityMidMonthSpike      ScarcityType = "MID_MONTH_SPIKE"
)

// ScarcityTypes lists every scarcity tag.
var ScarcityTypes = []ScarcityType{ScarcityExpensiveWeek, ScarcityPostSalarySpending, ScarcityPreMonthEnd, ScarcityMidMonthSpike}

// DayRange is an inclusive range of days of a month.
type DayRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ScarcityPattern is a spend spike anchored to salary or month boundaries.
type ScarcityPattern struct {
	ID             string       `json:"id"`
	Type           ScarcityType `json:"type"`
	Severity       Severity     `json:"severity"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Amount         float64      `json:"amount"`
	Baseline       float64      `json:"baseline"`
	Ratio          float64      `json:"ratio"`
	WeekNumber     *int         `json:"weekNumber,omitempty"`
	DayRange       *DayRange    `json:"dayRange,omitempty"`
	Evidence       []string     `json:"evidence"`
	Recommendation string       `json:"recommendation"`
}

// Frequency is the cadence of a recurring PIX recipient.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyIrregular Frequency = "irregular"
)

// PIXGroup clusters transfers to the same recipient.
type PIXGroup struct {
	Recipient        string    `json:"recipient"`
	Key              string    `json:"key"`
	TotalAmount      float64   `json:"totalAmount"`
	Count            int       `json:"count"`
	AverageAmount    float64   `json:"averageAmount"`
	Frequency        Frequency `json:"frequency"`
	Pattern          string    `json:"pattern"`
	FirstTransaction time.Time `json:"firstTransaction"`
	LastTransaction  time.Time `json:"lastTransaction"`
	TransactionIDs   []string  `json:"transactionIds"`
}

// ============================================================
// Budgeting
// ============================================================

// WeeklyAdjustment is the budget review of one week of the month.
type WeeklyAdjustment struct {
	Month             string    `json:"month"` // 2006-01
	WeekNumber        int       `json:"weekNumber"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	ActualSpending    float64   `json:"actualSpending"`
	ProjectedSpending float64   `json:"projectedSpending"`
	Adjustment        float64   `json:"adjustment"`
	NewDailyLimit     *float64  `json:"newDailyLimit"` // nil when no days remain
	Closed            bool      `json:"closed"`
	Message           string    `json:"message"`
}

// Violation is one breach of an active restriction.
type Violation struct {
	Category Category `json:"category,omitempty"`
	Message  string   `json:"message"`
	Amount   float64  `json:"amount"`
}

// DisciplineImpact is the effect of violations on the savings goal.
type DisciplineImpact struct {
	Message        string  `json:"message"`
	ProjectedDelay float64 `json:"projectedDelay"` // months
	AdditionalCost float64 `json:"additionalCost"`
}

// DisciplineStatus is the austerity evaluation of the current period.
type DisciplineStatus struct {
	Mode          Mode             `json:"mode"`
	IsInAusterity bool             `json:"isInAusterity"`
	Violations    []Violation      `json:"violations"`
	Warnings      []string         `json:"warnings"`
	Impact        DisciplineImpact `json:"impact"`
}

// GoalStatus classifies the savings goal schedule.
type GoalStatus string

const (
	GoalAhead    GoalStatus = "ahead"
	GoalOnTrack  GoalStatus = "on_track"
	GoalBehind   GoalStatus = "behind"
	GoalCritical GoalStatus = "critical"
)

// GoalProgress tracks the RAV4 savings goal.
type GoalProgress struct {
	Percentage              float64    `json:"percentage"`
	CurrentProgress         float64    `json:"currentProgress"`
	TargetProgress          float64    `json:"targetProgress"`
	Remaining               float64    `json:"remaining"`
	DaysRemaining           int        `json:"daysRemaining"`
	DailySavingsRate        float64    `json:"dailySavingsRate"`
	Status                  GoalStatus `json:"status"`
	Message                 string     `json:"message"`
	ProjectedCompletionDate *time.Time `json:"projectedCompletionDate"`
}

// ============================================================
// Suggestions
// ============================================================

// SuggestionType tags an actionable recommendation.
type SuggestionType string

const (
	SuggestionCancelSubscription SuggestionType = "cancel_subscription"
	SuggestionReduceCategory     SuggestionType = "reduce_category"
	SuggestionOptimizeSpending   SuggestionType = "optimize_spending"
	SuggestionDebtPayoff         SuggestionType = "debt_payoff"
	SuggestionSavingsOpportunity SuggestionType = "savings_opportunity"
)

// SuggestionImpact is the projected saving of a suggestion.
type SuggestionImpact struct {
	MonthlySavings float64 `json:"monthlySavings"`
	AnnualSavings  float64 `json:"annualSavings"`
	Message        string  `json:"message"`
}

// AISuggestion is a ranked recommendation synthesized from the detectors.
type AISuggestion struct {
	ID          string           `json:"id"`
	Type        SuggestionType   `json:"type"`
	Priority    Priority         `json:"priority"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    Category         `json:"category,omitempty"`
	Impact      SuggestionImpact `json:"impact"`
}

// NaturalLanguageDetection is a one-sentence rendering of a finding.
type NaturalLanguageDetection struct {
	Source   string   `json:"source"` // anomaly, pattern, scarcity, forecast, mode
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ============================================================
// Report
// ============================================================

// InsightReport is the full result of one analysis run.
type InsightReport struct {
	RunID             string                     `json:"runId"`
	CustomerID        string                     `json:"customerId,omitempty"`
	AsOf              time.Time                  `json:"asOf"`
	GeneratedAt       time.Time                  `json:"generatedAt"`
	Balance           float64                    `json:"balance"`
	Totals            Totals                     `json:"totals"`
	CategoryStats     []CategoryStat             `json:"categoryStats"`
	MonthlyTrend      []MonthlyTrend             `json:"monthlyTrend"`
	Forecast          ForecastResult             `json:"forecast"`
	CategoryForecasts []CategoryForecast         `json:"categoryForecasts"`
	Anomalies         []Anomaly                  `json:"anomalies"`
	Patterns          []HiddenPattern            `json:"patterns"`
	Scarcity          []ScarcityPattern          `json:"scarcity"`
	PIXGroups         []PIXGroup                 `json:"pixGroups"`
	WeeklyAdjustments []WeeklyAdjustment         `json:"weeklyAdjustments"`
	WeeklyHistory     []WeeklyAdjustment         `json:"weeklyHistory,omitempty"` // closed weeks kept across runs
	Mode              ModeState                  `json:"mode"`
	ModeTransitioned  bool                       `json:"modeTransitioned"`
	Discipline        DisciplineStatus           `json:"discipline"`
	Goal              GoalProgress               `json:"goal"`
	Suggestions       []AISuggestion             `json:"suggestions"`
	Detections        []NaturalLanguageDetection `json:"detections"`
}

// RunSummary is the stored digest of one finished run, served by
// GET /v1/customers/{customerId}/runs.
type RunSummary struct {
	RunID            string     `json:"runId"`
	CustomerID       string     `json:"customerId"`
	AsOf             string     `json:"asOf"`
	GeneratedAt      time.Time  `json:"generatedAt"`
	Balance          float64    `json:"balance"`
	ProjectedBalance float64    `json:"projectedBalance"`
	WillGoNegative   bool       `json:"willGoNegative"`
	Mode             Mode       `json:"mode"`
	ModeTransitioned bool       `json:"modeTransitioned"`
	Anomalies        int        `json:"anomalies"`
	Patterns         int        `json:"patterns"`
	Suggestions      int        `json:"suggestions"`
	GoalStatus       GoalStatus `json:"goalStatus"`
}
