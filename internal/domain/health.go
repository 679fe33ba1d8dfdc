package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// InsightsMetrics is returned by GET /v1/metrics/insights.
type InsightsMetrics struct {
	TotalRuns        int64            `json:"totalRuns"`
	FailedRuns       int64            `json:"failedRuns"`
	ErrorRate        float64          `json:"errorRate"`
	CacheHitRate     float64          `json:"cacheHitRate"`
	AnomaliesByType  map[string]int64 `json:"anomaliesByType"`
	ModeTransitions  map[string]int64 `json:"modeTransitions"`
	SuggestionsTotal int64            `json:"suggestionsTotal"`
	Period           string           `json:"period"`
}
