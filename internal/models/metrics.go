package models

import "time"

// SystemMetrics is a JSON friendly snapshot of the service instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	ReclassificationRuns     uint64    `json:"reclassification_runs"`
	LoansReclassified        uint64    `json:"loans_reclassified"`
	ReclassificationFailures uint64    `json:"reclassification_failures"`
	PortfolioAtRisk          float64   `json:"portfolio_at_risk"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
