package models

import "time"

// StatusCount is one bucket of the status distribution.
type StatusCount struct {
	StatusName string `db:"status_name" json:"status_name"`
	Count      int    `db:"count" json:"count"`
}

// SchoolSummary aggregates student standing per school.
type SchoolSummary struct {
	SchoolID     string `db:"school_id" json:"school_id"`
	SchoolName   string `db:"school_name" json:"school_name"`
	StudentCount int    `db:"student_count" json:"student_count"`
	DelayedCount int    `db:"delayed_count" json:"delayed_count"`
}

// OrphanedOwner is a timeline owner with zero current status records, a
// detectable inconsistency surfaced for manual repair.
type OrphanedOwner struct {
	OwnerKind StatusOwnerKind `db:"owner_kind" json:"owner_kind"`
	OwnerID   string          `db:"owner_id" json:"owner_id"`
}

// DashboardSummary is the cached dashboard payload.
type DashboardSummary struct {
	StatusDistribution []StatusCount   `json:"status_distribution"`
	Schools            []SchoolSummary `json:"schools"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

// SystemMetrics is a lightweight snapshot of runtime counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
