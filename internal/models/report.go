package models

import "time"

// ReportSummary holds top-level counts across every stored request.
type ReportSummary struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Urgent    int `json:"urgent"`
	High      int `json:"high"`
	Normal    int `json:"normal"`
}

// UserReportRow is a per-user rollup of request counts.
type UserReportRow struct {
	Username          string    `json:"username"`
	FullName          string    `json:"full_name"`
	TotalApplications int       `json:"total_applications"`
	Active            int       `json:"active"`
	Completed         int       `json:"completed"`
	Cancelled         int       `json:"cancelled"`
	LastActivity      time.Time `json:"last_activity"`
}

// PendingItemRow aggregates outstanding demand for one subject across
// all active requests.
type PendingItemRow struct {
	Subject          string `json:"subject"`
	TotalQuantity    int    `json:"total_quantity"`
	TotalRequests    int    `json:"total_requests"`
	UrgentRequests   int    `json:"urgent_requests"`
	HighRequests     int    `json:"high_requests"`
	EarliestNeedDate string `json:"earliest_need_date"`
	LatestNeedDate   string `json:"latest_need_date"`
	RequesterNames   string `json:"requester_names"`
}

// WeeklyStatRow is one day of the trailing 7-day creation time series.
// UrgentCount and HighCount are populated only by the dedicated weekly
// report, not by the full report.
type WeeklyStatRow struct {
	Date              string `json:"date"`
	ApplicationsCount int    `json:"applications_count"`
	Completed         int    `json:"completed"`
	UrgentCount       int    `json:"urgent_count,omitempty"`
	HighCount         int    `json:"high_count,omitempty"`
}

// StatusBreakdownRow is one status bucket with its share of the total.
type StatusBreakdownRow struct {
	Status     ApplicationStatus `json:"status"`
	Count      int               `json:"count"`
	Percentage float64           `json:"percentage"`
}

// PriorityBreakdownRow is one priority bucket with its share of the total.
type PriorityBreakdownRow struct {
	Priority   ApplicationPriority `json:"priority"`
	Count      int                 `json:"count"`
	Percentage float64             `json:"percentage"`
}

// FullReport composes every sub-report into one timestamped structure.
type FullReport struct {
	Timestamp    time.Time        `json:"timestamp"`
	Summary      ReportSummary    `json:"summary"`
	Users        []UserReportRow  `json:"users"`
	PendingItems []PendingItemRow `json:"pendingItems"`
	WeeklyStats  []WeeklyStatRow  `json:"weeklyStats"`
}
