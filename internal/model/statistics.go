package model

import (
	"time"
)

// StatusCount is one row of a GROUP BY status aggregate
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// TypeCount is one row of a GROUP BY type aggregate
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// ActionCount is one row of a GROUP BY action aggregate over audit_logs
type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// ReviewStatistics is the HR dashboard summary: queue sizes now, decisions within the time range
type ReviewStatistics struct {
	Employees            int64         `json:"employees"`
	DocumentsByStatus    []StatusCount `json:"documents_by_status"`
	OnboardingByStatus   []StatusCount `json:"onboarding_by_status"`
	PendingDocumentTypes []TypeCount   `json:"pending_document_types"`
	DecisionsInRange     []ActionCount `json:"decisions_in_range"`
	TimeRangeStartDate   time.Time     `json:"time_range_start_date"`
	TimeRangeEndDate     time.Time     `json:"time_range_end_date"`
}
