package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type IntakeSummaryRequest struct {
	Range TimeRange `json:"range"`
}

// IntakeSummary aggregates call dispositions over a time range for the ops
// dashboard: how many calls the automation finished on its own, how many it
// handed to a human, and where confirmations failed.
type IntakeSummary struct {
	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	HandoffCalls   int `json:"handoff_calls"`
	AbandonedCalls int `json:"abandoned_calls"`
	InFlightCalls  int `json:"in_flight_calls"`

	NotificationsSent   int `json:"notifications_sent"`
	NotificationsFailed int `json:"notifications_failed"`

	// UrgencyCounts indexes 1-5; index 0 is unused.
	UrgencyCounts [6]int `json:"urgency_counts"`
	HighUrgencyCalls int `json:"high_urgency_calls"`

	// HandoffRate is handoffs over total calls; 0 when there are no calls.
	HandoffRate float64 `json:"handoff_rate"`
}
