package domain

import "time"

// ScheduleEntry is the durable definition of a recurring keyword scrape.
// The id doubles as the live trigger identifier, which is what makes
// re-registration replace instead of duplicate.
type ScheduleEntry struct {
	ID         string    `json:"id"`
	Keyword    string    `json:"keyword"`
	Hour       int       `json:"hour"`
	Minute     int       `json:"minute"`
	DaysOfWeek []string  `json:"days_of_week,omitempty"` // empty means every day
	Frequency  string    `json:"frequency_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunStatus is the terminal state of a single pipeline run.
type RunStatus string

const (
	RunSuccess   RunStatus = "success"
	RunFailure   RunStatus = "failure"
	RunNoResults RunStatus = "no_results"
	RunError     RunStatus = "error"
)

// ExecutionLogEntry records one scheduled pipeline run.
type ExecutionLogEntry struct {
	ScheduleID   string    `json:"schedule_id"`
	Keyword      string    `json:"keyword"`
	Status       RunStatus `json:"status"`
	Detail       string    `json:"detail,omitempty"`
	ReferenceURL string    `json:"reference_url,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
