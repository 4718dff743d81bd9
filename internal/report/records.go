// Package report implements the activity/report sink: it collects structured
// records of what every agent did, persists them to a SQLite activity store,
// and renders per-agent and summary reports as human-readable markdown files
// keyed by calendar date, agent name and time of day.
//
// All writes are best-effort by contract: a sink failure must never fail the
// operation that produced the record.
package report

import (
	"time"
)

// Activity is a single recorded agent activity of any type.
type Activity struct {
	ID          string
	AgentName   string
	Type        string
	Description string
	Timestamp   time.Time
	Fields      map[string]any
}

// TaskRecord captures one task execution by an agent.
type TaskRecord struct {
	ID        string
	AgentName string
	Task      string
	TaskType  string
	Success   bool
	Duration  time.Duration
	Result    string
	Timestamp time.Time
}

// ConsultationRecord captures one inter-agent consultation attempt,
// successful or not. Append-only.
type ConsultationRecord struct {
	ID        string
	FromAgent string
	ToAgent   string
	Query     string
	Success   bool
	Duration  time.Duration
	Timestamp time.Time
}

// maxQueryLen truncates stored queries the way the report format expects.
const maxQueryLen = 200

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
