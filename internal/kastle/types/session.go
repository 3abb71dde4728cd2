package types

import (
	"strings"
	"time"
)

// Issue tags attached to discrepant sessions.
const (
	IssueNone             = ""
	IssueDoubleEntry      = "DOUBLE ENTRY (missing EXIT before this ENTRY)"
	IssueNegativeDuration = "NEGATIVE DURATION (timestamps out of order?)"
	IssueDoubleExit       = "DOUBLE EXIT (expected ENTRY between EXITs)"
	IssueExitWithoutEntry = "EXIT WITHOUT ENTRY"
	IssueMissingExit      = "MISSING EXIT"
)

// Session is one reconstructed entry/exit pairing attempt.
//
// At least one of EntryTime/ExitTime is set.  DurationMinutes is set only when
// both are.
type Session struct {
	Key             IdentityKey `json:"identity"`
	EntryReader     string      `json:"entry_reader,omitempty"`
	EntryTime       *time.Time  `json:"entry_time,omitempty"`
	ExitReader      string      `json:"exit_reader,omitempty"`
	ExitTime        *time.Time  `json:"exit_time,omitempty"`
	DurationMinutes *float64    `json:"duration_minutes,omitempty"`
	Issue           string      `json:"issue"`
}

// Discrepant reports whether the session carries an issue tag.
func (s Session) Discrepant() bool {
	return strings.TrimSpace(s.Issue) != ""
}

// Complete reports whether entry, exit and duration are all populated.
func (s Session) Complete() bool {
	return s.EntryTime != nil && s.ExitTime != nil && s.DurationMinutes != nil
}

// DailyDurationSummary totals complete sessions for one identity on one
// calendar date (the date of the entry swipe).
type DailyDurationSummary struct {
	Key          IdentityKey `json:"identity"`
	Date         string      `json:"date"` // YYYY-MM-DD
	TotalMinutes float64     `json:"total_minutes"`
}

// PersonSummary is the per-person office time rollup.
type PersonSummary struct {
	Person               string  `json:"person"`
	DaysInOffice         int     `json:"days_in_office"`
	TotalMinutes         float64 `json:"total_minutes"`
	AverageMinutesPerDay float64 `json:"average_minutes_per_day"`
}
