package types

import (
	"slices"
	"time"
)

// FileInput is one uploaded payload.
type FileInput struct {
	Name string
	Data []byte
}

// SkippedFile names a file excluded from a batch and why.
type SkippedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// FileResult is the outcome of normalizing and reconciling one file.  Err is
// non-nil when the file was skipped.
type FileResult struct {
	Filename    string    `json:"filename"`
	Events      int       `json:"events"`
	DroppedRows int       `json:"dropped_rows"`
	SkipReason  string    `json:"skip_reason,omitempty"`
	Sessions    []Session `json:"-"`
	Err         error     `json:"-"`
}

// BatchReport is what the assembler and the API consume.
type BatchReport struct {
	RunID          string                 `json:"run_id"`
	CreatedAt      time.Time              `json:"created_at"`
	OutputName     string                 `json:"output_name"`
	Files          []FileResult           `json:"files"`
	Skipped        []SkippedFile          `json:"skipped_files"`
	Sessions       []Session              `json:"sessions"`
	Discrepancies  []Session              `json:"discrepancies"`
	DailySummaries []DailyDurationSummary `json:"daily_summaries"`
	People         []PersonSummary        `json:"people"`
}

// SessionsByPerson partitions sessions by person, preserving order within
// each person.  The returned names are sorted.
func (r *BatchReport) SessionsByPerson() ([]string, map[string][]Session) {
	out := make(map[string][]Session)
	var names []string
	for _, s := range r.Sessions {
		if _, ok := out[s.Key.Person]; !ok {
			names = append(names, s.Key.Person)
		}
		out[s.Key.Person] = append(out[s.Key.Person], s)
	}
	slices.Sort(names)
	return names, out
}
