package types

type PingResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON error envelope.  SkippedFiles lists bare
// filenames; Skipped carries the reason for each.
type ErrorResponse struct {
	Error        string        `json:"error"`
	Message      string        `json:"message,omitempty"`
	SkippedFiles []string      `json:"skipped_files,omitempty"`
	Skipped      []SkippedFile `json:"skipped,omitempty"`
}

type RunResponse struct {
	ID               string        `json:"id"`
	CreatedAt        string        `json:"created_at"`
	OutputName       string        `json:"output_name"`
	FilesTotal       int           `json:"files_total"`
	FilesSkipped     int           `json:"files_skipped"`
	SessionCount     int           `json:"session_count"`
	DiscrepancyCount int           `json:"discrepancy_count"`
	SkippedFiles     []SkippedFile `json:"skipped_files,omitempty"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}
