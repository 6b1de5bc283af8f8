package models

import "time"

// ErrorKind tags a FailureRecord.
type ErrorKind string

const (
	ErrorKindBlocked   ErrorKind = "blocked"
	ErrorKindHTTP      ErrorKind = "http_error"
	ErrorKindNetwork   ErrorKind = "network_error"
	ErrorKindParse     ErrorKind = "parse_error"
	ErrorKindException ErrorKind = "exception"
)

// FailureRecord describes one URL that failed all retries during a run.
type FailureRecord struct {
	RaceID       string    `json:"race_id"`
	Course       string    `json:"course"`
	CourseID     string    `json:"course_id"`
	Date         string    `json:"date"`
	Country      string    `json:"country"`
	URL          string    `json:"url"`
	ErrorKind    ErrorKind `json:"error_kind"`
	ErrorType    string    `json:"error_type"`
	ErrorMessage string    `json:"error_message"`
	Status       int       `json:"status,omitempty"`
	Attempts     int       `json:"attempts"`
	Timestamp    time.Time `json:"timestamp"`
}

// IsBlock reports whether the failure was caused by the target's block signal.
func (f FailureRecord) IsBlock() bool {
	return f.ErrorKind == ErrorKindBlocked
}

// FailureLog is the replayable document written when a run has failures.
type FailureLog struct {
	RunID           string          `json:"run_id"`
	ScrapeTimestamp time.Time       `json:"scrape_timestamp"`
	TotalFailures   int             `json:"total_failures"`
	Failures        []FailureRecord `json:"failures"`
}

// URLs returns the failed URLs in log order.
func (l *FailureLog) URLs() []string {
	out := make([]string, 0, len(l.Failures))
	for _, f := range l.Failures {
		out = append(out, f.URL)
	}
	return out
}

// RunMetadata summarizes a completed run. It is built once after the loop ends.
type RunMetadata struct {
	RunID             string    `json:"run_id"`
	ScrapeTimestamp   time.Time `json:"scrape_timestamp"`
	FileName          string    `json:"file_name"`
	Country           string    `json:"country"`
	Discovered        int       `json:"total_races_discovered"`
	Succeeded         int       `json:"successful_races"`
	Void              int       `json:"void_races"`
	Failed            int       `json:"failed_races"`
	Skipped           int       `json:"skipped_races"`
	RowsWritten       int       `json:"rows_written"`
	CompletenessPct   float64   `json:"completeness_pct"`
	BlockErrors       int       `json:"block_errors"`
	LikelyRateLimited bool      `json:"likely_rate_limited"`
	ErrorPattern      string    `json:"error_pattern"`
	Interrupted       bool      `json:"interrupted"`
	DurationSeconds   float64   `json:"duration_seconds"`
}

// RunResult holds the overall result of a scraping run.
type RunResult struct {
	Metadata       RunMetadata
	Failures       []FailureRecord
	MetadataPath   string
	FailureLogPath string
}
