// Package reader provides the read-side data access layer for the CLI.
//
// This package isolates read-only commands from runtime internals: list,
// inspect, and stats commands consume these view types exclusively, and
// the render and tui packages format them for output.
package reader

// SuiteRow is a thin suite listing entry.
type SuiteRow struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	Cases      int    `json:"cases"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	Broken     int    `json:"broken"`
	Canceled   int    `json:"canceled"`
	Pending    int    `json:"pending"`
	DurationMs int64  `json:"duration_ms"`
}

// TestRow is a thin test listing entry.
type TestRow struct {
	Suite      string `json:"suite"`
	SuiteUUID  string `json:"suite_uuid"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
}

// LabelPair is a rendered label.
type LabelPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AttachmentRow is a rendered attachment reference.
type AttachmentRow struct {
	Title     string `json:"title"`
	Source    string `json:"source"`
	MediaType string `json:"media_type"`
}

// SuiteDetail is the full view of one suite report file.
type SuiteDetail struct {
	UUID       string      `json:"uuid"`
	Name       string      `json:"name"`
	Title      string      `json:"title,omitempty"`
	StartMS    int64       `json:"start_ms"`
	StopMS     int64       `json:"stop_ms"`
	DurationMs int64       `json:"duration_ms"`
	Labels     []LabelPair `json:"labels,omitempty"`
	Tests      []TestRow   `json:"tests"`
}

// TestDetail is the full view of one executed test.
type TestDetail struct {
	Suite       string          `json:"suite"`
	SuiteUUID   string          `json:"suite_uuid"`
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Status      string          `json:"status"`
	StartMS     int64           `json:"start_ms"`
	StopMS      int64           `json:"stop_ms"`
	DurationMs  int64           `json:"duration_ms"`
	Description string          `json:"description,omitempty"`
	Message     string          `json:"message,omitempty"`
	Trace       string          `json:"trace,omitempty"`
	Labels      []LabelPair     `json:"labels,omitempty"`
	Attachments []AttachmentRow `json:"attachments,omitempty"`
}

// StatsResponse aggregates a results directory.
type StatsResponse struct {
	Dir         string `json:"dir"`
	Suites      int    `json:"suites"`
	Cases       int    `json:"cases"`
	Passed      int    `json:"passed"`
	Failed      int    `json:"failed"`
	Broken      int    `json:"broken"`
	Canceled    int    `json:"canceled"`
	Pending     int    `json:"pending"`
	Attachments int    `json:"attachments"`
	DurationMs  int64  `json:"duration_ms"`
}

// RunReportView is the parsed view of a --report JSON file.
type RunReportView struct {
	RunID       string `json:"run_id"`
	ParentRunID string `json:"parent_run_id,omitempty"`
	Attempt     int64  `json:"attempt"`
	Outcome     string `json:"outcome"`
	Message     string `json:"message,omitempty"`
	ExitCode    int64  `json:"exit_code"`
	DurationMs  int64  `json:"duration_ms"`

	Runner        string `json:"runner,omitempty"`
	RunnerVersion string `json:"runner_version,omitempty"`

	Tests      int64 `json:"tests"`
	Passed     int64 `json:"passed"`
	Failures   int64 `json:"failures"`
	Errors     int64 `json:"errors"`
	Skipped    int64 `json:"skipped"`
	Incomplete int64 `json:"incomplete"`
	Risky      int64 `json:"risky"`

	SuitesWritten   int64 `json:"suites_written"`
	CasesRecorded   int64 `json:"cases_recorded"`
	DroppedWarnings int64 `json:"dropped_warnings"`

	Notifiers []NotifierRow `json:"notifiers,omitempty"`
}

// NotifierRow is a per-notifier delivery record from a run report.
type NotifierRow struct {
	Name       string `json:"name"`
	Delivered  bool   `json:"delivered"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}
