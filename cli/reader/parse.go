package reader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// LoadRunReport reads and parses a run report JSON file, as written by
// `run --report`.
func LoadRunReport(path string) (*RunReportView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run report: %w", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("invalid run report %s: %w", path, err)
	}
	return ParseRunReport(record)
}

// ParseRunReport converts a decoded run report (map[string]any) to a view.
// Handles both int64 (direct writes) and float64 (JSON round-trips) for
// numeric fields.
func ParseRunReport(record map[string]any) (*RunReportView, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}

	view := &RunReportView{
		RunID:       toString(record["run_id"]),
		ParentRunID: toString(record["parent_run_id"]),
		Attempt:     toInt64(record["attempt"]),
		Outcome:     toString(record["outcome"]),
		Message:     toString(record["message"]),
		ExitCode:    toInt64(record["exit_code"]),
		DurationMs:  toInt64(record["duration_ms"]),

		Runner:        toString(record["runner"]),
		RunnerVersion: toString(record["runner_version"]),
	}

	if summary := toMap(record["summary"]); summary != nil {
		view.Tests = toInt64(summary["tests"])
		view.Passed = toInt64(summary["passed"])
		view.Failures = toInt64(summary["failures"])
		view.Errors = toInt64(summary["errors"])
		view.Skipped = toInt64(summary["skipped"])
		view.Incomplete = toInt64(summary["incomplete"])
		view.Risky = toInt64(summary["risky"])
	}

	if results := toMap(record["results"]); results != nil {
		view.SuitesWritten = toInt64(results["suites_written"])
		view.CasesRecorded = toInt64(results["cases_recorded"])
		view.DroppedWarnings = toInt64(results["dropped_warnings"])
	}

	if notifiers, ok := record["notifiers"].([]any); ok {
		view.Notifiers = parseNotifiers(notifiers)
	}

	// The write path always populates these; missing values indicate a
	// truncated or malformed report.
	if view.RunID == "" {
		return nil, errors.New("run report missing required field: run_id")
	}
	if view.Outcome == "" {
		return nil, errors.New("run report missing required field: outcome")
	}

	return view, nil
}

// toInt64 converts a value to int64, handling float64 from JSON and int64
// from direct writes.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toBool converts a value to bool, returning false for nil/non-bool.
func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

// toMap converts a nested value to map[string]any, returning nil otherwise.
func toMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

// parseNotifiers converts the notifiers array from report format.
func parseNotifiers(items []any) []NotifierRow {
	rows := make([]NotifierRow, 0, len(items))
	for _, item := range items {
		m := toMap(item)
		if m == nil {
			continue
		}
		rows = append(rows, NotifierRow{
			Name:       toString(m["name"]),
			Delivered:  toBool(m["delivered"]),
			Error:      toString(m["error"]),
			DurationMs: toInt64(m["duration_ms"]),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return rows
}
