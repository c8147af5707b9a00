package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/metrics"
)

// RunReport is the structured JSON report written by --report.
type RunReport struct {
	RunID       string        `json:"run_id"`
	ParentRunID string        `json:"parent_run_id,omitempty"`
	Attempt     int           `json:"attempt"`
	Outcome     OutcomeStatus `json:"outcome"`
	Message     string        `json:"message"`
	ExitCode    int           `json:"exit_code"`
	DurationMs  int64         `json:"duration_ms"`

	Runner        string `json:"runner,omitempty"`
	RunnerVersion string `json:"runner_version,omitempty"`

	Summary     *ReportSummary     `json:"summary,omitempty"`
	Results     *ReportResults     `json:"results"`
	Attachments *ReportAttachments `json:"attachments"`
	Metrics     *metrics.Snapshot  `json:"metrics,omitempty"`
	Notifiers   []NotifierResult   `json:"notifiers,omitempty"`

	Stderr string `json:"stderr,omitempty"`
}

// ReportSummary mirrors the runner's final accounting. The passed count
// is derived: every test lands in exactly one bucket.
type ReportSummary struct {
	Tests       int     `json:"tests"`
	Passed      int     `json:"passed"`
	Failures    int     `json:"failures"`
	Errors      int     `json:"errors"`
	Skipped     int     `json:"skipped"`
	Incomplete  int     `json:"incomplete"`
	Risky       int     `json:"risky"`
	TimeSeconds float64 `json:"time_seconds"`
}

// ReportResults holds report-pipeline stats in the report.
type ReportResults struct {
	EventsFired         int64            `json:"events_fired"`
	EventsIgnored       int64            `json:"events_ignored"`
	EventsByKind        map[string]int64 `json:"events_by_kind,omitempty"`
	SuitesWritten       int64            `json:"suites_written"`
	SuitesAbandoned     int64            `json:"suites_abandoned"`
	CasesRecorded       int64            `json:"cases_recorded"`
	AttachmentsRecorded int64            `json:"attachments_recorded"`
	FlushCount          int64            `json:"flush_count"`
	WriteErrors         int64            `json:"write_errors"`
	DroppedWarnings     int64            `json:"dropped_warnings"`
}

// ReportAttachments holds attachment side-channel stats in the report.
type ReportAttachments struct {
	Total     int64 `json:"total"`
	Committed int64 `json:"committed"`
	Orphaned  int64 `json:"orphaned"`
	Chunks    int64 `json:"chunks"`
	Bytes     int64 `json:"bytes"`
}

// BuildRunReport composes a RunReport from a finished run.
func BuildRunReport(result *RunResult, meta *allure.RunMeta) *RunReport {
	stats := result.LifecycleStats

	eventsByKind := make(map[string]int64, len(stats.EventsByKind))
	for kind, count := range stats.EventsByKind {
		eventsByKind[string(kind)] = count
	}

	report := &RunReport{
		RunID:      meta.RunID,
		Attempt:    meta.Attempt,
		Outcome:    result.Outcome.Status,
		Message:    result.Outcome.Message,
		ExitCode:   result.Outcome.ExitCode,
		DurationMs: result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		Results: &ReportResults{
			EventsFired:         stats.EventsFired,
			EventsIgnored:       stats.EventsIgnored,
			EventsByKind:        eventsByKind,
			SuitesWritten:       stats.SuitesWritten,
			SuitesAbandoned:     stats.SuitesAbandoned,
			CasesRecorded:       stats.CasesRecorded,
			AttachmentsRecorded: stats.AttachmentsRecorded,
			FlushCount:          stats.FlushCount,
			WriteErrors:         stats.Errors,
			DroppedWarnings:     result.DroppedWarnings,
		},
		Attachments: &ReportAttachments{
			Total:     result.AttachmentStats.TotalAttachments,
			Committed: result.AttachmentStats.CommittedAttachments,
			Orphaned:  result.AttachmentStats.OrphanedAttachments,
			Chunks:    result.AttachmentStats.TotalChunks,
			Bytes:     result.AttachmentStats.TotalBytes,
		},
		Metrics:   result.MetricsSnapshot,
		Notifiers: result.NotifierResults,
	}

	if meta.ParentRunID != nil {
		report.ParentRunID = *meta.ParentRunID
	}

	if result.Hello != nil {
		report.Runner = result.Hello.Runner
		report.RunnerVersion = result.Hello.RunnerVersion
	}

	if summary := result.Outcome.Summary; summary != nil {
		passed := summary.Tests - summary.Failures - summary.Errors -
			summary.Skipped - summary.Incomplete - summary.Risky
		if passed < 0 {
			passed = 0
		}
		report.Summary = &ReportSummary{
			Tests:       summary.Tests,
			Passed:      passed,
			Failures:    summary.Failures,
			Errors:      summary.Errors,
			Skipped:     summary.Skipped,
			Incomplete:  summary.Incomplete,
			Risky:       summary.Risky,
			TimeSeconds: summary.TimeSeconds,
		}
	}

	if result.RunnerResult != nil {
		report.Stderr = string(result.RunnerResult.StderrBytes)
	}

	return report
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stderr.Write(data)
		if err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeRunReportTo writes report JSON to any writer (for testing).
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
