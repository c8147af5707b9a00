// Package notify publishes run completion notices to downstream systems.
//
// Notifiers are fire-and-forget from the run's point of view: delivery
// failures are logged and counted but never alter the run outcome.
package notify

import (
	"context"
	"fmt"
)

// SchemaVersion identifies the run_completed payload shape.
const SchemaVersion = "1"

// EventTypeRunCompleted is the event_type value for run completion notices.
const EventTypeRunCompleted = "run_completed"

// RunCompletedEvent is the payload published when a run finishes.
type RunCompletedEvent struct {
	SchemaVersion string `json:"schema_version"`
	EventType     string `json:"event_type"` // always "run_completed"
	RunID         string `json:"run_id"`
	Attempt       int    `json:"attempt"`
	Runner        string `json:"runner,omitempty"`
	RunnerVersion string `json:"runner_version,omitempty"`
	Outcome       string `json:"outcome"` // passed, test_failures, runner_crash, ...
	ExitCode      int    `json:"exit_code"`
	ResultsDir    string `json:"results_dir,omitempty"`
	Timestamp     string `json:"timestamp"` // ISO 8601
	Tests         int64  `json:"tests"`
	Failures      int64  `json:"failures"`
	Errors        int64  `json:"errors"`
	Skipped       int64  `json:"skipped"`
	SuitesWritten int64  `json:"suites_written"`
	DurationMs    int64  `json:"duration_ms"`
}

// Adapter publishes run completion events to a downstream system.
// Implementations must be safe for single-use per run.
type Adapter interface {
	// Name identifies the notifier in logs and run reports.
	Name() string

	// Publish sends a run completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *RunCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// StatusError is returned for non-2xx HTTP responses.
// Wrapping the status code allows callers to distinguish retriable (5xx)
// from non-retriable (4xx) failures.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}
