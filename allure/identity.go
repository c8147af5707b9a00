package allure

import (
	"errors"
	"fmt"
)

// RunMeta contains run identity and lineage metadata.
type RunMeta struct {
	// RunID is the canonical run identifier. Must be globally unique.
	RunID string
	// ParentRunID links rerun attempts to their predecessor. Nil for
	// initial runs.
	ParentRunID *string
	// Attempt is the attempt number. Starts at 1 for initial runs.
	Attempt int
}

// Validate validates lineage rules:
//   - attempt >= 1
//   - attempt == 1 => parent_run_id must be nil (initial run)
//   - attempt > 1 => parent_run_id must be present (rerun)
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}

	if r.Attempt < 1 {
		return fmt.Errorf("attempt must be >= 1, got %d", r.Attempt)
	}

	if r.Attempt == 1 && r.ParentRunID != nil {
		return errors.New("initial run (attempt=1) must not have parent_run_id")
	}

	if r.Attempt > 1 && r.ParentRunID == nil {
		return fmt.Errorf("rerun (attempt=%d) must have parent_run_id", r.Attempt)
	}

	return nil
}

// OutcomeStatus represents the final status of a run.
type OutcomeStatus string

const (
	// OutcomePassed indicates every executed test passed.
	OutcomePassed OutcomeStatus = "passed"
	// OutcomeTestFailures indicates the run completed with failed or
	// broken tests. Results are still written.
	OutcomeTestFailures OutcomeStatus = "test_failures"
	// OutcomeRunnerCrash indicates the PHP runner crashed or the stream
	// ended without a terminal frame.
	OutcomeRunnerCrash OutcomeStatus = "runner_crash"
	// OutcomeStoreFailure indicates the results store failed.
	OutcomeStoreFailure OutcomeStatus = "store_failure"
	// OutcomeVersionMismatch indicates a bootstrap/runtime protocol
	// version mismatch.
	OutcomeVersionMismatch OutcomeStatus = "version_mismatch"
)

// RunOutcome represents the final outcome of a run.
type RunOutcome struct {
	// Status is the outcome classification.
	Status OutcomeStatus
	// Message is a human-readable description.
	Message string
	// FailedTests is populated for test_failures outcomes.
	FailedTests int
	// BrokenTests is populated for test_failures outcomes.
	BrokenTests int
}
