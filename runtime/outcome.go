package runtime

import (
	"fmt"

	"github.com/kolsys/allure-phpunit/phpunit"
)

// Process exit codes.
const (
	// ExitCodePassed means all tests passed and results were written.
	ExitCodePassed = 0
	// ExitCodeTestFailures means the run completed with failed or broken tests.
	ExitCodeTestFailures = 1
	// ExitCodeRunnerCrash means the runner died without a goodbye frame or
	// broke the stream.
	ExitCodeRunnerCrash = 2
	// ExitCodeStoreFailure means the results store or sink failed.
	ExitCodeStoreFailure = 3
	// ExitCodeProtocolMismatch means the bootstrap spoke an unsupported
	// protocol version.
	ExitCodeProtocolMismatch = 4
)

// OutcomeStatus labels the run outcome.
type OutcomeStatus string

// Outcome status values.
const (
	OutcomePassed           OutcomeStatus = "passed"
	OutcomeTestFailures     OutcomeStatus = "test_failures"
	OutcomeRunnerCrash      OutcomeStatus = "runner_crash"
	OutcomeStoreFailure     OutcomeStatus = "store_failure"
	OutcomeProtocolMismatch OutcomeStatus = "protocol_mismatch"
)

// Outcome is the reconciled result of a run.
type Outcome struct {
	Status   OutcomeStatus       `json:"status"`
	ExitCode int                 `json:"exit_code"`
	Message  string              `json:"message"`
	Summary  *phpunit.RunSummary `json:"summary,omitempty"`
}

// DetermineOutcome reconciles the run outcome from the PHP exit code, the
// goodbye frame, and any ingestion error.
//
// Ingestion errors dominate: a protocol mismatch, store failure, or
// stream error decides the outcome regardless of how the process exited.
// Otherwise the goodbye summary is authoritative for the test outcome; a
// missing goodbye is a runner crash whatever the exit code.
func DetermineOutcome(phpExitCode int, goodbye *phpunit.GoodbyeFrame, ingestErr error) *Outcome {
	switch {
	case IsProtocolError(ingestErr):
		return &Outcome{
			Status:   OutcomeProtocolMismatch,
			ExitCode: ExitCodeProtocolMismatch,
			Message:  ingestErr.Error(),
		}
	case IsStoreError(ingestErr):
		return &Outcome{
			Status:   OutcomeStoreFailure,
			ExitCode: ExitCodeStoreFailure,
			Message:  ingestErr.Error(),
		}
	case IsStreamError(ingestErr), IsCanceledError(ingestErr):
		return &Outcome{
			Status:   OutcomeRunnerCrash,
			ExitCode: ExitCodeRunnerCrash,
			Message:  ingestErr.Error(),
		}
	case ingestErr != nil:
		return &Outcome{
			Status:   OutcomeRunnerCrash,
			ExitCode: ExitCodeRunnerCrash,
			Message:  fmt.Sprintf("ingestion failed: %v", ingestErr),
		}
	}

	if goodbye == nil {
		if phpExitCode == 0 {
			return &Outcome{
				Status:   OutcomeRunnerCrash,
				ExitCode: ExitCodeRunnerCrash,
				Message:  "runner exited cleanly without goodbye frame",
			}
		}
		return &Outcome{
			Status:   OutcomeRunnerCrash,
			ExitCode: ExitCodeRunnerCrash,
			Message:  fmt.Sprintf("runner exited with code %d without goodbye frame", phpExitCode),
		}
	}

	summary := goodbye.Summary
	if summary.Failures > 0 || summary.Errors > 0 {
		return &Outcome{
			Status:   OutcomeTestFailures,
			ExitCode: ExitCodeTestFailures,
			Message:  fmt.Sprintf("completed with %d failures, %d errors", summary.Failures, summary.Errors),
			Summary:  &summary,
		}
	}

	message := fmt.Sprintf("completed: %d tests passed", summary.Tests)
	if phpExitCode != 0 {
		// PHPUnit exits nonzero for warning-only verdicts the summary does
		// not count; the summary stays authoritative
		message = fmt.Sprintf("completed: %d tests, runner exit code %d with clean summary", summary.Tests, phpExitCode)
	}
	return &Outcome{
		Status:   OutcomePassed,
		ExitCode: ExitCodePassed,
		Message:  message,
		Summary:  &summary,
	}
}
