// Package allure defines the report event vocabulary and the Allure 1
// XML result model shared by the adapter, the lifecycle engines, and the
// results store.
package allure

import (
	"errors"
	"fmt"
	"time"
)

// EventKind identifies a report event.
type EventKind string

// Event kind constants. These are the complete vocabulary; the adapter
// never fires anything else.
const (
	EventSuiteStarted  EventKind = "suite_started"
	EventSuiteFinished EventKind = "suite_finished"
	EventTestStarted   EventKind = "test_started"
	EventTestFinished  EventKind = "test_finished"
	EventTestFailed    EventKind = "test_failed"
	EventTestBroken    EventKind = "test_broken"
	EventTestCanceled  EventKind = "test_canceled"
	EventTestPending   EventKind = "test_pending"
)

// IsSuiteEvent returns true for suite-scoped kinds.
func (k EventKind) IsSuiteEvent() bool {
	return k == EventSuiteStarted || k == EventSuiteFinished
}

// IsStatusEvent returns true for kinds that assign a terminal case status.
func (k EventKind) IsStatusEvent() bool {
	switch k {
	case EventTestFailed, EventTestBroken, EventTestCanceled, EventTestPending:
		return true
	default:
		return false
	}
}

// Status returns the case status a status event assigns.
// Returns the empty status for non-status kinds.
func (k EventKind) Status() Status {
	switch k {
	case EventTestFailed:
		return StatusFailed
	case EventTestBroken:
		return StatusBroken
	case EventTestCanceled:
		return StatusCanceled
	case EventTestPending:
		return StatusPending
	default:
		return ""
	}
}

// Event is a single report event fired by the adapter into a lifecycle
// sink. Events are value objects: once fired they are never mutated.
type Event struct {
	// Kind is the event discriminator.
	Kind EventKind
	// SuiteUUID is the correlation token of the suite the event belongs
	// to. Minted at SuiteStarted and repeated on every event until the
	// matching SuiteFinished.
	SuiteUUID string
	// SuiteName is the suite display name. Set on SuiteStarted only.
	SuiteName string
	// TestName is the bare test method name. Set on test-scoped events.
	TestName string
	// Title overrides the display name of the case. Set on TestStarted
	// when a title annotation is present.
	Title string
	// Description is the case description. Set on TestStarted when a
	// description annotation is present.
	Description string
	// Labels are the annotation-derived labels. Set on TestStarted.
	Labels []Label
	// Message is the failure or skip message. Empty for pending cases.
	Message string
	// Trace is the stack trace accompanying a status event.
	Trace string
	// Timestamp is when the event was fired.
	Timestamp time.Time
}

// Validate checks structural invariants common to all events.
func (e *Event) Validate() error {
	if e.Kind == "" {
		return errors.New("event kind must be non-empty")
	}
	if e.SuiteUUID == "" {
		return fmt.Errorf("%s event missing suite uuid", e.Kind)
	}
	if e.Kind == EventSuiteStarted && e.SuiteName == "" {
		return errors.New("suite_started event missing suite name")
	}
	if !e.Kind.IsSuiteEvent() && e.TestName == "" {
		return fmt.Errorf("%s event missing test name", e.Kind)
	}
	return nil
}
