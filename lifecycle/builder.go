package lifecycle

import (
	"fmt"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/log"
)

// suiteBuilder assembles the Allure suite model from the ordered event
// stream. One suite is open at a time; within it, one case. Status events
// set the open case's status with first-terminal-wins semantics; a case
// closed without a status is passed.
//
// The builder is not safe for concurrent use. The owning engine guards it
// with its mu and shares that lock with the stats recorder.
type suiteBuilder struct {
	logger *log.Logger
	rec    *statsRecorder

	suite     *allure.TestSuite
	current   allure.TestCase
	caseOpen  bool
	statusSet bool
}

func newSuiteBuilder(logger *log.Logger, rec *statsRecorder) *suiteBuilder {
	if logger == nil {
		logger = log.NewNop()
	}
	return &suiteBuilder{logger: logger, rec: rec}
}

// apply folds one event into the suite state. Returns the completed suite
// when the event closes one (SuiteFinished), else nil.
func (b *suiteBuilder) apply(ev *allure.Event) (*allure.TestSuite, error) {
	switch ev.Kind {
	case allure.EventSuiteStarted:
		b.openSuite(ev)
		return nil, nil

	case allure.EventSuiteFinished:
		return b.closeSuite(ev), nil

	case allure.EventTestStarted:
		b.openCase(ev)
		return nil, nil

	case allure.EventTestFinished:
		b.closeCase(ev)
		return nil, nil

	default:
		if !ev.Kind.IsStatusEvent() {
			return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
		}
		b.setStatus(ev)
		return nil, nil
	}
}

func (b *suiteBuilder) openSuite(ev *allure.Event) {
	if b.suite != nil {
		// The previous suite never finished; its cases are lost.
		b.rec.incSuitesAbandonedLocked()
		b.logger.Warn("abandoning unfinished suite", map[string]any{
			"suite_uuid": b.suite.UUID,
			"suite":      b.suite.Name,
			"cases":      len(b.suite.TestCases),
		})
	}
	b.suite = allure.NewTestSuite(ev.SuiteUUID, ev.SuiteName, ev.Timestamp)
	b.suite.Title = ev.Title
	if ev.Description != "" {
		b.suite.Description = &allure.Description{Type: "text", Value: ev.Description}
	}
	if len(ev.Labels) > 0 {
		b.suite.Labels = append([]allure.Label(nil), ev.Labels...)
	}
	b.caseOpen = false
	b.statusSet = false
}

func (b *suiteBuilder) closeSuite(ev *allure.Event) *allure.TestSuite {
	if b.suite == nil {
		b.ignore(ev, "no open suite")
		return nil
	}
	if ev.SuiteUUID != "" && ev.SuiteUUID != b.suite.UUID {
		b.ignore(ev, "stale suite uuid")
		return nil
	}
	if b.caseOpen {
		// Runner closed the suite around an unfinished case
		b.logger.Warn("closing case left open at suite end", map[string]any{
			"suite": b.suite.Name,
			"test":  b.current.Name,
		})
		b.closeCase(ev)
	}

	suite := b.suite
	suite.Stop = allure.TimestampMS(ev.Timestamp)
	b.suite = nil
	return suite
}

func (b *suiteBuilder) openCase(ev *allure.Event) {
	if b.suite == nil {
		b.ignore(ev, "no open suite")
		return
	}
	if b.caseOpen {
		b.logger.Warn("closing case left open at next start", map[string]any{
			"suite": b.suite.Name,
			"test":  b.current.Name,
		})
		b.closeCase(ev)
	}

	b.current = allure.TestCase{
		Start: allure.TimestampMS(ev.Timestamp),
		Name:  ev.TestName,
		Title: ev.Title,
	}
	if ev.Description != "" {
		b.current.Description = &allure.Description{Type: "text", Value: ev.Description}
	}
	if len(ev.Labels) > 0 {
		b.current.Labels = append([]allure.Label(nil), ev.Labels...)
	}
	b.caseOpen = true
	b.statusSet = false
}

func (b *suiteBuilder) closeCase(ev *allure.Event) {
	if !b.caseOpen {
		b.ignore(ev, "no open case")
		return
	}
	if !b.statusSet {
		b.current.Status = allure.StatusPassed
	}
	b.current.Stop = allure.TimestampMS(ev.Timestamp)
	b.suite.TestCases = append(b.suite.TestCases, b.current)
	b.rec.incCasesRecordedLocked(1)
	b.caseOpen = false
	b.statusSet = false
}

func (b *suiteBuilder) setStatus(ev *allure.Event) {
	if !b.caseOpen {
		b.ignore(ev, "no open case")
		return
	}
	if b.statusSet {
		// First terminal status wins
		b.ignore(ev, "status already set")
		return
	}
	b.current.Status = ev.Kind.Status()
	if ev.Message != "" || ev.Trace != "" {
		b.current.Failure = &allure.Failure{
			Message:    ev.Message,
			StackTrace: ev.Trace,
		}
	}
	b.statusSet = true
}

// attach routes an attachment reference to the open case.
// Returns false when no case is open.
func (b *suiteBuilder) attach(att allure.Attachment) bool {
	if !b.caseOpen {
		return false
	}
	b.current.Attachments = append(b.current.Attachments, att)
	return true
}

// hasOpenSuite reports whether a suite started and has not finished.
func (b *suiteBuilder) hasOpenSuite() bool {
	return b.suite != nil
}

// abandonOpenSuite discards an unfinished suite at engine close.
func (b *suiteBuilder) abandonOpenSuite() {
	if b.suite == nil {
		return
	}
	b.rec.incSuitesAbandonedLocked()
	b.logger.Warn("abandoning unfinished suite at close", map[string]any{
		"suite_uuid": b.suite.UUID,
		"suite":      b.suite.Name,
		"cases":      len(b.suite.TestCases),
	})
	b.suite = nil
	b.caseOpen = false
	b.statusSet = false
}

func (b *suiteBuilder) ignore(ev *allure.Event, reason string) {
	b.rec.incEventsIgnoredLocked()
	b.logger.Debug("ignoring event", map[string]any{
		"kind":   string(ev.Kind),
		"reason": reason,
		"test":   ev.TestName,
	})
}
