// Package adapter translates PHPUnit run listener callbacks into report
// events fired at a lifecycle engine.
//
// The adapter is the production RunListener implementation: one callback
// in, at most a handful of events out, in callback order. It owns the
// active suite correlation token and the active test name; everything
// else (suite assembly, persistence) happens downstream.
package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/annotations"
	"github.com/kolsys/allure-phpunit/lifecycle"
	"github.com/kolsys/allure-phpunit/log"
	"github.com/kolsys/allure-phpunit/phpunit"
)

// now is the event clock. Swapped in tests.
var now = time.Now

// Config carries adapter construction parameters.
type Config struct {
	// ExtraIgnoredAnnotations merges with the built-in ignore set.
	ExtraIgnoredAnnotations []string
	// Logger is optional; nil disables adapter logging.
	Logger *log.Logger
}

// SuiteContext identifies the suite currently being reported: the display
// name and the correlation token minted at suite start. The zero value
// means no suite is active.
type SuiteContext struct {
	UUID string
	Name string
}

// Active reports whether a suite is currently open.
func (c SuiteContext) Active() bool { return c.UUID != "" }

// LifecycleAdapter implements phpunit.RunListener by translating each
// callback into typed report events.
//
// Not safe for concurrent use: the host runner invokes callbacks
// sequentially, and the adapter's suite/test state assumes that. All
// state mutation happens on the callback path (single writer).
type LifecycleAdapter struct {
	sink     lifecycle.Lifecycle
	resolver annotations.Resolver
	filter   *annotations.Filter
	logger   *log.Logger

	suite      SuiteContext
	activeTest string

	droppedWarnings int64
}

// New creates an adapter firing into the given sink.
// The resolver may be nil when no annotation metadata is available.
func New(sink lifecycle.Lifecycle, resolver annotations.Resolver, config Config) *LifecycleAdapter {
	logger := config.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &LifecycleAdapter{
		sink:     sink,
		resolver: resolver,
		filter:   annotations.NewFilter(config.ExtraIgnoredAnnotations...),
		logger:   logger,
	}
}

// ActiveSuite returns the current suite context. Zero when none is open.
func (a *LifecycleAdapter) ActiveSuite() SuiteContext { return a.suite }

// ActiveTest returns the bare method name of the running test, or empty.
func (a *LifecycleAdapter) ActiveTest() string { return a.activeTest }

// DroppedWarnings returns the count of warning notifications dropped.
// Warnings have no report event kind; the drop is deliberate.
func (a *LifecycleAdapter) DroppedWarnings() int64 { return a.droppedWarnings }

// isPseudoSuite reports whether the suite is a runner-internal grouping
// that must not appear in the report: data-provider containers carry the
// "Class::method" form, and the runner's unnamed root container is empty.
func isPseudoSuite(name string) bool {
	return name == "" || strings.Contains(name, "::")
}

// StartTestSuite mints a correlation token for real suites and fires
// SuiteStarted enriched with class-level annotation metadata.
// Pseudo-suites produce no events and leave the context untouched.
func (a *LifecycleAdapter) StartTestSuite(ctx context.Context, suite phpunit.SuiteRef) error {
	if isPseudoSuite(suite.Name) {
		a.logger.Debug("skipping pseudo-suite start", map[string]any{"suite": suite.Name})
		return nil
	}

	meta := annotations.MapToSuiteMeta(a.classAnnotations(suite.Name))
	ev := &allure.Event{
		Kind:        allure.EventSuiteStarted,
		SuiteUUID:   uuid.NewString(),
		SuiteName:   suite.Name,
		Title:       meta.Title,
		Description: meta.Description,
		Labels:      meta.Labels,
		Timestamp:   now(),
	}
	if err := a.sink.Fire(ctx, ev); err != nil {
		return err
	}

	a.suite = SuiteContext{UUID: ev.SuiteUUID, Name: suite.Name}
	a.activeTest = ""
	return nil
}

// EndTestSuite fires SuiteFinished for the active suite and clears the
// context. Pseudo-suites and unmatched ends produce no events.
func (a *LifecycleAdapter) EndTestSuite(ctx context.Context, suite phpunit.SuiteRef) error {
	if isPseudoSuite(suite.Name) {
		return nil
	}
	if !a.suite.Active() {
		a.logger.Debug("suite end without active suite", map[string]any{"suite": suite.Name})
		return nil
	}
	if suite.Name != a.suite.Name {
		a.logger.Debug("suite end does not match active suite", map[string]any{
			"suite":  suite.Name,
			"active": a.suite.Name,
		})
		return nil
	}

	ev := &allure.Event{
		Kind:      allure.EventSuiteFinished,
		SuiteUUID: a.suite.UUID,
		Timestamp: now(),
	}
	if err := a.sink.Fire(ctx, ev); err != nil {
		return err
	}

	a.suite = SuiteContext{}
	a.activeTest = ""
	return nil
}

// StartTest records the active test name and fires TestStarted enriched
// with class- and method-level annotation metadata. Method-level title
// and description win over class-level.
func (a *LifecycleAdapter) StartTest(ctx context.Context, test phpunit.TestRef) error {
	if test.Name == "" {
		return nil
	}
	if !a.suite.Active() {
		a.logger.Warn("test started outside a suite", map[string]any{"test": test.Name})
		return nil
	}

	anns := a.classAnnotations(test.Class)
	anns = append(anns, a.methodAnnotations(test.Class, test.Name)...)
	meta := annotations.MapToMeta(anns)

	ev := &allure.Event{
		Kind:        allure.EventTestStarted,
		SuiteUUID:   a.suite.UUID,
		TestName:    caseName(test),
		Title:       meta.Title,
		Description: meta.Description,
		Labels:      meta.Labels,
		Timestamp:   now(),
	}
	if err := a.sink.Fire(ctx, ev); err != nil {
		return err
	}

	a.activeTest = test.Name
	return nil
}

// EndTest fires TestFinished and clears the active test name.
// The runner-measured duration is not used; event timestamps come from
// the adapter's clock at emission.
func (a *LifecycleAdapter) EndTest(ctx context.Context, test phpunit.TestRef, _ float64) error {
	if test.Name == "" {
		return nil
	}
	if !a.suite.Active() {
		a.logger.Debug("test end without active suite", map[string]any{"test": test.Name})
		return nil
	}

	ev := &allure.Event{
		Kind:      allure.EventTestFinished,
		SuiteUUID: a.suite.UUID,
		TestName:  caseName(test),
		Timestamp: now(),
	}
	if err := a.sink.Fire(ctx, ev); err != nil {
		return err
	}

	a.activeTest = ""
	return nil
}

// AddError fires TestBroken: the test raised an unexpected throwable
// rather than failing an assertion.
func (a *LifecycleAdapter) AddError(ctx context.Context, test phpunit.TestRef, cause *phpunit.ExceptionInfo) error {
	return a.fireStatus(ctx, test, allure.EventTestBroken, causeMessage(cause), causeTrace(cause))
}

// AddFailure fires TestFailed. A comparison diff, when present, is
// appended directly after the failure message with no separator.
func (a *LifecycleAdapter) AddFailure(ctx context.Context, test phpunit.TestRef, cause *phpunit.ExceptionInfo) error {
	message := causeMessage(cause)
	if cause != nil && cause.Comparison != nil {
		message += cause.Comparison.Diff
	}
	return a.fireStatus(ctx, test, allure.EventTestFailed, message, causeTrace(cause))
}

// AddWarning drops the notification: warnings have no report event kind.
func (a *LifecycleAdapter) AddWarning(_ context.Context, test phpunit.TestRef, cause *phpunit.ExceptionInfo) error {
	a.droppedWarnings++
	a.logger.Debug("dropping warning", map[string]any{
		"test":    test.Name,
		"message": causeMessage(cause),
	})
	return nil
}

// AddIncomplete fires TestPending with the trace only. The message is
// not attached: an acknowledged incomplete is not a failure.
func (a *LifecycleAdapter) AddIncomplete(ctx context.Context, test phpunit.TestRef, cause *phpunit.ExceptionInfo) error {
	return a.fireStatus(ctx, test, allure.EventTestPending, "", causeTrace(cause))
}

// AddRisky is handled exactly like an incomplete test.
func (a *LifecycleAdapter) AddRisky(ctx context.Context, test phpunit.TestRef, cause *phpunit.ExceptionInfo) error {
	return a.AddIncomplete(ctx, test, cause)
}

// AddSkipped fires TestCanceled. A skip may arrive without a preceding
// StartTest (skip decided during setup); in that case the adapter
// synthesizes the start and end brackets so every terminal event has a
// matching start in the stream.
func (a *LifecycleAdapter) AddSkipped(ctx context.Context, test phpunit.TestRef, cause *phpunit.ExceptionInfo) error {
	if test.Name == "" {
		return nil
	}
	if !a.suite.Active() {
		a.logger.Warn("test skipped outside a suite", map[string]any{"test": test.Name})
		return nil
	}

	if test.Name == a.activeTest {
		// The real start already happened; the host still delivers EndTest
		return a.fireStatus(ctx, test, allure.EventTestCanceled, causeMessage(cause), causeTrace(cause))
	}

	if err := a.StartTest(ctx, test); err != nil {
		return err
	}
	if err := a.fireStatus(ctx, test, allure.EventTestCanceled, causeMessage(cause), causeTrace(cause)); err != nil {
		return err
	}
	return a.EndTest(ctx, test, 0)
}

// fireStatus emits a terminal status event for the test.
func (a *LifecycleAdapter) fireStatus(ctx context.Context, test phpunit.TestRef, kind allure.EventKind, message, trace string) error {
	if test.Name == "" {
		return nil
	}
	if !a.suite.Active() {
		a.logger.Debug("status without active suite", map[string]any{
			"test": test.Name,
			"kind": string(kind),
		})
		return nil
	}

	ev := &allure.Event{
		Kind:      kind,
		SuiteUUID: a.suite.UUID,
		TestName:  caseName(test),
		Message:   message,
		Trace:     trace,
		Timestamp: now(),
	}
	return a.sink.Fire(ctx, ev)
}

// caseName renders the report display name, folding in the data-provider
// dataset label when present.
func caseName(test phpunit.TestRef) string {
	if test.DataSet == "" {
		return test.Name
	}
	return test.Name + " with data set " + test.DataSet
}

func (a *LifecycleAdapter) classAnnotations(class string) []annotations.Annotation {
	if a.resolver == nil || class == "" {
		return nil
	}
	return a.filter.Apply(a.resolver.ForClass(class))
}

func (a *LifecycleAdapter) methodAnnotations(class, method string) []annotations.Annotation {
	if a.resolver == nil || class == "" {
		return nil
	}
	return a.filter.Apply(a.resolver.ForMethod(class, method))
}

func causeMessage(cause *phpunit.ExceptionInfo) string {
	if cause == nil {
		return ""
	}
	return cause.Message
}

func causeTrace(cause *phpunit.ExceptionInfo) string {
	if cause == nil {
		return ""
	}
	return cause.Trace
}

// Verify LifecycleAdapter implements the listener capability set.
var _ phpunit.RunListener = (*LifecycleAdapter)(nil)
