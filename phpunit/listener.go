// Package phpunit defines the host-runner domain: the lifecycle
// capability set a PHPUnit binding invokes, and the wire records the
// bootstrap streams to the runtime.
package phpunit

import "context"

// RunListener is the capability set of a PHPUnit test listener. The
// runtime dispatches decoded notifications onto it sequentially; the
// LifecycleAdapter is the production implementation.
//
// Callbacks arrive in runner order and are never invoked concurrently.
// A returned error aborts dispatch.
type RunListener interface {
	// StartTestSuite is invoked when a suite begins, including
	// data-provider pseudo-suites.
	StartTestSuite(ctx context.Context, suite SuiteRef) error
	// EndTestSuite is invoked when a suite ends.
	EndTestSuite(ctx context.Context, suite SuiteRef) error
	// StartTest is invoked before a test method runs.
	StartTest(ctx context.Context, test TestRef) error
	// EndTest is invoked after a test method ran, with the runner-measured
	// duration in seconds.
	EndTest(ctx context.Context, test TestRef, seconds float64) error
	// AddError is invoked when a test raised an unexpected throwable.
	AddError(ctx context.Context, test TestRef, cause *ExceptionInfo) error
	// AddFailure is invoked when an assertion failed.
	AddFailure(ctx context.Context, test TestRef, cause *ExceptionInfo) error
	// AddWarning is invoked when the runner issued a warning for the test.
	AddWarning(ctx context.Context, test TestRef, cause *ExceptionInfo) error
	// AddIncomplete is invoked when a test was marked incomplete.
	AddIncomplete(ctx context.Context, test TestRef, cause *ExceptionInfo) error
	// AddRisky is invoked when the runner considered the test risky.
	AddRisky(ctx context.Context, test TestRef, cause *ExceptionInfo) error
	// AddSkipped is invoked when a test was skipped. May arrive without a
	// preceding StartTest when the skip happens during setup.
	AddSkipped(ctx context.Context, test TestRef, cause *ExceptionInfo) error
}
