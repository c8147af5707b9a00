package runtime

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/lifecycle"
	"github.com/kolsys/allure-phpunit/log"
	"github.com/kolsys/allure-phpunit/notify"
	"github.com/kolsys/allure-phpunit/phpunit"
	"github.com/kolsys/allure-phpunit/results"
)

// fakeRunner serves a pre-encoded frame stream instead of launching php.
type fakeRunner struct {
	frames   io.Reader
	exitCode int
	stderr   []byte
	startErr error
	waitErr  error

	started bool
	killed  bool
	waited  bool
}

func (r *fakeRunner) Start(context.Context) error {
	if r.startErr != nil {
		return r.startErr
	}
	r.started = true
	return nil
}

func (r *fakeRunner) Frames() io.Reader { return r.frames }

func (r *fakeRunner) Wait() (*RunnerResult, error) {
	r.waited = true
	if r.waitErr != nil {
		return nil, r.waitErr
	}
	return &RunnerResult{ExitCode: r.exitCode, StderrBytes: r.stderr}, nil
}

func (r *fakeRunner) Kill() error {
	r.killed = true
	return nil
}

// passingStream is a minimal complete run: one suite, one passing test.
func passingStream(t *testing.T) io.Reader {
	t.Helper()
	return encodeStream(t,
		streamHello(),
		&phpunit.Notification{Type: phpunit.NotificationSuiteStarted, Seq: 1, Suite: &phpunit.SuiteRef{Name: "CartTest"}},
		&phpunit.Notification{Type: phpunit.NotificationTestStarted, Seq: 2, Test: &phpunit.TestRef{Class: "CartTest", Name: "testAdd"}},
		&phpunit.Notification{Type: phpunit.NotificationTestEnded, Seq: 3, Test: &phpunit.TestRef{Class: "CartTest", Name: "testAdd"}, TimeSeconds: 0.1},
		&phpunit.Notification{Type: phpunit.NotificationSuiteFinished, Seq: 4, Suite: &phpunit.SuiteRef{Name: "CartTest"}},
		streamGoodbye(phpunit.RunSummary{Tests: 1, TimeSeconds: 0.1}),
	)
}

// newRunConfig wires a run config around a fake runner with a strict
// lifecycle over a stub store.
func newRunConfig(runner *fakeRunner, store *results.StubStore) *RunConfig {
	return &RunConfig{
		RunMeta: &allure.RunMeta{RunID: "run-orch", Attempt: 1},
		Sink:    lifecycle.NewStrictLifecycle(store, log.NewNop()),
		Store:   store,
		RunnerFactory: func(*RunnerConfig) Runner {
			return runner
		},
		Logger: log.NewNop(),
	}
}

func TestRunOrchestrator_PassingRun(t *testing.T) {
	store := results.NewStubStore()
	runner := &fakeRunner{frames: passingStream(t), exitCode: 0}

	orch, err := NewRunOrchestrator(newRunConfig(runner, store))
	if err != nil {
		t.Fatalf("NewRunOrchestrator() error: %v", err)
	}

	result, err := orch.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.Outcome.Status != OutcomePassed {
		t.Errorf("outcome = %s (%s), want passed", result.Outcome.Status, result.Outcome.Message)
	}
	if result.Outcome.ExitCode != ExitCodePassed {
		t.Errorf("exit code = %d, want %d", result.Outcome.ExitCode, ExitCodePassed)
	}
	if result.RunID != "run-orch" {
		t.Errorf("run id = %q, want run-orch", result.RunID)
	}
	if result.Hello == nil || result.Hello.Runner != "phpunit" {
		t.Errorf("hello = %+v, want the handshake frame", result.Hello)
	}
	if result.RunnerResult == nil || result.RunnerResult.ExitCode != 0 {
		t.Errorf("runner result = %+v, want exit 0", result.RunnerResult)
	}
	if store.Stats().SuitesWritten != 1 {
		t.Errorf("suites written = %d, want 1", store.Stats().SuitesWritten)
	}
	if result.LifecycleStats.CasesRecorded != 1 {
		t.Errorf("cases recorded = %d, want 1", result.LifecycleStats.CasesRecorded)
	}
	if !runner.waited {
		t.Error("runner was never reaped")
	}
	if runner.killed {
		t.Error("runner was killed on a clean run")
	}
	if result.FinishedAt.Before(result.StartedAt) {
		t.Error("finished before started")
	}
}

func TestRunOrchestrator_TestFailures(t *testing.T) {
	cause := &phpunit.ExceptionInfo{Class: "ExpectationFailedException", Message: "nope"}
	stream := encodeStream(t,
		streamHello(),
		&phpunit.Notification{Type: phpunit.NotificationSuiteStarted, Seq: 1, Suite: &phpunit.SuiteRef{Name: "CartTest"}},
		&phpunit.Notification{Type: phpunit.NotificationTestStarted, Seq: 2, Test: &phpunit.TestRef{Class: "CartTest", Name: "testRemove"}},
		&phpunit.Notification{Type: phpunit.NotificationTestFailed, Seq: 3, Test: &phpunit.TestRef{Class: "CartTest", Name: "testRemove"}, Cause: cause},
		&phpunit.Notification{Type: phpunit.NotificationTestEnded, Seq: 4, Test: &phpunit.TestRef{Class: "CartTest", Name: "testRemove"}, TimeSeconds: 0.2},
		&phpunit.Notification{Type: phpunit.NotificationSuiteFinished, Seq: 5, Suite: &phpunit.SuiteRef{Name: "CartTest"}},
		streamGoodbye(phpunit.RunSummary{Tests: 1, Failures: 1, TimeSeconds: 0.2}),
	)

	store := results.NewStubStore()
	runner := &fakeRunner{frames: stream, exitCode: 1}

	orch, err := NewRunOrchestrator(newRunConfig(runner, store))
	if err != nil {
		t.Fatal(err)
	}
	result, err := orch.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.Outcome.Status != OutcomeTestFailures {
		t.Errorf("outcome = %s, want test_failures", result.Outcome.Status)
	}
	if result.Outcome.ExitCode != ExitCodeTestFailures {
		t.Errorf("exit code = %d, want %d", result.Outcome.ExitCode, ExitCodeTestFailures)
	}
	if result.Outcome.Summary == nil || result.Outcome.Summary.Failures != 1 {
		t.Errorf("summary = %+v, want 1 failure", result.Outcome.Summary)
	}
	// Failed suites are still written
	if store.Stats().SuitesWritten != 1 {
		t.Errorf("suites written = %d, want 1", store.Stats().SuitesWritten)
	}
}

func TestRunOrchestrator_MissingGoodbyeIsCrash(t *testing.T) {
	stream := encodeStream(t,
		streamHello(),
		&phpunit.Notification{Type: phpunit.NotificationSuiteStarted, Seq: 1, Suite: &phpunit.SuiteRef{Name: "CartTest"}},
	)

	store := results.NewStubStore()
	runner := &fakeRunner{frames: stream, exitCode: 0}

	orch, err := NewRunOrchestrator(newRunConfig(runner, store))
	if err != nil {
		t.Fatal(err)
	}
	result, err := orch.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.Outcome.Status != OutcomeRunnerCrash {
		t.Errorf("outcome = %s, want runner_crash", result.Outcome.Status)
	}
	if result.Outcome.ExitCode != ExitCodeRunnerCrash {
		t.Errorf("exit code = %d, want %d", result.Outcome.ExitCode, ExitCodeRunnerCrash)
	}
}

func TestRunOrchestrator_ProtocolMismatchKillsRunner(t *testing.T) {
	hello := streamHello()
	hello.ProtocolVersion = "0.0.1"

	store := results.NewStubStore()
	runner := &fakeRunner{frames: encodeStream(t, hello), exitCode: 0}

	orch, err := NewRunOrchestrator(newRunConfig(runner, store))
	if err != nil {
		t.Fatal(err)
	}
	result, err := orch.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.Outcome.Status != OutcomeProtocolMismatch {
		t.Errorf("outcome = %s, want protocol_mismatch", result.Outcome.Status)
	}
	if result.Outcome.ExitCode != ExitCodeProtocolMismatch {
		t.Errorf("exit code = %d, want %d", result.Outcome.ExitCode, ExitCodeProtocolMismatch)
	}
	if !runner.killed {
		t.Error("runner not killed after ingestion failure")
	}
}

func TestRunOrchestrator_LaunchFailure(t *testing.T) {
	store := results.NewStubStore()
	runner := &fakeRunner{startErr: errors.New("php: command not found")}

	orch, err := NewRunOrchestrator(newRunConfig(runner, store))
	if err != nil {
		t.Fatal(err)
	}
	result, err := orch.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.Outcome.Status != OutcomeRunnerCrash {
		t.Errorf("outcome = %s, want runner_crash", result.Outcome.Status)
	}
	if !strings.Contains(result.Outcome.Message, "launch failed") {
		t.Errorf("message = %q, want launch failure", result.Outcome.Message)
	}
	if result.RunnerResult != nil {
		t.Errorf("runner result = %+v, want nil when launch failed", result.RunnerResult)
	}
	if result.Hello != nil {
		t.Errorf("hello = %+v, want nil when launch failed", result.Hello)
	}
}

// flushFailSink fails the terminal flush while accepting everything else.
type flushFailSink struct {
	recordingSink
	flushErr error
}

func (s *flushFailSink) Flush(context.Context) error { return s.flushErr }

func TestRunOrchestrator_FlushFailureEscalates(t *testing.T) {
	store := results.NewStubStore()
	runner := &fakeRunner{frames: passingStream(t), exitCode: 0}

	config := newRunConfig(runner, store)
	config.Sink = &flushFailSink{flushErr: errors.New("disk full")}

	orch, err := NewRunOrchestrator(config)
	if err != nil {
		t.Fatal(err)
	}
	result, err := orch.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.Outcome.Status != OutcomeStoreFailure {
		t.Errorf("outcome = %s, want store_failure", result.Outcome.Status)
	}
	if result.Outcome.ExitCode != ExitCodeStoreFailure {
		t.Errorf("exit code = %d, want %d", result.Outcome.ExitCode, ExitCodeStoreFailure)
	}
	// The goodbye summary survives the escalation
	if result.Outcome.Summary == nil || result.Outcome.Summary.Tests != 1 {
		t.Errorf("summary = %+v, want the goodbye summary", result.Outcome.Summary)
	}
}

func TestRunOrchestrator_FlushFailureDoesNotMaskCrash(t *testing.T) {
	store := results.NewStubStore()
	// Stream without a goodbye: the crash outcome already outranks the
	// flush failure.
	runner := &fakeRunner{frames: encodeStream(t, streamHello()), exitCode: 0}

	config := newRunConfig(runner, store)
	config.Sink = &flushFailSink{flushErr: errors.New("disk full")}

	orch, err := NewRunOrchestrator(config)
	if err != nil {
		t.Fatal(err)
	}
	result, err := orch.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.Outcome.Status != OutcomeRunnerCrash {
		t.Errorf("outcome = %s, want runner_crash", result.Outcome.Status)
	}
}

func TestRunOrchestrator_DroppedWarningsCounted(t *testing.T) {
	stream := encodeStream(t,
		streamHello(),
		&phpunit.Notification{Type: phpunit.NotificationSuiteStarted, Seq: 1, Suite: &phpunit.SuiteRef{Name: "CartTest"}},
		&phpunit.Notification{Type: phpunit.NotificationTestStarted, Seq: 2, Test: &phpunit.TestRef{Class: "CartTest", Name: "testNoisy"}},
		&phpunit.Notification{Type: phpunit.NotificationTestWarning, Seq: 3, Test: &phpunit.TestRef{Class: "CartTest", Name: "testNoisy"}, Cause: &phpunit.ExceptionInfo{Message: "deprecated"}},
		&phpunit.Notification{Type: phpunit.NotificationTestEnded, Seq: 4, Test: &phpunit.TestRef{Class: "CartTest", Name: "testNoisy"}, TimeSeconds: 0.1},
		&phpunit.Notification{Type: phpunit.NotificationSuiteFinished, Seq: 5, Suite: &phpunit.SuiteRef{Name: "CartTest"}},
		streamGoodbye(phpunit.RunSummary{Tests: 1}),
	)

	store := results.NewStubStore()
	runner := &fakeRunner{frames: stream, exitCode: 0}

	orch, err := NewRunOrchestrator(newRunConfig(runner, store))
	if err != nil {
		t.Fatal(err)
	}
	result, err := orch.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.DroppedWarnings != 1 {
		t.Errorf("dropped warnings = %d, want 1", result.DroppedWarnings)
	}
	if result.Outcome.Status != OutcomePassed {
		t.Errorf("outcome = %s, want passed; warnings are not failures", result.Outcome.Status)
	}
}

func TestRunOrchestrator_NotifiersReceiveEvent(t *testing.T) {
	store := results.NewStubStore()
	runner := &fakeRunner{frames: passingStream(t), exitCode: 0}

	notifier := &stubNotifier{name: "webhook"}
	config := newRunConfig(runner, store)
	config.OutputDir = "build/allure-results"
	config.Notifiers = []notify.Adapter{notifier}

	orch, err := NewRunOrchestrator(config)
	if err != nil {
		t.Fatal(err)
	}
	result, err := orch.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if notifier.calls.Load() != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls.Load())
	}
	if len(result.NotifierResults) != 1 {
		t.Fatalf("notifier results = %d, want 1", len(result.NotifierResults))
	}
	nr := result.NotifierResults[0]
	if nr.Name != "webhook" || !nr.Delivered {
		t.Errorf("notifier result = %+v, want delivered webhook", nr)
	}
}

func TestRunOrchestrator_RunnerConfigPlumbing(t *testing.T) {
	store := results.NewStubStore()
	runner := &fakeRunner{frames: passingStream(t), exitCode: 0}

	var captured *RunnerConfig
	config := &RunConfig{
		RunMeta:       &allure.RunMeta{RunID: "run-plumb", Attempt: 1},
		PHPBinary:     "/usr/local/bin/php8.2",
		PHPUnitPath:   "tools/phpunit",
		BootstrapPath: "/tmp/listener.php",
		Args:          []string{"--filter", "Cart"},
		WorkDir:       "/srv/app",
		Env:           []string{"APP_ENV=test"},
		Sink:          lifecycle.NewStrictLifecycle(store, log.NewNop()),
		Store:         store,
		RunnerFactory: func(rc *RunnerConfig) Runner {
			captured = rc
			return runner
		},
		Logger: log.NewNop(),
	}

	orch, err := NewRunOrchestrator(config)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := orch.Execute(t.Context()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if captured == nil {
		t.Fatal("runner factory never invoked")
	}
	if captured.PHPBinary != "/usr/local/bin/php8.2" ||
		captured.PHPUnitPath != "tools/phpunit" ||
		captured.BootstrapPath != "/tmp/listener.php" ||
		captured.WorkDir != "/srv/app" ||
		captured.RunID != "run-plumb" {
		t.Errorf("runner config = %+v, want run config fields plumbed through", captured)
	}
	if len(captured.Args) != 2 || captured.Args[0] != "--filter" {
		t.Errorf("runner args = %v, want [--filter Cart]", captured.Args)
	}
	if len(captured.Env) != 1 || captured.Env[0] != "APP_ENV=test" {
		t.Errorf("runner env = %v, want [APP_ENV=test]", captured.Env)
	}
}

// A harness that ran PHP itself pipes the recorded frame stream in; the
// outcome derives from the stream alone.
func TestRunOrchestrator_StreamRunnerIngestsPipedFrames(t *testing.T) {
	store := results.NewStubStore()
	config := &RunConfig{
		RunMeta: &allure.RunMeta{RunID: "run-piped", Attempt: 1},
		Sink:    lifecycle.NewStrictLifecycle(store, log.NewNop()),
		Store:   store,
		RunnerFactory: func(*RunnerConfig) Runner {
			return NewStreamRunner(passingStream(t))
		},
		Logger: log.NewNop(),
	}

	orch, err := NewRunOrchestrator(config)
	if err != nil {
		t.Fatal(err)
	}
	result, err := orch.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.Outcome.Status != OutcomePassed {
		t.Errorf("outcome = %s (%s), want passed", result.Outcome.Status, result.Outcome.Message)
	}
	if result.RunnerResult == nil || result.RunnerResult.ExitCode != 0 {
		t.Errorf("runner result = %+v, want exit 0 for a piped stream", result.RunnerResult)
	}
	if store.Stats().SuitesWritten != 1 {
		t.Errorf("suites written = %d, want 1", store.Stats().SuitesWritten)
	}
}

func TestRunOrchestrator_StreamRunnerTruncatedStreamIsCrash(t *testing.T) {
	store := results.NewStubStore()
	config := &RunConfig{
		RunMeta: &allure.RunMeta{RunID: "run-piped-trunc", Attempt: 1},
		Sink:    lifecycle.NewStrictLifecycle(store, log.NewNop()),
		Store:   store,
		RunnerFactory: func(*RunnerConfig) Runner {
			return NewStreamRunner(encodeStream(t, streamHello()))
		},
		Logger: log.NewNop(),
	}

	orch, err := NewRunOrchestrator(config)
	if err != nil {
		t.Fatal(err)
	}
	result, err := orch.Execute(t.Context())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if result.Outcome.Status != OutcomeRunnerCrash {
		t.Errorf("outcome = %s, want runner_crash", result.Outcome.Status)
	}
	if !strings.Contains(result.Outcome.Message, "without goodbye frame") {
		t.Errorf("message = %q, want missing-goodbye crash", result.Outcome.Message)
	}
}

func TestRun_OneCallEntryPoint(t *testing.T) {
	store := results.NewStubStore()
	runner := &fakeRunner{frames: passingStream(t), exitCode: 0}

	result, err := Run(t.Context(), newRunConfig(runner, store))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.Outcome.Status != OutcomePassed {
		t.Errorf("outcome = %s (%s), want passed", result.Outcome.Status, result.Outcome.Message)
	}
	if store.Stats().SuitesWritten != 1 {
		t.Errorf("suites written = %d, want 1", store.Stats().SuitesWritten)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(t.Context(), &RunConfig{})
	if err == nil {
		t.Fatal("Run() with an empty config: expected a validation error")
	}
}

func TestNewRunOrchestrator_Validation(t *testing.T) {
	store := results.NewStubStore()
	sink := lifecycle.NewStrictLifecycle(store, log.NewNop())

	tests := []struct {
		name   string
		config *RunConfig
	}{
		{
			name:   "missing run meta",
			config: &RunConfig{Sink: sink, Store: store},
		},
		{
			name: "invalid run meta",
			config: &RunConfig{
				RunMeta: &allure.RunMeta{RunID: "run-x", Attempt: 0},
				Sink:    sink,
				Store:   store,
			},
		},
		{
			name: "missing sink",
			config: &RunConfig{
				RunMeta: &allure.RunMeta{RunID: "run-x", Attempt: 1},
				Store:   store,
			},
		},
		{
			name: "missing store",
			config: &RunConfig{
				RunMeta: &allure.RunMeta{RunID: "run-x", Attempt: 1},
				Sink:    sink,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRunOrchestrator(tt.config); err == nil {
				t.Error("NewRunOrchestrator() = nil error, want validation error")
			}
		})
	}
}

func TestDetermineOutcome(t *testing.T) {
	cleanSummary := phpunit.RunSummary{Tests: 5, TimeSeconds: 1.5}
	failedSummary := phpunit.RunSummary{Tests: 5, Failures: 2, TimeSeconds: 1.5}
	erroredSummary := phpunit.RunSummary{Tests: 5, Errors: 1, TimeSeconds: 1.5}

	protocolErr := &IngestionError{Kind: IngestionErrorProtocol, Err: errors.New("version mismatch")}
	storeErr := &IngestionError{Kind: IngestionErrorStore, Err: errors.New("write failed")}
	streamErr := &IngestionError{Kind: IngestionErrorStream, Err: errors.New("torn frame")}
	cancelErr := &IngestionError{Kind: IngestionErrorCanceled, Err: context.Canceled}

	tests := []struct {
		name       string
		exitCode   int
		goodbye    *phpunit.GoodbyeFrame
		ingestErr  error
		wantStatus OutcomeStatus
		wantExit   int
	}{
		{
			name:       "clean run",
			exitCode:   0,
			goodbye:    streamGoodbye(cleanSummary),
			wantStatus: OutcomePassed,
			wantExit:   ExitCodePassed,
		},
		{
			name:       "failures in summary",
			exitCode:   1,
			goodbye:    streamGoodbye(failedSummary),
			wantStatus: OutcomeTestFailures,
			wantExit:   ExitCodeTestFailures,
		},
		{
			name:       "errors in summary",
			exitCode:   2,
			goodbye:    streamGoodbye(erroredSummary),
			wantStatus: OutcomeTestFailures,
			wantExit:   ExitCodeTestFailures,
		},
		{
			name:       "clean summary outranks nonzero exit",
			exitCode:   1,
			goodbye:    streamGoodbye(cleanSummary),
			wantStatus: OutcomePassed,
			wantExit:   ExitCodePassed,
		},
		{
			name:       "no goodbye with clean exit",
			exitCode:   0,
			wantStatus: OutcomeRunnerCrash,
			wantExit:   ExitCodeRunnerCrash,
		},
		{
			name:       "no goodbye with signal exit",
			exitCode:   139,
			wantStatus: OutcomeRunnerCrash,
			wantExit:   ExitCodeRunnerCrash,
		},
		{
			name:       "protocol error dominates goodbye",
			exitCode:   0,
			goodbye:    streamGoodbye(cleanSummary),
			ingestErr:  protocolErr,
			wantStatus: OutcomeProtocolMismatch,
			wantExit:   ExitCodeProtocolMismatch,
		},
		{
			name:       "store error dominates goodbye",
			exitCode:   0,
			goodbye:    streamGoodbye(cleanSummary),
			ingestErr:  storeErr,
			wantStatus: OutcomeStoreFailure,
			wantExit:   ExitCodeStoreFailure,
		},
		{
			name:       "stream error is a crash",
			exitCode:   0,
			ingestErr:  streamErr,
			wantStatus: OutcomeRunnerCrash,
			wantExit:   ExitCodeRunnerCrash,
		},
		{
			name:       "cancellation is a crash",
			exitCode:   0,
			ingestErr:  cancelErr,
			wantStatus: OutcomeRunnerCrash,
			wantExit:   ExitCodeRunnerCrash,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := DetermineOutcome(tt.exitCode, tt.goodbye, tt.ingestErr)
			if outcome.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", outcome.Status, tt.wantStatus)
			}
			if outcome.ExitCode != tt.wantExit {
				t.Errorf("exit code = %d, want %d", outcome.ExitCode, tt.wantExit)
			}
			if outcome.Message == "" {
				t.Error("outcome message is empty")
			}
		})
	}
}

func TestBuildRunCompletedEvent(t *testing.T) {
	result := newReportRunResult()
	config := &RunConfig{
		RunMeta:   newReportRunMeta(),
		OutputDir: "build/allure-results",
	}

	event := buildRunCompletedEvent(result, config)

	if event.SchemaVersion != notify.SchemaVersion {
		t.Errorf("schema version = %q, want %q", event.SchemaVersion, notify.SchemaVersion)
	}
	if event.EventType != notify.EventTypeRunCompleted {
		t.Errorf("event type = %q, want %q", event.EventType, notify.EventTypeRunCompleted)
	}
	if event.RunID != "run-001" || event.Attempt != 1 {
		t.Errorf("identity = %s/%d, want run-001/1", event.RunID, event.Attempt)
	}
	if event.Outcome != string(OutcomePassed) {
		t.Errorf("outcome = %q, want passed", event.Outcome)
	}
	if event.ResultsDir != "build/allure-results" {
		t.Errorf("results dir = %q", event.ResultsDir)
	}
	if event.Runner != "phpunit" || event.RunnerVersion != "9.6.19" {
		t.Errorf("runner = %s %s, want phpunit 9.6.19", event.Runner, event.RunnerVersion)
	}
	if event.Tests != 40 || event.Failures != 2 || event.Errors != 1 || event.Skipped != 3 {
		t.Errorf("summary counts = %d/%d/%d/%d, want 40/2/1/3",
			event.Tests, event.Failures, event.Errors, event.Skipped)
	}
	if event.SuitesWritten != 3 {
		t.Errorf("suites written = %d, want 3", event.SuitesWritten)
	}
	if event.DurationMs != 5000 {
		t.Errorf("duration = %dms, want 5000", event.DurationMs)
	}
}
