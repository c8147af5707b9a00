// Package runtime implements run orchestration: it launches the PHP
// runner with the listener bundle prepended, ingests the frame stream,
// drives the report lifecycle, and reconciles the outcome.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kolsys/allure-phpunit/adapter"
	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/annotations"
	"github.com/kolsys/allure-phpunit/lifecycle"
	"github.com/kolsys/allure-phpunit/log"
	"github.com/kolsys/allure-phpunit/metrics"
	"github.com/kolsys/allure-phpunit/notify"
	"github.com/kolsys/allure-phpunit/phpunit"
	"github.com/kolsys/allure-phpunit/results"
)

// flushTimeout bounds the best-effort lifecycle flush after a run.
const flushTimeout = 30 * time.Second

// RunConfig configures a single run.
type RunConfig struct {
	// RunMeta is the run identity and lineage metadata. Required.
	RunMeta *allure.RunMeta

	// PHPBinary is the php interpreter (default "php").
	PHPBinary string
	// PHPUnitPath is the phpunit entry script
	// (default "vendor/bin/phpunit").
	PHPUnitPath string
	// BootstrapPath is the extracted listener bundle. Required for real
	// runs; fake runners ignore it.
	BootstrapPath string
	// Args are extra phpunit arguments.
	Args []string
	// WorkDir is the runner working directory.
	WorkDir string
	// Env is extra environment for the runner process.
	Env []string
	// OutputDir is the results directory, informational for reports and
	// notifications.
	OutputDir string

	// Sink is the report event engine. Required.
	Sink lifecycle.Lifecycle
	// Store persists attachment payloads arriving over the side channel.
	// Required.
	Store results.Store
	// Registry collects annotation metadata from the hello manifest.
	// If nil, a fresh registry is created.
	Registry *annotations.Registry
	// AdapterConfig tunes the lifecycle adapter.
	AdapterConfig adapter.Config

	// RunnerFactory overrides runner creation (for testing).
	// If nil, uses NewRunner.
	RunnerFactory RunnerFactory

	// Collector is the metrics collector for this run.
	// If nil, no metrics are recorded (all Collector methods are nil-safe).
	Collector *metrics.Collector

	// Notifiers receive the run_completed event after the outcome is
	// determined. Delivery failures never alter the outcome.
	Notifiers []notify.Adapter
	// NotifyTimeout bounds each notifier delivery (default 15s).
	NotifyTimeout time.Duration

	// Logger overrides the run logger. If nil, a logger is derived from
	// RunMeta.
	Logger *log.Logger
}

// RunResult is the complete result of a run.
type RunResult struct {
	// RunID echoes the run identity.
	RunID string
	// Outcome is the reconciled run outcome.
	Outcome *Outcome
	// Hello is the runner handshake, nil when the stream never started.
	Hello *phpunit.HelloFrame
	// RunnerResult is the process result, nil when launch failed.
	RunnerResult *RunnerResult
	// LifecycleStats snapshots the report engine counters.
	LifecycleStats lifecycle.Stats
	// AttachmentStats snapshots the attachment assembler counters.
	AttachmentStats AttachmentStats
	// DroppedWarnings counts host warnings the adapter dropped.
	DroppedWarnings int64
	// MetricsSnapshot is the collector snapshot, nil without a collector.
	MetricsSnapshot *metrics.Snapshot
	// NotifierResults records per-notifier delivery outcomes.
	NotifierResults []NotifierResult
	// StartedAt and FinishedAt bound the run wall time.
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunOrchestrator coordinates a complete run.
type RunOrchestrator struct {
	config    *RunConfig
	logger    *log.Logger
	collector *metrics.Collector
}

// NewRunOrchestrator creates an orchestrator after validating the config.
func NewRunOrchestrator(config *RunConfig) (*RunOrchestrator, error) {
	if config.RunMeta == nil {
		return nil, errors.New("run config requires RunMeta")
	}
	if err := config.RunMeta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run meta: %w", err)
	}
	if config.Sink == nil {
		return nil, errors.New("run config requires a lifecycle sink")
	}
	if config.Store == nil {
		return nil, errors.New("run config requires a results store")
	}

	if config.Registry == nil {
		config.Registry = annotations.NewRegistry()
	}
	if config.RunnerFactory == nil {
		config.RunnerFactory = NewRunner
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger(config.RunMeta)
	}

	return &RunOrchestrator{
		config:    config,
		logger:    logger,
		collector: config.Collector,
	}, nil
}

// Run builds an orchestrator from config and executes it. Embedders that
// do not need the construct/execute split can call this directly.
func Run(ctx context.Context, config *RunConfig) (*RunResult, error) {
	orchestrator, err := NewRunOrchestrator(config)
	if err != nil {
		return nil, err
	}
	return orchestrator.Execute(ctx)
}

// Execute performs the run: start the runner, ingest the frame stream,
// flush the lifecycle, and reconcile the outcome.
//
// Execute returns an error only for orchestration faults; runner and
// ingestion failures are absorbed into the result's outcome.
func (o *RunOrchestrator) Execute(ctx context.Context) (*RunResult, error) {
	startedAt := time.Now()
	o.collector.IncRunStarted()

	meta := o.config.RunMeta
	o.logger.Info("run starting", map[string]any{
		"run_id":  meta.RunID,
		"attempt": meta.Attempt,
	})

	runner := o.config.RunnerFactory(&RunnerConfig{
		PHPBinary:     o.config.PHPBinary,
		PHPUnitPath:   o.config.PHPUnitPath,
		BootstrapPath: o.config.BootstrapPath,
		Args:          o.config.Args,
		WorkDir:       o.config.WorkDir,
		RunID:         meta.RunID,
		Env:           o.config.Env,
	})

	lifecycleAdapter := adapter.New(o.config.Sink, o.config.Registry, o.config.AdapterConfig)
	assembler := NewAttachmentAssembler()

	if err := runner.Start(ctx); err != nil {
		o.collector.IncRunnerLaunchFailure()
		o.logger.Error("runner launch failed", map[string]any{"error": err.Error()})
		o.flushBestEffort(ctx)

		outcome := &Outcome{
			Status:   OutcomeRunnerCrash,
			ExitCode: ExitCodeRunnerCrash,
			Message:  fmt.Sprintf("runner launch failed: %v", err),
		}
		return o.buildResult(ctx, outcome, nil, nil, assembler, lifecycleAdapter, startedAt), nil
	}
	o.collector.IncRunnerLaunchSuccess()

	engine := NewIngestionEngine(
		runner.Frames(),
		lifecycleAdapter,
		o.config.Sink,
		o.config.Store,
		o.config.Registry,
		assembler,
		o.logger,
		o.collector,
	)

	ingestionDone := make(chan error, 1)
	go func() {
		ingestionDone <- engine.Run(ctx)
	}()

	// Ingestion must finish before the process is reaped: Wait tears
	// down the frame pipe.
	ingestErr := <-ingestionDone
	if ingestErr != nil {
		o.logger.Error("ingestion failed, killing runner", map[string]any{
			"error": ingestErr.Error(),
		})
		if killErr := runner.Kill(); killErr != nil {
			o.logger.Warn("runner kill failed", map[string]any{"error": killErr.Error()})
		}
	}

	runnerResult, waitErr := runner.Wait()
	if waitErr != nil {
		o.logger.Error("runner wait failed", map[string]any{"error": waitErr.Error()})
	}

	flushErr := o.flushBestEffort(ctx)

	var outcome *Outcome
	switch {
	case waitErr != nil && ingestErr == nil:
		outcome = &Outcome{
			Status:   OutcomeRunnerCrash,
			ExitCode: ExitCodeRunnerCrash,
			Message:  fmt.Sprintf("runner wait failed: %v", waitErr),
		}
	default:
		exitCode := 0
		if runnerResult != nil {
			exitCode = runnerResult.ExitCode
		}
		outcome = DetermineOutcome(exitCode, engine.Goodbye(), ingestErr)
	}

	// A failed final flush means results were not durably written.
	// Escalate unless the run already ended worse.
	if flushErr != nil && (outcome.Status == OutcomePassed || outcome.Status == OutcomeTestFailures) {
		outcome = &Outcome{
			Status:   OutcomeStoreFailure,
			ExitCode: ExitCodeStoreFailure,
			Message:  fmt.Sprintf("results flush failed: %v", flushErr),
			Summary:  outcome.Summary,
		}
	}

	for _, id := range assembler.OrphanIDs() {
		o.logger.Warn("attachment chunks arrived without a commit record", map[string]any{
			"attachment_id": id,
		})
	}

	return o.buildResult(ctx, outcome, engine.Hello(), runnerResult, assembler, lifecycleAdapter, startedAt), nil
}

// flushBestEffort flushes the lifecycle with a detached deadline so
// buffered suites survive context cancellation.
func (o *RunOrchestrator) flushBestEffort(ctx context.Context) error {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()

	if err := o.config.Sink.Flush(flushCtx); err != nil {
		o.logger.Error("lifecycle flush failed", map[string]any{"error": err.Error()})
		return err
	}
	return nil
}

// buildResult assembles the run result, records final metrics, and fans
// the run_completed event out to notifiers.
func (o *RunOrchestrator) buildResult(
	ctx context.Context,
	outcome *Outcome,
	hello *phpunit.HelloFrame,
	runnerResult *RunnerResult,
	assembler *AttachmentAssembler,
	lifecycleAdapter *adapter.LifecycleAdapter,
	startedAt time.Time,
) *RunResult {
	stats := o.config.Sink.Stats()

	eventsByKind := make(map[string]int64, len(stats.EventsByKind))
	for kind, count := range stats.EventsByKind {
		eventsByKind[string(kind)] = count
	}
	o.collector.AbsorbLifecycleStats(
		stats.EventsFired,
		stats.EventsIgnored,
		stats.SuitesWritten,
		stats.CasesRecorded,
		eventsByKind,
		map[string]int64{"total": stats.FlushCount},
	)

	switch outcome.Status {
	case OutcomePassed:
		o.collector.IncRunCompleted()
	case OutcomeRunnerCrash:
		o.collector.IncRunCrashed()
	default:
		o.collector.IncRunFailed()
	}

	result := &RunResult{
		RunID:           o.config.RunMeta.RunID,
		Outcome:         outcome,
		Hello:           hello,
		RunnerResult:    runnerResult,
		LifecycleStats:  stats,
		AttachmentStats: assembler.Stats(),
		DroppedWarnings: lifecycleAdapter.DroppedWarnings(),
		StartedAt:       startedAt,
		FinishedAt:      time.Now(),
	}

	if o.collector != nil {
		snap := o.collector.Snapshot()
		result.MetricsSnapshot = &snap
	}

	if len(o.config.Notifiers) > 0 {
		fanout := NewNotifierFanOut(o.config.Notifiers, o.config.NotifyTimeout, 0, o.logger)
		event := buildRunCompletedEvent(result, o.config)
		result.NotifierResults = fanout.Publish(ctx, event)
	}

	o.logger.Info("run finished", map[string]any{
		"run_id":    result.RunID,
		"outcome":   string(outcome.Status),
		"exit_code": outcome.ExitCode,
	})

	return result
}

// buildRunCompletedEvent maps the run result onto the notification
// payload.
func buildRunCompletedEvent(result *RunResult, config *RunConfig) *notify.RunCompletedEvent {
	event := &notify.RunCompletedEvent{
		SchemaVersion: notify.SchemaVersion,
		EventType:     notify.EventTypeRunCompleted,
		RunID:         config.RunMeta.RunID,
		Attempt:       config.RunMeta.Attempt,
		Outcome:       string(result.Outcome.Status),
		ExitCode:      result.Outcome.ExitCode,
		ResultsDir:    config.OutputDir,
		Timestamp:     result.FinishedAt.UTC().Format(time.RFC3339),
		SuitesWritten: result.LifecycleStats.SuitesWritten,
		DurationMs:    result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}

	if result.Hello != nil {
		event.Runner = result.Hello.Runner
		event.RunnerVersion = result.Hello.RunnerVersion
	}
	if summary := result.Outcome.Summary; summary != nil {
		event.Tests = int64(summary.Tests)
		event.Failures = int64(summary.Failures)
		event.Errors = int64(summary.Errors)
		event.Skipped = int64(summary.Skipped)
	}

	return event
}
