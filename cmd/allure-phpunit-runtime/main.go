// Package main provides the allure-phpunit-runtime CLI entrypoint.
//
// The runtime binary is for harnesses that spawn PHP themselves: instead
// of launching PHPUnit, it ingests an already produced listener frame
// stream from stdin and writes Allure results from it.
//
// Usage:
//
//	allure-phpunit-runtime run -run-id <id> [options] < frames.bin
//
// Exit codes:
//   - 0: all tests passed, results written
//   - 1: run completed with failures or errors
//   - 2: stream ended without a goodbye frame
//   - 3: results store failure
//   - 4: protocol version mismatch
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kolsys/allure-phpunit/adapter"
	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/lifecycle"
	"github.com/kolsys/allure-phpunit/log"
	"github.com/kolsys/allure-phpunit/metrics"
	"github.com/kolsys/allure-phpunit/results"
	"github.com/kolsys/allure-phpunit/runtime"
)

// exitConfigError is the exit code for faults in the invocation itself.
const exitConfigError = runtime.ExitCodeRunnerCrash

// lifecycleChoice holds parsed report engine configuration from CLI flags.
type lifecycleChoice struct {
	mode          string
	flushCount    int
	flushInterval time.Duration
}

func main() {
	app := &cli.App{
		Name:    "allure-phpunit-runtime",
		Usage:   "Headless Allure results writer - ingests a listener frame stream from stdin",
		Version: allure.Version,
		Commands: []*cli.Command{
			runCommand(),
		},
		ExitErrHandler: exitErrHandler,
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit
		// This branch is only reached if ExitErrHandler didn't exit
		os.Exit(runtime.ExitCodeRunnerCrash)
	}
}

// exitErrHandler handles errors from the CLI, respecting cli.ExitCoder.
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}

	// Check for ExitCoder (from cli.Exit), handles wrapped errors
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N", so skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	// Unexpected error - print and exit with crash code
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(runtime.ExitCodeRunnerCrash)
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Ingest a frame stream from stdin and write Allure results",
		Flags: []cli.Flag{
			// Run identity flags
			&cli.StringFlag{
				Name:     "run-id",
				Usage:    "Run ID",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "attempt",
				Usage: "Attempt number (starts at 1)",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "parent-run-id",
				Usage: "Parent run ID (required for attempt > 1)",
			},
			// Output flags
			&cli.StringFlag{
				Name:  "output",
				Usage: "Results directory",
				Value: results.DefaultOutputDir,
			},
			&cli.BoolFlag{
				Name:  "purge",
				Usage: "Delete existing result files before the run",
			},
			// Report engine flags
			&cli.StringFlag{
				Name:  "lifecycle",
				Usage: "Report engine: strict, buffered, or noop",
				Value: "strict",
			},
			&cli.IntFlag{
				Name:  "flush-count",
				Usage: "Flush after N completed suites (buffered engine)",
				Value: 0,
			},
			&cli.DurationFlag{
				Name:  "flush-interval",
				Usage: "Flush every interval (buffered engine)",
				Value: 0,
			},
			// Annotation flags
			&cli.StringSliceFlag{
				Name:  "ignore-annotation",
				Usage: "Annotation name to ignore (repeatable)",
			},
			// Result flags
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a JSON run report to this path (\"-\" for stderr)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress result output",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	choice := lifecycleChoice{
		mode:          c.String("lifecycle"),
		flushCount:    c.Int("flush-count"),
		flushInterval: c.Duration("flush-interval"),
	}
	if err := validateLifecycleConfig(choice); err != nil {
		return cli.Exit(fmt.Sprintf("invalid lifecycle config: %v", err), exitConfigError)
	}

	// Build run identity
	runMeta := &allure.RunMeta{
		RunID:   c.String("run-id"),
		Attempt: c.Int("attempt"),
	}
	if parentRunID := c.String("parent-run-id"); parentRunID != "" {
		runMeta.ParentRunID = &parentRunID
	}
	if err := runMeta.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid run identity: %v", err), exitConfigError)
	}

	collector := metrics.NewCollector(choice.mode, "phpunit", "fs", runMeta.RunID)
	logger := log.NewLogger(runMeta)

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Filesystem store only: the mirror and notifier fanout live in the
	// full CLI.
	fs, err := results.NewFSStore(results.FSConfig{
		Dir:   c.String("output"),
		Purge: c.Bool("purge"),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open results store: %v", err), runtime.ExitCodeStoreFailure)
	}
	store := results.NewInstrumentedStore(fs, collector)
	defer func() { _ = store.Close() }()

	// Build report engine
	sink, err := buildSink(choice, store, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create report engine: %v", err), exitConfigError)
	}
	defer func() { _ = sink.Close() }()

	runConfig := &runtime.RunConfig{
		RunMeta:   runMeta,
		OutputDir: c.String("output"),
		Sink:      sink,
		Store:     store,
		AdapterConfig: adapter.Config{
			ExtraIgnoredAnnotations: c.StringSlice("ignore-annotation"),
			Logger:                  logger,
		},
		RunnerFactory: func(*runtime.RunnerConfig) runtime.Runner {
			return runtime.NewStreamRunner(os.Stdin)
		},
		Collector: collector,
		Logger:    logger,
	}

	orchestrator, err := runtime.NewRunOrchestrator(runConfig)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create orchestrator: %v", err), exitConfigError)
	}

	startTime := time.Now()
	result, err := orchestrator.Execute(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("execution failed: %v", err), runtime.ExitCodeRunnerCrash)
	}
	duration := time.Since(startTime)

	// A report write failure never alters the exit code; the results
	// directory is the durable artifact.
	if reportPath := c.String("report"); reportPath != "" {
		report := runtime.BuildRunReport(result, runMeta)
		if err := runtime.WriteRunReport(report, reportPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write run report: %v\n", err)
		}
	}

	// Print result
	if !c.Bool("quiet") {
		printResult(result, choice, duration)
	}

	return cli.Exit("", result.Outcome.ExitCode)
}

// validateLifecycleConfig validates the report engine configuration.
func validateLifecycleConfig(choice lifecycleChoice) error {
	switch choice.mode {
	case "strict", "noop":
		if choice.flushCount > 0 || choice.flushInterval > 0 {
			fmt.Fprintf(os.Stderr, "Warning: flush flags ignored for %s lifecycle\n", choice.mode)
		}
		return nil

	case "buffered":
		if choice.flushCount < 0 {
			return fmt.Errorf("--flush-count must be >= 0, got %d", choice.flushCount)
		}
		if choice.flushInterval < 0 {
			return fmt.Errorf("--flush-interval must be >= 0, got %s", choice.flushInterval)
		}
		return nil

	default:
		return fmt.Errorf("invalid --lifecycle: %s\nValid options: strict, buffered, noop", choice.mode)
	}
}

// buildSink creates the report engine for the chosen lifecycle mode.
func buildSink(choice lifecycleChoice, store results.Store, logger *log.Logger) (lifecycle.Lifecycle, error) {
	switch choice.mode {
	case "strict":
		return lifecycle.NewStrictLifecycle(store, logger), nil

	case "buffered":
		return lifecycle.NewBufferedLifecycle(store, lifecycle.BufferedConfig{
			FlushCount:    choice.flushCount,
			FlushInterval: choice.flushInterval,
			Logger:        logger,
		})

	case "noop":
		return lifecycle.NewNoopLifecycle(logger), nil

	default:
		return nil, fmt.Errorf("unknown lifecycle: %s", choice.mode)
	}
}

// printResult prints the run result and summary.
func printResult(result *runtime.RunResult, choice lifecycleChoice, duration time.Duration) {
	fmt.Printf("\nrun_id=%s, outcome=%s, exit_code=%d, duration=%s\n",
		result.RunID,
		result.Outcome.Status,
		result.Outcome.ExitCode,
		duration.Round(time.Millisecond),
	)

	if choice.mode == "buffered" {
		fmt.Printf("lifecycle=%s, flush_count=%d, flush_interval=%s\n",
			choice.mode, choice.flushCount, choice.flushInterval)
	} else {
		fmt.Printf("lifecycle=%s\n", choice.mode)
	}

	fmt.Printf("\n=== Run Result ===\n")
	fmt.Printf("Run ID:       %s\n", result.RunID)
	fmt.Printf("Outcome:      %s\n", result.Outcome.Status)
	fmt.Printf("Message:      %s\n", result.Outcome.Message)
	if result.Hello != nil {
		fmt.Printf("Runner:       %s %s\n", result.Hello.Runner, result.Hello.RunnerVersion)
	}

	if result.Outcome.Summary != nil {
		summary := result.Outcome.Summary
		fmt.Printf("\n=== Runner Summary ===\n")
		fmt.Printf("Tests:        %d\n", summary.Tests)
		fmt.Printf("Failures:     %d\n", summary.Failures)
		fmt.Printf("Errors:       %d\n", summary.Errors)
		fmt.Printf("Skipped:      %d\n", summary.Skipped)
		fmt.Printf("Incomplete:   %d\n", summary.Incomplete)
		fmt.Printf("Risky:        %d\n", summary.Risky)
		fmt.Printf("Time:         %.3fs\n", summary.TimeSeconds)
	}

	stats := result.LifecycleStats
	fmt.Printf("\n=== Report Stats ===\n")
	fmt.Printf("Events Fired:     %d\n", stats.EventsFired)
	fmt.Printf("Events Ignored:   %d\n", stats.EventsIgnored)
	fmt.Printf("Suites Written:   %d\n", stats.SuitesWritten)
	fmt.Printf("Suites Abandoned: %d\n", stats.SuitesAbandoned)
	fmt.Printf("Cases Recorded:   %d\n", stats.CasesRecorded)
	fmt.Printf("Flushes:          %d\n", stats.FlushCount)
	fmt.Printf("Write Errors:     %d\n", stats.Errors)
	if result.DroppedWarnings > 0 {
		fmt.Printf("Dropped Warnings: %d\n", result.DroppedWarnings)
	}

	if result.AttachmentStats.TotalAttachments > 0 {
		fmt.Printf("\n=== Attachment Stats ===\n")
		fmt.Printf("Total Attachments: %d\n", result.AttachmentStats.TotalAttachments)
		fmt.Printf("Committed:         %d\n", result.AttachmentStats.CommittedAttachments)
		fmt.Printf("Orphaned:          %d\n", result.AttachmentStats.OrphanedAttachments)
		fmt.Printf("Total Chunks:      %d\n", result.AttachmentStats.TotalChunks)
		fmt.Printf("Total Bytes:       %d\n", result.AttachmentStats.TotalBytes)
	}
}
