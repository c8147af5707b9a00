package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/kolsys/allure-phpunit/adapter"
	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/bootstrap"
	"github.com/kolsys/allure-phpunit/cli/config"
	"github.com/kolsys/allure-phpunit/lifecycle"
	"github.com/kolsys/allure-phpunit/log"
	"github.com/kolsys/allure-phpunit/metrics"
	"github.com/kolsys/allure-phpunit/notify"
	"github.com/kolsys/allure-phpunit/notify/redis"
	"github.com/kolsys/allure-phpunit/notify/webhook"
	"github.com/kolsys/allure-phpunit/results"
	"github.com/kolsys/allure-phpunit/runtime"
)

// Configuration faults exit as runner-crash class: nothing ran, nothing
// was stored.
const exitConfigError = runtime.ExitCodeRunnerCrash

// RunCommand returns the run command.
// This is the only command that executes work: it launches PHPUnit with
// the listener bundle prepended and translates the frame stream into
// Allure result files. Arguments after -- pass through to PHPUnit.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run PHPUnit and write Allure results (the only execution entrypoint)",
		ArgsUsage: "[-- phpunit args...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to YAML config file",
			},
			// Run identity flags
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run ID (generated when empty)",
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
			// Runner flags
			&cli.StringFlag{
				Name:  "php",
				Usage: "PHP interpreter binary",
				Value: "php",
			},
			&cli.StringFlag{
				Name:  "phpunit",
				Usage: "PHPUnit entry script",
				Value: "vendor/bin/phpunit",
			},
			&cli.StringFlag{
				Name:  "workdir",
				Usage: "Runner working directory",
			},
			&cli.StringSliceFlag{
				Name:  "env",
				Usage: "Extra KEY=VALUE environment for the runner (repeatable)",
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
			&cli.StringFlag{
				Name:  "mirror",
				Usage: "S3 mirror path (bucket/prefix)",
			},
			&cli.StringFlag{
				Name:  "mirror-region",
				Usage: "AWS region for the S3 mirror",
			},
			&cli.StringFlag{
				Name:  "mirror-endpoint",
				Usage: "Custom S3 endpoint URL (R2, MinIO)",
			},
			&cli.BoolFlag{
				Name:  "mirror-path-style",
				Usage: "Force path-style S3 addressing",
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
			// Notification flags
			&cli.StringFlag{
				Name:  "notify",
				Usage: "Notifier type: webhook or redis",
			},
			&cli.StringSliceFlag{
				Name:  "notify-url",
				Usage: "Notifier endpoint URL (repeatable for webhook pools)",
			},
			&cli.StringFlag{
				Name:  "notify-channel",
				Usage: "Redis pub/sub channel",
			},
			&cli.StringFlag{
				Name:  "notify-strategy",
				Usage: "Webhook pool strategy: round_robin or random",
			},
			&cli.StringSliceFlag{
				Name:  "notify-header",
				Usage: "Custom webhook header as KEY=VALUE (repeatable)",
			},
			&cli.DurationFlag{
				Name:  "notify-timeout",
				Usage: "Per-delivery timeout",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "notify-retries",
				Usage: "Delivery retry attempts",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "notify-cooldown",
				Usage: "Failed webhook endpoint cooldown",
				Value: 0,
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

// lifecycleChoice holds resolved report engine configuration.
type lifecycleChoice struct {
	mode          string
	flushCount    int
	flushInterval time.Duration
}

// storeChoice holds resolved results store configuration.
type storeChoice struct {
	dir    string
	purge  bool
	mirror mirrorChoice
}

// mirrorChoice holds resolved S3 mirror configuration.
type mirrorChoice struct {
	path      string // bucket/prefix
	region    string
	endpoint  string
	pathStyle bool
}

// notifyChoice holds resolved notification configuration.
type notifyChoice struct {
	kind     string
	urls     []string
	channel  string
	strategy string
	headers  map[string]string
	timeout  time.Duration
	retries  int
	cooldown time.Duration
}

func runAction(c *cli.Context) error {
	// Load config file if specified
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
		cfg = loaded
	}

	// Build run identity
	runID := c.String("run-id")
	if runID == "" {
		runID = generateRunID()
	}
	runMeta := &allure.RunMeta{
		RunID:   runID,
		Attempt: c.Int("attempt"),
	}
	if parentRunID := c.String("parent-run-id"); parentRunID != "" {
		runMeta.ParentRunID = &parentRunID
	}
	if err := runMeta.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid run identity: %v", err), exitConfigError)
	}

	// Resolve report engine config
	lifecycleConfig := lifecycleChoice{
		mode:          resolveString(c, "lifecycle", configVal(cfg, func(cf *config.Config) string { return cf.Lifecycle.Mode })),
		flushCount:    resolveInt(c, "flush-count", configVal(cfg, func(cf *config.Config) int { return cf.Lifecycle.FlushCount })),
		flushInterval: resolveDuration(c, "flush-interval", configVal(cfg, func(cf *config.Config) time.Duration { return cf.Lifecycle.FlushInterval.Duration })),
	}
	if err := validateLifecycleConfig(lifecycleConfig); err != nil {
		return cli.Exit(fmt.Sprintf("invalid lifecycle config: %v", err), exitConfigError)
	}

	// Resolve results store config
	storeConfig := storeChoice{
		dir:   resolveString(c, "output", configVal(cfg, func(cf *config.Config) string { return cf.Output.Dir })),
		purge: resolveBool(c, "purge", configVal(cfg, func(cf *config.Config) bool { return cf.Output.Purge })),
		mirror: mirrorChoice{
			path:      resolveString(c, "mirror", mirrorPath(cfg)),
			region:    resolveString(c, "mirror-region", mirrorRegion(cfg)),
			endpoint:  resolveString(c, "mirror-endpoint", mirrorEndpoint(cfg)),
			pathStyle: resolveBool(c, "mirror-path-style", mirrorPathStyle(cfg)),
		},
	}

	// Resolve notification config
	notifyConfig, err := parseNotifyConfigWithPrecedence(c, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid notify config: %v", err), exitConfigError)
	}
	if err := validateNotifyConfig(notifyConfig); err != nil {
		return cli.Exit(fmt.Sprintf("invalid notify config: %v", err), exitConfigError)
	}

	// Build runner environment
	runnerEnv, err := buildRunnerEnv(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	collector := metrics.NewCollector(lifecycleConfig.mode, "phpunit", storageBackendLabel(storeConfig), runMeta.RunID)

	logger := log.NewLogger(runMeta)
	if level := configVal(cfg, func(cf *config.Config) string { return cf.Log.Level }); level != "" {
		leveled, err := log.NewLoggerAtLevel(runMeta, level)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid log config: %v", err), exitConfigError)
		}
		logger = leveled
	}

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Build store chain (fs, optional s3 mirror, instrumentation)
	store, err := buildStore(ctx, storeConfig, collector, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open results store: %v", err), runtime.ExitCodeStoreFailure)
	}
	defer func() { _ = store.Close() }()

	// Build report engine
	sink, err := buildSink(lifecycleConfig, store, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create report engine: %v", err), exitConfigError)
	}
	defer func() { _ = sink.Close() }()

	// Build notifiers
	notifiers, err := buildNotifiers(notifyConfig)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create notifier: %v", err), exitConfigError)
	}
	defer closeNotifiers(notifiers)

	// Extract the embedded bootstrap listener
	bootstrapPath, err := bootstrap.ExtractedPath()
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to extract bootstrap: %v", err), runtime.ExitCodeRunnerCrash)
	}

	startTime := time.Now()
	runConfig := &runtime.RunConfig{
		RunMeta:       runMeta,
		PHPBinary:     resolveString(c, "php", configVal(cfg, func(cf *config.Config) string { return cf.PHP.Binary })),
		PHPUnitPath:   resolveString(c, "phpunit", configVal(cfg, func(cf *config.Config) string { return cf.PHP.PHPUnit })),
		BootstrapPath: bootstrapPath,
		Args:          buildPHPUnitArgs(c, cfg),
		WorkDir:       resolveString(c, "workdir", configVal(cfg, func(cf *config.Config) string { return cf.PHP.WorkDir })),
		Env:           runnerEnv,
		OutputDir:     storeConfig.dir,
		Sink:          sink,
		Store:         store,
		AdapterConfig: adapter.Config{
			ExtraIgnoredAnnotations: mergeIgnoredAnnotations(c, cfg),
			Logger:                  logger,
		},
		Collector:     collector,
		Notifiers:     notifiers,
		NotifyTimeout: notifyConfig.timeout,
		Logger:        logger,
	}

	orchestrator, err := runtime.NewRunOrchestrator(runConfig)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create orchestrator: %v", err), exitConfigError)
	}

	result, err := orchestrator.Execute(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("execution failed: %v", err), runtime.ExitCodeRunnerCrash)
	}
	duration := time.Since(startTime)

	// Write the run report if requested. A report write failure never
	// alters the exit code; the results directory is the durable artifact.
	if reportPath := resolveString(c, "report", configVal(cfg, func(cf *config.Config) string { return cf.Report })); reportPath != "" {
		report := runtime.BuildRunReport(result, runMeta)
		if err := runtime.WriteRunReport(report, reportPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write run report: %v\n", err)
		}
	}

	// Print result
	if !c.Bool("quiet") {
		printRunResult(result, lifecycleConfig, duration)
	}

	return cli.Exit("", result.Outcome.ExitCode)
}

// generateRunID produces a unique default run ID.
func generateRunID() string {
	return fmt.Sprintf("run-%s-%s", time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
}

// resolveString applies precedence: explicit CLI flag > config file >
// flag default.
func resolveString(c *cli.Context, name, configValue string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if configValue != "" {
		return configValue
	}
	return c.String(name)
}

// resolveInt applies precedence: explicit CLI flag > config file > flag default.
func resolveInt(c *cli.Context, name string, configValue int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	if configValue != 0 {
		return configValue
	}
	return c.Int(name)
}

// resolveBool applies precedence: explicit CLI flag > config file > flag default.
func resolveBool(c *cli.Context, name string, configValue bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return configValue || c.Bool(name)
}

// resolveDuration applies precedence: explicit CLI flag > config file > flag default.
func resolveDuration(c *cli.Context, name string, configValue time.Duration) time.Duration {
	if c.IsSet(name) {
		return c.Duration(name)
	}
	if configValue != 0 {
		return configValue
	}
	return c.Duration(name)
}

// configVal extracts a value from an optional config, returning the zero
// value when no config file was loaded.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}

func mirrorPath(cfg *config.Config) string {
	if cfg == nil || cfg.Output.Mirror == nil {
		return ""
	}
	return cfg.Output.Mirror.Path
}

func mirrorRegion(cfg *config.Config) string {
	if cfg == nil || cfg.Output.Mirror == nil {
		return ""
	}
	return cfg.Output.Mirror.Region
}

func mirrorEndpoint(cfg *config.Config) string {
	if cfg == nil || cfg.Output.Mirror == nil {
		return ""
	}
	return cfg.Output.Mirror.Endpoint
}

func mirrorPathStyle(cfg *config.Config) bool {
	if cfg == nil || cfg.Output.Mirror == nil {
		return false
	}
	return cfg.Output.Mirror.S3PathStyle
}

// parseNotifyConfigWithPrecedence merges notify flags over config file
// values. Slices and maps fall back wholesale: an explicit flag replaces
// the config value entirely rather than appending.
func parseNotifyConfigWithPrecedence(c *cli.Context, cfg *config.Config) (notifyChoice, error) {
	choice := notifyChoice{
		kind:     resolveString(c, "notify", configVal(cfg, func(cf *config.Config) string { return cf.Notify.Type })),
		channel:  resolveString(c, "notify-channel", configVal(cfg, func(cf *config.Config) string { return cf.Notify.Channel })),
		strategy: resolveString(c, "notify-strategy", configVal(cfg, func(cf *config.Config) string { return cf.Notify.Strategy })),
		timeout:  resolveDuration(c, "notify-timeout", configVal(cfg, func(cf *config.Config) time.Duration { return cf.Notify.Timeout.Duration })),
		cooldown: resolveDuration(c, "notify-cooldown", configVal(cfg, func(cf *config.Config) time.Duration { return cf.Notify.Cooldown.Duration })),
		retries:  c.Int("notify-retries"),
	}

	if !c.IsSet("notify-retries") {
		if retries := configVal(cfg, func(cf *config.Config) *int { return cf.Notify.Retries }); retries != nil {
			choice.retries = *retries
		}
	}

	if urls := c.StringSlice("notify-url"); len(urls) > 0 {
		choice.urls = urls
	} else if cfg != nil {
		choice.urls = cfg.Notify.Endpoints()
	}

	headers, err := parseNotifyHeaders(c.StringSlice("notify-header"))
	if err != nil {
		return notifyChoice{}, err
	}
	if len(headers) == 0 && cfg != nil && len(cfg.Notify.Headers) > 0 {
		headers = cfg.Notify.Headers
	}
	choice.headers = headers

	return choice, nil
}

// parseNotifyHeaders parses repeated KEY=VALUE header flags.
func parseNotifyHeaders(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --notify-header %q (expected KEY=VALUE, e.g. --notify-header \"Authorization=Bearer token\")", entry)
		}
		headers[key] = value
	}
	return headers, nil
}

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

func validateNotifyConfig(choice notifyChoice) error {
	switch choice.kind {
	case "":
		return nil

	case "webhook":
		if len(choice.urls) == 0 {
			return fmt.Errorf("webhook notifier requires at least one --notify-url")
		}
		switch webhook.Strategy(choice.strategy) {
		case "", webhook.StrategyRoundRobin, webhook.StrategyRandom:
			return nil
		default:
			return fmt.Errorf("invalid --notify-strategy: %s\nValid options: round_robin, random", choice.strategy)
		}

	case "redis":
		if len(choice.urls) != 1 {
			return fmt.Errorf("redis notifier requires exactly one --notify-url")
		}
		return nil

	default:
		return fmt.Errorf("invalid --notify: %s\nValid options: webhook, redis", choice.kind)
	}
}

// buildRunnerEnv merges config file env with --env flags. Flag entries
// come last so they win when the runner resolves duplicates.
func buildRunnerEnv(c *cli.Context, cfg *config.Config) ([]string, error) {
	var env []string
	if cfg != nil {
		env = append(env, cfg.PHP.Environ()...)
	}
	for _, entry := range c.StringSlice("env") {
		key, _, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env %q (expected KEY=VALUE, e.g. --env APP_ENV=testing)", entry)
		}
		env = append(env, entry)
	}
	return env, nil
}

// buildPHPUnitArgs merges config file args with passthrough CLI args.
func buildPHPUnitArgs(c *cli.Context, cfg *config.Config) []string {
	var args []string
	if cfg != nil {
		args = append(args, cfg.PHP.Args...)
	}
	args = append(args, c.Args().Slice()...)
	return args
}

// mergeIgnoredAnnotations merges config file ignores with flag ignores.
func mergeIgnoredAnnotations(c *cli.Context, cfg *config.Config) []string {
	var ignored []string
	if cfg != nil {
		ignored = append(ignored, cfg.Annotations.Ignored...)
	}
	ignored = append(ignored, c.StringSlice("ignore-annotation")...)
	return ignored
}

// buildStore assembles the results store chain: filesystem primary,
// optional S3 mirror, metrics instrumentation outermost.
func buildStore(ctx context.Context, choice storeChoice, collector *metrics.Collector, logger *log.Logger) (results.Store, error) {
	fs, err := results.NewFSStore(results.FSConfig{Dir: choice.dir, Purge: choice.purge})
	if err != nil {
		return nil, err
	}

	var store results.Store = fs
	if choice.mirror.path != "" {
		bucket, prefix := results.ParseS3Path(choice.mirror.path)
		s3, err := results.NewS3Store(ctx, results.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       choice.mirror.region,
			Endpoint:     choice.mirror.endpoint,
			UsePathStyle: choice.mirror.pathStyle,
		})
		if err != nil {
			_ = fs.Close()
			return nil, fmt.Errorf("mirror store: %w", err)
		}
		store = results.NewMirrorStore(fs, s3, logger)
	}

	return results.NewInstrumentedStore(store, collector), nil
}

// buildSink creates the report engine for the resolved lifecycle mode.
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

// buildNotifiers creates notification adapters for the resolved config.
func buildNotifiers(choice notifyChoice) ([]notify.Adapter, error) {
	switch choice.kind {
	case "":
		return nil, nil

	case "webhook":
		a, err := webhook.New(webhook.Config{
			URLs:     choice.urls,
			Strategy: webhook.Strategy(choice.strategy),
			Headers:  choice.headers,
			Timeout:  choice.timeout,
			Retries:  choice.retries,
			Cooldown: choice.cooldown,
		})
		if err != nil {
			return nil, err
		}
		return []notify.Adapter{a}, nil

	case "redis":
		a, err := redis.New(redis.Config{
			URL:     choice.urls[0],
			Channel: choice.channel,
			Timeout: choice.timeout,
			Retries: choice.retries,
		})
		if err != nil {
			return nil, err
		}
		return []notify.Adapter{a}, nil

	default:
		return nil, fmt.Errorf("unknown notifier: %s", choice.kind)
	}
}

func closeNotifiers(adapters []notify.Adapter) {
	for _, a := range adapters {
		_ = a.Close()
	}
}

// storageBackendLabel names the store chain for metrics partitioning.
func storageBackendLabel(choice storeChoice) string {
	if choice.mirror.path != "" {
		return "fs+s3"
	}
	return "fs"
}

func printRunResult(result *runtime.RunResult, choice lifecycleChoice, duration time.Duration) {
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

	if len(result.NotifierResults) > 0 {
		fmt.Printf("\n=== Notifiers ===\n")
		for _, delivery := range result.NotifierResults {
			if delivery.Delivered {
				fmt.Printf("  %s: delivered in %dms\n", delivery.Name, delivery.DurationMs)
			} else {
				fmt.Printf("  %s: failed: %s\n", delivery.Name, delivery.Error)
			}
		}
	}

	if result.RunnerResult != nil && len(result.RunnerResult.StderrBytes) > 0 {
		fmt.Printf("\n=== Runner Stderr ===\n")
		fmt.Printf("%s", result.RunnerResult.StderrBytes)
	}
}
