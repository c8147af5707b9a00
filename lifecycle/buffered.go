package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/log"
	"github.com/kolsys/allure-phpunit/results"
)

// BufferedConfig configures a BufferedLifecycle.
type BufferedConfig struct {
	// FlushCount triggers a flush after N completed suites accumulate.
	// Zero disables count-based flushing.
	FlushCount int

	// FlushInterval triggers a flush every interval.
	// Zero disables interval-based flushing.
	FlushInterval time.Duration

	// Logger is an optional logger for engine observability.
	Logger *log.Logger
}

// FlushTrigger identifies which trigger caused a flush.
type FlushTrigger string

const (
	// FlushTriggerCount indicates a count-threshold flush.
	FlushTriggerCount FlushTrigger = "count"
	// FlushTriggerInterval indicates an interval-based flush.
	FlushTriggerInterval FlushTrigger = "interval"
	// FlushTriggerTermination indicates a run termination flush.
	FlushTriggerTermination FlushTrigger = "termination"
)

// ErrBufferedInvalidConfig is returned when BufferedConfig is invalid.
var ErrBufferedInvalidConfig = errors.New("invalid buffered config: FlushCount and FlushInterval must not be negative")

// BufferedLifecycle defers suite writes behind flush triggers.
//
//   - No drops: every completed suite is eventually written
//   - Bounded memory: suites accumulate until a trigger fires
//   - Triggers: count threshold, interval tick, run termination
//   - With both count and interval disabled, everything is written at
//     termination
//
// On flush failure, unwritten suites are preserved and retried on the next
// trigger.
//
// Thread safety:
//   - mu guards builder state, the suite buffer, and stats
//   - flushMu serializes flush operations to prevent concurrent writes
//   - Fire/Attach hold mu briefly to apply the event
//   - triggerFlush holds flushMu for the duration of the write,
//     and mu briefly to swap/restore the buffer
type BufferedLifecycle struct {
	store  results.Store
	config BufferedConfig
	logger *log.Logger

	mu          sync.Mutex // guards builder, buffer, and stats
	builder     *suiteBuilder
	suiteBuffer []*allure.TestSuite
	rec         *statsRecorder

	// flushMu serializes flush operations.
	// Prevents concurrent flushes from the interval goroutine and the
	// count trigger.
	flushMu sync.Mutex

	// flushTriggerCounts tracks how many times each trigger type fired.
	// Guarded by mu.
	flushByCount       int64
	flushByInterval    int64
	flushByTermination int64

	// stopCh signals the interval goroutine to stop.
	stopCh chan struct{}
	// stopped indicates Close has been called. Guarded by mu.
	stopped bool
}

// NewBufferedLifecycle creates a buffered engine writing to the given store.
// Returns error if config is invalid.
func NewBufferedLifecycle(store results.Store, config BufferedConfig) (*BufferedLifecycle, error) {
	if config.FlushCount < 0 || config.FlushInterval < 0 {
		return nil, ErrBufferedInvalidConfig
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	rec := newStatsRecorder()
	l := &BufferedLifecycle{
		store:       store,
		config:      config,
		logger:      logger,
		builder:     newSuiteBuilder(logger, rec),
		suiteBuffer: make([]*allure.TestSuite, 0, 8),
		rec:         rec,
		stopCh:      make(chan struct{}),
	}

	// Start interval flush goroutine if configured
	if config.FlushInterval > 0 {
		go l.intervalLoop()
	}

	return l, nil
}

// Fire applies the event; a finished suite lands in the buffer.
// If the count threshold is reached, triggers a flush.
func (l *BufferedLifecycle) Fire(ctx context.Context, event *allure.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	l.rec.incEventFiredLocked(event.Kind)
	suite, err := l.builder.apply(event)
	if err != nil {
		l.mu.Unlock()
		return err
	}

	shouldFlush := false
	if suite != nil {
		l.suiteBuffer = append(l.suiteBuffer, suite)
		shouldFlush = l.config.FlushCount > 0 && len(l.suiteBuffer) >= l.config.FlushCount
	}
	l.mu.Unlock()

	if shouldFlush {
		return l.triggerFlush(ctx, FlushTriggerCount)
	}

	return nil
}

// Attach records an attachment reference on the open case.
func (l *BufferedLifecycle) Attach(_ context.Context, att allure.Attachment) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.builder.attach(att) {
		l.rec.incEventsIgnoredLocked()
		l.logger.Warn("attachment outside open case", map[string]any{
			"source": att.Source,
		})
		return nil
	}
	l.rec.incAttachmentsRecordedLocked()
	return nil
}

// Flush writes all buffered suites (run termination trigger).
// Called on run completion, run error, or runtime termination.
func (l *BufferedLifecycle) Flush(ctx context.Context) error {
	return l.triggerFlush(ctx, FlushTriggerTermination)
}

// triggerFlush performs a flush with the given trigger reason.
// Serialized by flushMu to prevent concurrent writes.
//
// Strategy: swap the buffer under mu, write outside mu, restore unwritten
// suites on failure. This allows Fire to continue assembling suites into a
// fresh buffer during a write.
func (l *BufferedLifecycle) triggerFlush(ctx context.Context, trigger FlushTrigger) error {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	// Swap buffer under mu
	l.mu.Lock()

	// Record trigger type
	switch trigger {
	case FlushTriggerCount:
		l.flushByCount++
	case FlushTriggerInterval:
		l.flushByInterval++
	case FlushTriggerTermination:
		l.flushByTermination++
	}

	l.rec.incFlushLocked()

	suites := l.suiteBuffer

	// Nothing to flush
	if len(suites) == 0 {
		l.mu.Unlock()
		return nil
	}

	// Install a fresh buffer so event application can continue during the write
	l.suiteBuffer = make([]*allure.TestSuite, 0, 8)

	l.mu.Unlock()

	// Write suites in completion order
	for i, suite := range suites {
		if err := l.store.WriteSuite(ctx, suite); err != nil {
			// Restore unwritten suites: prepend before any new data
			l.mu.Lock()
			l.rec.incErrorsLocked()
			l.suiteBuffer = append(suites[i:], l.suiteBuffer...)
			l.mu.Unlock()
			l.logFlushFailure(trigger, suite, err)
			return err
		}
		l.mu.Lock()
		l.rec.incSuitesWrittenLocked(1)
		l.mu.Unlock()
	}

	l.logFlush(trigger, len(suites))

	return nil
}

// Close stops the interval goroutine, flushes remaining suites, abandons
// any unfinished suite, and closes the store.
func (l *BufferedLifecycle) Close() error {
	l.mu.Lock()
	if !l.stopped {
		l.stopped = true
		close(l.stopCh)
	}
	l.builder.abandonOpenSuite()
	l.mu.Unlock()

	// Best-effort flush on close
	_ = l.Flush(context.Background())
	return l.store.Close()
}

// Stats returns engine statistics.
// Returns an atomic snapshot: mu is held while taking the snapshot, keeping
// all counters and the buffered suite count consistent.
func (l *BufferedLifecycle) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.rec.snapshotLocked(int64(len(l.suiteBuffer)))
}

// FlushTriggerStats returns per-trigger flush counts for observability.
// These are additive to the base Stats.
func (l *BufferedLifecycle) FlushTriggerStats() map[FlushTrigger]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[FlushTrigger]int64{
		FlushTriggerCount:       l.flushByCount,
		FlushTriggerInterval:    l.flushByInterval,
		FlushTriggerTermination: l.flushByTermination,
	}
}

// intervalLoop runs in a goroutine and triggers flushes on the configured interval.
func (l *BufferedLifecycle) intervalLoop() {
	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			hasData := len(l.suiteBuffer) > 0
			l.mu.Unlock()

			if hasData {
				// Best-effort interval flush — errors logged but not fatal
				_ = l.triggerFlush(context.Background(), FlushTriggerInterval)
			}
		case <-l.stopCh:
			return
		}
	}
}

// --- Logging helpers ---

func (l *BufferedLifecycle) logFlush(trigger FlushTrigger, suites int) {
	l.logger.Info("buffered flush", map[string]any{
		"trigger": string(trigger),
		"suites":  suites,
		"mode":    "buffered",
	})
}

func (l *BufferedLifecycle) logFlushFailure(trigger FlushTrigger, suite *allure.TestSuite, err error) {
	l.logger.Error("buffered flush failed", map[string]any{
		"trigger":    string(trigger),
		"suite_uuid": suite.UUID,
		"error":      err.Error(),
		"mode":       "buffered",
	})
}

// Verify BufferedLifecycle implements Lifecycle.
var _ Lifecycle = (*BufferedLifecycle)(nil)
