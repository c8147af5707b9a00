package lifecycle

import (
	"context"
	"sync"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/log"
)

// NoopLifecycle assembles suites but never writes them.
// Used for dry runs and testing: stats reflect what a real engine would
// have written, so a dry run reports meaningful suite and case counts.
type NoopLifecycle struct {
	logger *log.Logger

	mu        sync.Mutex
	builder   *suiteBuilder
	rec       *statsRecorder
	discarded int64
}

// NewNoopLifecycle creates a no-op engine.
func NewNoopLifecycle(logger *log.Logger) *NoopLifecycle {
	if logger == nil {
		logger = log.NewNop()
	}
	rec := newStatsRecorder()
	return &NoopLifecycle{
		logger:  logger,
		builder: newSuiteBuilder(logger, rec),
		rec:     rec,
	}
}

// Fire applies the event; a finished suite is discarded.
func (l *NoopLifecycle) Fire(_ context.Context, event *allure.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.rec.incEventFiredLocked(event.Kind)
	suite, err := l.builder.apply(event)
	if err != nil {
		return err
	}
	if suite != nil {
		// Counted as written so dry-run stats mirror a real engine
		l.rec.incSuitesWrittenLocked(1)
		l.discarded++
	}
	return nil
}

// Attach records an attachment reference on the open case.
func (l *NoopLifecycle) Attach(_ context.Context, att allure.Attachment) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.builder.attach(att) {
		l.rec.incEventsIgnoredLocked()
		return nil
	}
	l.rec.incAttachmentsRecordedLocked()
	return nil
}

// Flush is a no-op.
func (l *NoopLifecycle) Flush(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rec.incFlushLocked()
	return nil
}

// Close abandons any unfinished suite.
func (l *NoopLifecycle) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.builder.abandonOpenSuite()
	return nil
}

// Stats returns the engine statistics.
func (l *NoopLifecycle) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.rec.snapshotLocked(0)
}

// Discarded returns the number of completed suites thrown away.
func (l *NoopLifecycle) Discarded() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.discarded
}

// Verify NoopLifecycle implements Lifecycle.
var _ Lifecycle = (*NoopLifecycle)(nil)
