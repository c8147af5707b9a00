package lifecycle

import (
	"context"
	"sync"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/log"
	"github.com/kolsys/allure-phpunit/results"
)

// StrictLifecycle implements synchronous, unbuffered persistence.
//
//   - No buffering: each suite is written the moment it finishes
//   - Backpressure: caller blocks on store latency at suite boundaries
//   - Store errors fail the run
type StrictLifecycle struct {
	store  results.Store
	logger *log.Logger

	mu      sync.Mutex
	builder *suiteBuilder
	rec     *statsRecorder
}

// NewStrictLifecycle creates a strict engine writing to the given store.
func NewStrictLifecycle(store results.Store, logger *log.Logger) *StrictLifecycle {
	if logger == nil {
		logger = log.NewNop()
	}
	rec := newStatsRecorder()
	return &StrictLifecycle{
		store:   store,
		logger:  logger,
		builder: newSuiteBuilder(logger, rec),
		rec:     rec,
	}
}

// Fire applies the event; a finished suite is written immediately.
// Returns error on store failure (terminates run).
func (l *StrictLifecycle) Fire(ctx context.Context, event *allure.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	l.rec.incEventFiredLocked(event.Kind)
	suite, err := l.builder.apply(event)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	if suite == nil {
		return nil
	}

	// Write immediately (batch of 1)
	if err := l.store.WriteSuite(ctx, suite); err != nil {
		l.mu.Lock()
		l.rec.incErrorsLocked()
		l.mu.Unlock()
		return err
	}

	l.mu.Lock()
	l.rec.incSuitesWrittenLocked(1)
	l.mu.Unlock()

	return nil
}

// Attach records an attachment reference on the open case.
func (l *StrictLifecycle) Attach(_ context.Context, att allure.Attachment) error {
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

// Flush is a no-op for the strict engine (nothing is buffered).
func (l *StrictLifecycle) Flush(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rec.incFlushLocked()
	return nil
}

// Close abandons any unfinished suite and closes the underlying store.
func (l *StrictLifecycle) Close() error {
	l.mu.Lock()
	l.builder.abandonOpenSuite()
	l.mu.Unlock()

	return l.store.Close()
}

// Stats returns engine statistics.
func (l *StrictLifecycle) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.rec.snapshotLocked(0)
}

// Verify StrictLifecycle implements Lifecycle.
var _ Lifecycle = (*StrictLifecycle)(nil)
