package runtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kolsys/allure-phpunit/log"
	"github.com/kolsys/allure-phpunit/notify"
)

// DefaultNotifyTimeout bounds each notifier's Publish call.
const DefaultNotifyTimeout = 15 * time.Second

// DefaultNotifyParallel bounds concurrent notifier publishes.
const DefaultNotifyParallel = 4

// NotifierResult records one notifier's delivery outcome for the run
// report.
type NotifierResult struct {
	Name       string `json:"name"`
	Delivered  bool   `json:"delivered"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// NotifierFanOut delivers run completion events to all configured
// notifiers concurrently. Delivery failures are logged and recorded per
// notifier; they never surface as errors because notification is
// best-effort and must not alter the run outcome.
type NotifierFanOut struct {
	notifiers []notify.Adapter
	timeout   time.Duration
	parallel  int
	logger    *log.Logger

	delivered atomic.Int64
	failed    atomic.Int64
}

// NewNotifierFanOut creates a fan-out over the given notifiers.
// timeout bounds each Publish call, parallel bounds concurrency;
// zero values take the defaults.
func NewNotifierFanOut(notifiers []notify.Adapter, timeout time.Duration, parallel int, logger *log.Logger) *NotifierFanOut {
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	if parallel <= 0 {
		parallel = DefaultNotifyParallel
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &NotifierFanOut{
		notifiers: notifiers,
		timeout:   timeout,
		parallel:  parallel,
		logger:    logger,
	}
}

// Publish fans the event out to every notifier and blocks until all
// deliveries finish or time out.
func (f *NotifierFanOut) Publish(ctx context.Context, event *notify.RunCompletedEvent) []NotifierResult {
	if len(f.notifiers) == 0 {
		return nil
	}

	results := make([]NotifierResult, len(f.notifiers))
	sem := make(chan struct{}, f.parallel)
	var wg sync.WaitGroup

	for i, n := range f.notifiers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			publishCtx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()

			start := time.Now()
			err := n.Publish(publishCtx, event)
			elapsed := time.Since(start)

			result := NotifierResult{
				Name:       n.Name(),
				DurationMs: elapsed.Milliseconds(),
			}
			if err != nil {
				f.failed.Add(1)
				result.Error = err.Error()
				f.logger.Warn("notifier delivery failed", map[string]any{
					"notifier":    n.Name(),
					"error":       err.Error(),
					"duration_ms": elapsed.Milliseconds(),
				})
			} else {
				f.delivered.Add(1)
				result.Delivered = true
				f.logger.Debug("notifier delivered", map[string]any{
					"notifier":    n.Name(),
					"duration_ms": elapsed.Milliseconds(),
				})
			}
			results[i] = result
		}()
	}

	wg.Wait()
	return results
}

// Close closes every notifier and returns the first close error.
func (f *NotifierFanOut) Close() error {
	var firstErr error
	for _, n := range f.notifiers {
		if err := n.Close(); err != nil {
			f.logger.Warn("notifier close failed", map[string]any{
				"notifier": n.Name(),
				"error":    err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// FanOutStats reports delivery counters.
type FanOutStats struct {
	Notifiers int
	Delivered int64
	Failed    int64
}

// Stats returns a snapshot of delivery counters.
func (f *NotifierFanOut) Stats() FanOutStats {
	return FanOutStats{
		Notifiers: len(f.notifiers),
		Delivered: f.delivered.Load(),
		Failed:    f.failed.Load(),
	}
}
