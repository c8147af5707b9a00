// Package lifecycle applies report events to the Allure suite model and
// persists completed suites.
//
// Engines consume the ordered event stream one event at a time: suite and
// case state is assembled by an internal builder, and a completed suite is
// handed to the results store according to the engine's write discipline.
// StrictLifecycle writes each suite the moment it finishes; BufferedLifecycle
// defers writes behind count/interval/termination triggers; NoopLifecycle
// counts and discards.
package lifecycle

import (
	"context"
	"sync"

	"github.com/kolsys/allure-phpunit/allure"
)

// Lifecycle consumes report events and persists completed suites.
//
// Events arrive in emission order from a single goroutine. Implementations
// are nevertheless safe for concurrent use; Stats may be called from other
// goroutines at any time.
type Lifecycle interface {
	// Fire applies a report event.
	// Returns error on invalid events or when a triggered write fails;
	// the caller decides whether to terminate the run.
	Fire(ctx context.Context, event *allure.Event) error

	// Attach records an attachment reference on the currently open case.
	// Attachments arriving outside an open case are counted and dropped.
	Attach(ctx context.Context, att allure.Attachment) error

	// Flush persists any buffered suites.
	// Called on run completion, run error, or runtime termination.
	Flush(ctx context.Context) error

	// Close releases engine resources. An unfinished suite is abandoned,
	// never written.
	Close() error

	// Stats returns engine statistics for observability.
	// Returns an atomic snapshot of counters at a point in time.
	Stats() Stats
}

// Stats represents lifecycle engine observability metrics.
type Stats struct {
	// EventsFired is the total number of events received.
	EventsFired int64
	// EventsByKind maps event kinds to receive counts.
	EventsByKind map[allure.EventKind]int64
	// EventsIgnored is the number of events dropped as stale or
	// out-of-state (late statuses, unmatched suite finishes).
	EventsIgnored int64
	// SuitesWritten is the number of suites handed to the store.
	SuitesWritten int64
	// SuitesAbandoned is the number of suites discarded unfinished.
	SuitesAbandoned int64
	// CasesRecorded is the number of cases closed into suites.
	CasesRecorded int64
	// AttachmentsRecorded is the number of attachment references routed
	// to open cases.
	AttachmentsRecorded int64
	// BufferedSuites is the current number of suites awaiting flush
	// (buffered engine only).
	BufferedSuites int64
	// FlushCount is the number of flush operations.
	FlushCount int64
	// Errors is the count of write errors encountered.
	Errors int64
}

// statsRecorder is an internal helper for thread-safe stats management.
// Engines call explicit methods to record mutations; the recorder does not
// infer or automate any engine decisions.
//
// Lock discipline: engines guard builder state and stats with their own mu
// and use the Locked methods while holding it. This keeps counters atomic
// with the suite state they describe.
type statsRecorder struct {
	stats Stats
}

// newStatsRecorder creates a recorder with an initialized EventsByKind map.
func newStatsRecorder() *statsRecorder {
	return &statsRecorder{
		stats: Stats{
			EventsByKind: make(map[allure.EventKind]int64),
		},
	}
}

// --- Locked methods ---
// Caller must hold the owning engine's mu.

func (r *statsRecorder) incEventFiredLocked(kind allure.EventKind) {
	r.stats.EventsFired++
	r.stats.EventsByKind[kind]++
}

func (r *statsRecorder) incEventsIgnoredLocked() {
	r.stats.EventsIgnored++
}

func (r *statsRecorder) incSuitesWrittenLocked(n int64) {
	r.stats.SuitesWritten += n
}

func (r *statsRecorder) incSuitesAbandonedLocked() {
	r.stats.SuitesAbandoned++
}

func (r *statsRecorder) incCasesRecordedLocked(n int64) {
	r.stats.CasesRecorded += n
}

func (r *statsRecorder) incAttachmentsRecordedLocked() {
	r.stats.AttachmentsRecorded++
}

func (r *statsRecorder) incFlushLocked() {
	r.stats.FlushCount++
}

func (r *statsRecorder) incErrorsLocked() {
	r.stats.Errors++
}

// snapshotLocked returns an atomic snapshot of stats with the given
// buffered suite count. Caller must hold the owning engine's mu.
func (r *statsRecorder) snapshotLocked(bufferedSuites int64) Stats {
	s := r.stats
	s.BufferedSuites = bufferedSuites
	s.EventsByKind = make(map[allure.EventKind]int64, len(r.stats.EventsByKind))
	for k, v := range r.stats.EventsByKind {
		s.EventsByKind[k] = v
	}
	return s
}

// --- Process-wide default ---

var (
	defaultMu        sync.Mutex
	defaultLifecycle Lifecycle
)

// SetDefault installs the process-wide lifecycle sink.
// The first call wins; later calls leave the installed sink in place and
// return false.
func SetDefault(lc Lifecycle) bool {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLifecycle != nil {
		return false
	}
	defaultLifecycle = lc
	return true
}

// Default returns the process-wide lifecycle sink, or nil if none was set.
func Default() Lifecycle {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultLifecycle
}

// ResetDefault clears the process-wide sink. Tests only.
func ResetDefault() {
	defaultMu.Lock()
	defaultLifecycle = nil
	defaultMu.Unlock()
}
