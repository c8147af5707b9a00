// Package metrics provides per-run metrics collection.
//
// The Collector accumulates counters during a single run. It is a leaf package
// with no internal dependencies. Lifecycle sink metrics are absorbed from
// lifecycle.Stats at run completion rather than recorded live, avoiding
// double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all collected metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Run lifecycle
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	RunsCrashed   int64

	// Report lifecycle (absorbed from lifecycle.Stats at run completion)
	EventsFired   int64
	EventsIgnored int64
	SuitesWritten int64
	CasesRecorded int64
	EventsByKind  map[string]int64
	FlushTriggers map[string]int64

	// Runner
	RunnerLaunchSuccess int64
	RunnerLaunchFailure int64
	RunnerCrash         int64
	IPCDecodeErrors     int64

	// Storage
	StoreWriteSuccess int64
	StoreWriteFailure int64
	StoreWriteRetry   int64 // reserved for future use, always 0 in v0.4.x

	// Dimensions (informational, set at construction)
	Mode           string
	Runner         string
	StorageBackend string
	RunID          string
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	// Run lifecycle
	runsStarted   int64
	runsCompleted int64
	runsFailed    int64
	runsCrashed   int64

	// Runner
	runnerLaunchSuccess int64
	runnerLaunchFailure int64
	runnerCrash         int64
	ipcDecodeErrors     int64

	// Storage
	storeWriteSuccess int64
	storeWriteFailure int64

	// Report lifecycle (set once via AbsorbLifecycleStats)
	eventsFired   int64
	eventsIgnored int64
	suitesWritten int64
	casesRecorded int64
	eventsByKind  map[string]int64
	flushTriggers map[string]int64

	// Dimensions
	mode           string
	runner         string
	storageBackend string
	runID          string
}

// NewCollector creates a Collector with dimension labels.
// mode, runner, and storageBackend are required; runID is optional.
func NewCollector(mode, runner, storageBackend, runID string) *Collector {
	return &Collector{
		eventsByKind:   make(map[string]int64),
		mode:           mode,
		runner:         runner,
		storageBackend: storageBackend,
		runID:          runID,
	}
}

// --- Run lifecycle ---

// IncRunStarted records a run start.
func (c *Collector) IncRunStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsStarted++
	c.mu.Unlock()
}

// IncRunCompleted records a successful run completion.
func (c *Collector) IncRunCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsCompleted++
	c.mu.Unlock()
}

// IncRunFailed records a run failure (test failures or store failure).
func (c *Collector) IncRunFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsFailed++
	c.mu.Unlock()
}

// IncRunCrashed records a run crash (runner exited abnormally).
func (c *Collector) IncRunCrashed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsCrashed++
	c.mu.Unlock()
}

// --- Runner ---

// IncRunnerLaunchSuccess records a successful runner launch.
func (c *Collector) IncRunnerLaunchSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runnerLaunchSuccess++
	c.mu.Unlock()
}

// IncRunnerLaunchFailure records a failed runner launch.
func (c *Collector) IncRunnerLaunchFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runnerLaunchFailure++
	c.mu.Unlock()
}

// IncRunnerCrash records a runner crash detected during ingestion.
func (c *Collector) IncRunnerCrash() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runnerCrash++
	c.mu.Unlock()
}

// IncIPCDecodeErrors records an IPC frame decode error.
func (c *Collector) IncIPCDecodeErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.ipcDecodeErrors++
	c.mu.Unlock()
}

// --- Storage ---
// Store counters are per-call, not per-record. A single WriteSuite call
// counts as 1 success. Per-case granularity is tracked separately by
// lifecycle.Stats.

// IncStoreWriteSuccess records a successful store write operation (per-call).
func (c *Collector) IncStoreWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeWriteSuccess++
	c.mu.Unlock()
}

// IncStoreWriteFailure records a failed store write operation (per-call).
func (c *Collector) IncStoreWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeWriteFailure++
	c.mu.Unlock()
}

// --- Report lifecycle (absorbed from lifecycle.Stats) ---

// AbsorbLifecycleStats copies report lifecycle counters into the collector.
// Called once after run completion with the final lifecycle stats snapshot.
// Map keys are string-typed event kinds to keep this package free of
// dependencies on the allure package.
func (c *Collector) AbsorbLifecycleStats(fired, ignored, suitesWritten, casesRecorded int64, eventsByKind, flushTriggers map[string]int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsFired = fired
	c.eventsIgnored = ignored
	c.suitesWritten = suitesWritten
	c.casesRecorded = casesRecorded
	c.eventsByKind = make(map[string]int64, len(eventsByKind))
	for k, v := range eventsByKind {
		c.eventsByKind[k] = v
	}
	if flushTriggers != nil {
		c.flushTriggers = make(map[string]int64, len(flushTriggers))
		for k, v := range flushTriggers {
			c.flushTriggers[k] = v
		}
	}
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[string]int64, len(c.eventsByKind))
	for k, v := range c.eventsByKind {
		byKind[k] = v
	}
	var triggers map[string]int64
	if c.flushTriggers != nil {
		triggers = make(map[string]int64, len(c.flushTriggers))
		for k, v := range c.flushTriggers {
			triggers[k] = v
		}
	}

	return Snapshot{
		RunsStarted:   c.runsStarted,
		RunsCompleted: c.runsCompleted,
		RunsFailed:    c.runsFailed,
		RunsCrashed:   c.runsCrashed,

		EventsFired:   c.eventsFired,
		EventsIgnored: c.eventsIgnored,
		SuitesWritten: c.suitesWritten,
		CasesRecorded: c.casesRecorded,
		EventsByKind:  byKind,
		FlushTriggers: triggers,

		RunnerLaunchSuccess: c.runnerLaunchSuccess,
		RunnerLaunchFailure: c.runnerLaunchFailure,
		RunnerCrash:         c.runnerCrash,
		IPCDecodeErrors:     c.ipcDecodeErrors,

		StoreWriteSuccess: c.storeWriteSuccess,
		StoreWriteFailure: c.storeWriteFailure,
		StoreWriteRetry:   0, // reserved for future use

		Mode:           c.mode,
		Runner:         c.runner,
		StorageBackend: c.storageBackend,
		RunID:          c.runID,
	}
}
