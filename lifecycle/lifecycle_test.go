package lifecycle_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/lifecycle"
	"github.com/kolsys/allure-phpunit/results"
)

func TestSetDefault_FirstWriteWins(t *testing.T) {
	lifecycle.ResetDefault()
	t.Cleanup(lifecycle.ResetDefault)

	first := lifecycle.NewNoopLifecycle(nil)
	second := lifecycle.NewNoopLifecycle(nil)

	if !lifecycle.SetDefault(first) {
		t.Fatal("first SetDefault returned false, want true")
	}
	if lifecycle.SetDefault(second) {
		t.Error("second SetDefault returned true, want false")
	}
	if lifecycle.Default() != lifecycle.Lifecycle(first) {
		t.Error("Default() should return the first-installed sink")
	}
}

func TestDefault_NilBeforeSet(t *testing.T) {
	lifecycle.ResetDefault()
	t.Cleanup(lifecycle.ResetDefault)

	if lifecycle.Default() != nil {
		t.Error("Default() before SetDefault should be nil")
	}
}

func TestResetDefault_AllowsReinstall(t *testing.T) {
	lifecycle.ResetDefault()
	t.Cleanup(lifecycle.ResetDefault)

	first := lifecycle.NewNoopLifecycle(nil)
	if !lifecycle.SetDefault(first) {
		t.Fatal("SetDefault returned false, want true")
	}

	lifecycle.ResetDefault()

	second := lifecycle.NewNoopLifecycle(nil)
	if !lifecycle.SetDefault(second) {
		t.Error("SetDefault after reset returned false, want true")
	}
	if lifecycle.Default() != lifecycle.Lifecycle(second) {
		t.Error("Default() should return the re-installed sink")
	}
}

// TestLifecycle_Stats_CrossEngineConsistency verifies that stats semantics
// are uniform across engine implementations (interface-level contract).
func TestLifecycle_Stats_CrossEngineConsistency(t *testing.T) {
	type engineFactory func(results.Store) lifecycle.Lifecycle

	factories := map[string]engineFactory{
		"StrictLifecycle": func(store results.Store) lifecycle.Lifecycle {
			return lifecycle.NewStrictLifecycle(store, nil)
		},
		"BufferedLifecycle": func(store results.Store) lifecycle.Lifecycle {
			lc, _ := lifecycle.NewBufferedLifecycle(store, lifecycle.BufferedConfig{FlushCount: 100})
			return lc
		},
		"NoopLifecycle": func(results.Store) lifecycle.Lifecycle {
			return lifecycle.NewNoopLifecycle(nil)
		},
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			store := results.NewStubStore()
			lc := factory(store)

			fireSuite(t, lc, "SuiteA", "11111111-1111-4111-8111-111111111111")
			fireSuite(t, lc, "SuiteB", "22222222-2222-4222-8222-222222222222")

			if err := lc.Flush(t.Context()); err != nil {
				t.Fatalf("Flush failed: %v", err)
			}

			stats := lc.Stats()

			// Common invariants across all engines
			if stats.EventsFired != 8 {
				t.Errorf("expected EventsFired=8, got %d", stats.EventsFired)
			}
			if stats.CasesRecorded != 2 {
				t.Errorf("expected CasesRecorded=2, got %d", stats.CasesRecorded)
			}
			if stats.SuitesWritten != 2 {
				t.Errorf("expected SuitesWritten=2, got %d", stats.SuitesWritten)
			}
			if stats.FlushCount != 1 {
				t.Errorf("expected FlushCount=1, got %d", stats.FlushCount)
			}
			if stats.EventsIgnored != 0 {
				t.Errorf("expected EventsIgnored=0, got %d", stats.EventsIgnored)
			}
			if stats.Errors != 0 {
				t.Errorf("expected Errors=0, got %d", stats.Errors)
			}
			if stats.EventsByKind == nil {
				t.Error("EventsByKind should never be nil")
			}

			if err := lc.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
		})
	}
}

// TestLifecycle_Stats_ErrorsOnStoreFailure verifies that the Errors counter
// increments on store failures across persisting engines.
func TestLifecycle_Stats_ErrorsOnStoreFailure(t *testing.T) {
	type engineFactory func(results.Store) lifecycle.Lifecycle

	factories := map[string]engineFactory{
		"StrictLifecycle": func(store results.Store) lifecycle.Lifecycle {
			return lifecycle.NewStrictLifecycle(store, nil)
		},
		"BufferedLifecycle": func(store results.Store) lifecycle.Lifecycle {
			lc, _ := lifecycle.NewBufferedLifecycle(store, lifecycle.BufferedConfig{})
			return lc
		},
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			store := results.NewStubStore()
			store.ErrorOnWrite = errors.New("store failure")
			lc := factory(store)
			ctx := t.Context()

			events := []*allure.Event{
				{Kind: allure.EventSuiteStarted, SuiteUUID: suiteUUID, SuiteName: "ExampleTest", Timestamp: baseTime},
				{Kind: allure.EventSuiteFinished, SuiteUUID: suiteUUID, Timestamp: baseTime},
			}
			// Fails immediately on strict, buffers on buffered
			for _, ev := range events {
				_ = lc.Fire(ctx, ev)
			}

			// Buffered engines surface the error on flush
			_ = lc.Flush(ctx)

			stats := lc.Stats()
			if stats.Errors < 1 {
				t.Errorf("expected Errors >= 1 on store failure, got %d", stats.Errors)
			}
			if stats.SuitesWritten != 0 {
				t.Errorf("expected SuitesWritten=0, got %d", stats.SuitesWritten)
			}
		})
	}
}

// TestLifecycle_Stats_ConcurrentAccess verifies that Stats() is safe under
// concurrent firing and flushing. Run with -race.
func TestLifecycle_Stats_ConcurrentAccess(t *testing.T) {
	store := results.NewStubStore()
	lc, err := lifecycle.NewBufferedLifecycle(store, lifecycle.BufferedConfig{FlushCount: 10})
	if err != nil {
		t.Fatalf("NewBufferedLifecycle failed: %v", err)
	}
	defer func() { _ = lc.Close() }()

	var wg sync.WaitGroup
	const numFirers = 4
	const numSuitesPerFirer = 50

	uuids := []string{
		"11111111-1111-4111-8111-111111111111",
		"22222222-2222-4222-8222-222222222222",
		"33333333-3333-4333-8333-333333333333",
		"44444444-4444-4444-8444-444444444444",
	}

	// Spawn firers; interleaved suites produce ignores and abandons,
	// never corruption
	for i := 0; i < numFirers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ctx := t.Context()
			for j := 0; j < numSuitesPerFirer; j++ {
				events := []*allure.Event{
					{Kind: allure.EventSuiteStarted, SuiteUUID: uuids[id], SuiteName: "Suite", Timestamp: baseTime},
					{Kind: allure.EventTestStarted, SuiteUUID: uuids[id], TestName: "testOne", Timestamp: baseTime},
					{Kind: allure.EventTestFinished, SuiteUUID: uuids[id], TestName: "testOne", Timestamp: baseTime},
					{Kind: allure.EventSuiteFinished, SuiteUUID: uuids[id], Timestamp: baseTime},
				}
				for _, ev := range events {
					_ = lc.Fire(ctx, ev)
				}
			}
		}(i)
	}

	// Spawn stats readers
	statsResults := make(chan lifecycle.Stats, 500)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			statsResults <- lc.Stats()
		}
	}()

	// Spawn flushers
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx := t.Context()
		for i := 0; i < 10; i++ {
			_ = lc.Flush(ctx)
		}
	}()

	wg.Wait()
	close(statsResults)

	// Validate all snapshots are internally sane
	for stats := range statsResults {
		if stats.BufferedSuites < 0 {
			t.Errorf("BufferedSuites should never be negative, got %d", stats.BufferedSuites)
		}
		if stats.EventsFired < 0 {
			t.Errorf("EventsFired should never be negative, got %d", stats.EventsFired)
		}
		if stats.SuitesWritten < 0 {
			t.Errorf("SuitesWritten should never be negative, got %d", stats.SuitesWritten)
		}
	}
}
