package results

import (
	"context"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/metrics"
)

// InstrumentedStore wraps a Store and records write metrics.
// Each WriteSuite/WriteAttachment call increments store_write_success or
// store_write_failure on the metrics collector.
type InstrumentedStore struct {
	inner     Store
	collector *metrics.Collector
}

// NewInstrumentedStore wraps a store with metrics instrumentation.
func NewInstrumentedStore(inner Store, collector *metrics.Collector) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, collector: collector}
}

// WriteSuite delegates to the inner store and records success or failure.
func (s *InstrumentedStore) WriteSuite(ctx context.Context, suite *allure.TestSuite) error {
	err := s.inner.WriteSuite(ctx, suite)
	if err != nil {
		s.collector.IncStoreWriteFailure()
	} else {
		s.collector.IncStoreWriteSuccess()
	}
	return err
}

// WriteAttachment delegates to the inner store and records success or failure.
func (s *InstrumentedStore) WriteAttachment(ctx context.Context, source, mediaType string, data []byte) error {
	err := s.inner.WriteAttachment(ctx, source, mediaType, data)
	if err != nil {
		s.collector.IncStoreWriteFailure()
	} else {
		s.collector.IncStoreWriteSuccess()
	}
	return err
}

// Close delegates to the inner store.
func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}

// Verify InstrumentedStore implements Store.
var _ Store = (*InstrumentedStore)(nil)
