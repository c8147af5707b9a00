// Package results persists Allure report files.
//
// The Store interface abstracts the results directory. The filesystem
// implementation writes the flat file layout Allure report generators
// consume: one {uuid}-testsuite.xml per suite plus {uuid}-attachment.*
// files referenced from test cases.
package results

import (
	"context"
	"sync"

	"github.com/kolsys/allure-phpunit/allure"
)

// Store abstracts persistence of report files.
// Implementations may write to a local directory, object storage, or stub
// for testing.
type Store interface {
	// WriteSuite persists a completed suite report.
	// Must be atomic: readers never observe a partially written suite.
	// Returns error on failure; caller decides whether to fail the run.
	WriteSuite(ctx context.Context, suite *allure.TestSuite) error

	// WriteAttachment persists attachment bytes under the given source name.
	// The source must be a bare file name produced by BuildAttachmentSource.
	WriteAttachment(ctx context.Context, source, mediaType string, data []byte) error

	// Close releases any resources held by the store.
	Close() error
}

// WriteOp represents a write operation for ordering verification.
type WriteOp struct {
	Type       string // "suite" or "attachment"
	Suite      *allure.TestSuite
	Source     string
	MediaType  string
	Attachment []byte
}

// StubStore is a test store that accepts writes without persisting.
// Tracks write statistics for test assertions.
type StubStore struct {
	mu sync.Mutex

	// SuitesWritten is the total count of suites written.
	SuitesWritten int64
	// AttachmentsWritten is the total count of attachments written.
	AttachmentsWritten int64
	// Closed indicates whether Close was called.
	Closed bool

	// WrittenSuites stores all written suites for inspection.
	WrittenSuites []*allure.TestSuite
	// WrittenAttachments stores all written attachment sources for inspection.
	WrittenAttachments []string

	// WriteOrder tracks the order of write operations for ordering tests.
	WriteOrder []WriteOp

	// ErrorOnWrite, if non-nil, is returned by WriteSuite/WriteAttachment.
	ErrorOnWrite error
}

// NewStubStore creates a new stub store for testing.
func NewStubStore() *StubStore {
	return &StubStore{
		WrittenSuites:      make([]*allure.TestSuite, 0),
		WrittenAttachments: make([]string, 0),
		WriteOrder:         make([]WriteOp, 0),
	}
}

// WriteSuite records the suite without persisting.
func (s *StubStore) WriteSuite(_ context.Context, suite *allure.TestSuite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}

	s.SuitesWritten++
	s.WrittenSuites = append(s.WrittenSuites, suite)
	s.WriteOrder = append(s.WriteOrder, WriteOp{Type: "suite", Suite: suite})

	return nil
}

// WriteAttachment records the attachment without persisting.
func (s *StubStore) WriteAttachment(_ context.Context, source, mediaType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}

	s.AttachmentsWritten++
	s.WrittenAttachments = append(s.WrittenAttachments, source)
	s.WriteOrder = append(s.WriteOrder, WriteOp{
		Type:       "attachment",
		Source:     source,
		MediaType:  mediaType,
		Attachment: data,
	})

	return nil
}

// Close marks the store as closed.
func (s *StubStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Closed = true
	return nil
}

// Stats returns a snapshot of store statistics.
func (s *StubStore) Stats() StubStoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StubStoreStats{
		SuitesWritten:      s.SuitesWritten,
		AttachmentsWritten: s.AttachmentsWritten,
		Closed:             s.Closed,
	}
}

// StubStoreStats is a snapshot of StubStore statistics.
type StubStoreStats struct {
	SuitesWritten      int64
	AttachmentsWritten int64
	Closed             bool
}

// Verify StubStore implements Store.
var _ Store = (*StubStore)(nil)
