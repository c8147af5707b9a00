package runtime

import (
	"fmt"
	"sync"

	"github.com/kolsys/allure-phpunit/ipc"
	"github.com/kolsys/allure-phpunit/phpunit"
)

// MaxAttachmentSize is the maximum allowed assembled attachment size (1 GiB).
const MaxAttachmentSize = 1 * 1024 * 1024 * 1024

// AttachmentAccumulator collects the chunks of one attachment.
type AttachmentAccumulator struct {
	AttachmentID string
	Chunks       []*phpunit.AttachmentChunk
	NextSeq      int64
	TotalBytes   int64
	// Complete is set once the is_last chunk arrived.
	Complete bool
	// Committed is set once the commit record arrived and the size matched.
	Committed bool
	// ErrorState marks an accumulator that failed size reconciliation.
	ErrorState bool
}

// Bytes joins the chunk data in sequence order.
func (a *AttachmentAccumulator) Bytes() []byte {
	data := make([]byte, 0, a.TotalBytes)
	for _, chunk := range a.Chunks {
		data = append(data, chunk.Data...)
	}
	return data
}

// AttachmentAssembler manages attachment chunk accumulation and orphan
// tracking. Chunks and the commit record may arrive in either order.
// Thread-safe for concurrent access.
type AttachmentAssembler struct {
	mu           sync.RWMutex
	accumulators map[string]*AttachmentAccumulator
	// pendingCommits tracks attachments where the commit arrived before
	// all chunks. Maps attachment_id -> declared size_bytes.
	pendingCommits map[string]int64
}

// NewAttachmentAssembler creates a new attachment assembler.
func NewAttachmentAssembler() *AttachmentAssembler {
	return &AttachmentAssembler{
		accumulators:   make(map[string]*AttachmentAccumulator),
		pendingCommits: make(map[string]int64),
	}
}

// AddChunk adds a chunk to an attachment. Seq starts at 1 per attachment
// and must be strictly increasing.
//
// The returned bool is true when this chunk completed an attachment whose
// commit record already arrived and whose size reconciled, meaning the
// attachment is ready to persist.
//
// Returns error if:
//   - seq is not the expected next sequence
//   - a chunk arrives after is_last was seen
//   - chunk data exceeds the max chunk size
//   - accumulated size exceeds MaxAttachmentSize
//   - the declared commit size does not match once is_last is seen
func (m *AttachmentAssembler) AddChunk(chunk *phpunit.AttachmentChunk) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(chunk.Data) > ipc.MaxChunkSize {
		return false, fmt.Errorf("attachment %s: chunk size %d exceeds max %d",
			chunk.AttachmentID, len(chunk.Data), ipc.MaxChunkSize)
	}

	acc, exists := m.accumulators[chunk.AttachmentID]
	if !exists {
		acc = &AttachmentAccumulator{
			AttachmentID: chunk.AttachmentID,
			Chunks:       make([]*phpunit.AttachmentChunk, 0),
			NextSeq:      1,
		}
		m.accumulators[chunk.AttachmentID] = acc
	}

	if chunk.Seq != acc.NextSeq {
		return false, fmt.Errorf("attachment %s: expected seq %d, got %d",
			chunk.AttachmentID, acc.NextSeq, chunk.Seq)
	}

	if acc.Complete {
		return false, fmt.Errorf("attachment %s: chunk received after is_last", chunk.AttachmentID)
	}

	newTotal := acc.TotalBytes + int64(len(chunk.Data))
	if newTotal > MaxAttachmentSize {
		return false, fmt.Errorf("attachment %s: size %d exceeds max %d",
			chunk.AttachmentID, newTotal, MaxAttachmentSize)
	}

	acc.Chunks = append(acc.Chunks, chunk)
	acc.TotalBytes = newTotal
	acc.NextSeq++

	if !chunk.IsLast {
		return false, nil
	}
	acc.Complete = true

	// If the commit arrived before the chunks, reconcile size now
	declaredSize, pending := m.pendingCommits[chunk.AttachmentID]
	if !pending {
		return false, nil
	}
	delete(m.pendingCommits, chunk.AttachmentID)

	if acc.TotalBytes != declaredSize {
		acc.ErrorState = true
		return false, fmt.Errorf("attachment %s: size mismatch (chunks=%d, declared=%d)",
			chunk.AttachmentID, acc.TotalBytes, declaredSize)
	}
	acc.Committed = true
	return true, nil
}

// Commit records the attachment commit record. Chunks may arrive before
// or after this call.
//
// The returned bool is true when the chunks are already complete and the
// size reconciled, meaning the attachment is ready to persist. When the
// chunks are still in flight the commit is tracked and AddChunk signals
// readiness on the final chunk.
//
// Returns error if:
//   - size_bytes exceeds MaxAttachmentSize
//   - size_bytes does not match the accumulated bytes of complete chunks
func (m *AttachmentAssembler) Commit(attachmentID string, sizeBytes int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sizeBytes > MaxAttachmentSize {
		return false, fmt.Errorf("attachment %s: declared size %d exceeds max %d",
			attachmentID, sizeBytes, MaxAttachmentSize)
	}

	acc, exists := m.accumulators[attachmentID]
	if !exists {
		// Commit arrived before any chunks. Track the declared size for
		// reconciliation when the chunks complete.
		m.pendingCommits[attachmentID] = sizeBytes
		m.accumulators[attachmentID] = &AttachmentAccumulator{
			AttachmentID: attachmentID,
			Chunks:       make([]*phpunit.AttachmentChunk, 0),
			NextSeq:      1,
		}
		return false, nil
	}

	if !acc.Complete {
		m.pendingCommits[attachmentID] = sizeBytes
		return false, nil
	}

	if acc.TotalBytes != sizeBytes {
		acc.ErrorState = true
		return false, fmt.Errorf("attachment %s: size mismatch (chunks=%d, declared=%d)",
			attachmentID, acc.TotalBytes, sizeBytes)
	}
	acc.Committed = true
	return true, nil
}

// Assembled returns the joined bytes of a committed attachment.
func (m *AttachmentAssembler) Assembled(attachmentID string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, exists := m.accumulators[attachmentID]
	if !exists || !acc.Committed {
		return nil, false
	}
	return acc.Bytes(), true
}

// Get returns the accumulator for an attachment.
func (m *AttachmentAssembler) Get(attachmentID string) (*AttachmentAccumulator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, exists := m.accumulators[attachmentID]
	return acc, exists
}

// OrphanIDs returns the attachment IDs with chunks but no commit. These
// are dropped at end of run.
//
// Attachments with a pending commit are not orphans; they have a valid
// commit and are waiting for data.
func (m *AttachmentAssembler) OrphanIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var orphans []string
	for id, acc := range m.accumulators {
		if acc.Committed || acc.ErrorState || len(acc.Chunks) == 0 {
			continue
		}
		if _, hasPendingCommit := m.pendingCommits[id]; hasPendingCommit {
			continue
		}
		orphans = append(orphans, id)
	}
	return orphans
}

// Stats returns attachment accumulation statistics.
func (m *AttachmentAssembler) Stats() AttachmentStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := AttachmentStats{}
	for id, acc := range m.accumulators {
		stats.TotalAttachments++
		stats.TotalChunks += int64(len(acc.Chunks))
		stats.TotalBytes += acc.TotalBytes

		switch {
		case acc.Committed:
			stats.CommittedAttachments++
		case acc.ErrorState:
			// Failed reconciliation, neither committed nor orphaned
		case len(acc.Chunks) > 0:
			if _, hasPendingCommit := m.pendingCommits[id]; !hasPendingCommit {
				stats.OrphanedAttachments++
			}
		}
	}
	return stats
}

// AttachmentStats holds attachment accumulation statistics.
type AttachmentStats struct {
	TotalAttachments     int64
	CommittedAttachments int64
	OrphanedAttachments  int64
	TotalChunks          int64
	TotalBytes           int64
}
