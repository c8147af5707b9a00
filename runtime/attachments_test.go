package runtime

import (
	"bytes"
	"testing"

	"github.com/kolsys/allure-phpunit/phpunit"
)

func TestAttachmentAssembler_MaxAttachmentSize(t *testing.T) {
	m := NewAttachmentAssembler()

	_, err := m.Commit("oversized", MaxAttachmentSize+1)
	if err == nil {
		t.Fatal("expected error for oversized attachment commit")
	}
}

func TestAttachmentAssembler_ChunkExceedsMaxChunkSize(t *testing.T) {
	m := NewAttachmentAssembler()

	// Chunk data exceeds max chunk size (8 MiB)
	oversizedData := make([]byte, 8*1024*1024+1)
	_, err := m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "att-1",
		Seq:          1,
		IsLast:       true,
		Data:         oversizedData,
	})
	if err == nil {
		t.Fatal("expected error for chunk exceeding max chunk size")
	}
}

func TestAttachmentAssembler_ChunksThenCommit(t *testing.T) {
	m := NewAttachmentAssembler()

	ready, err := m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "att-1",
		Seq:          1,
		IsLast:       false,
		Data:         []byte("hello "),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ready {
		t.Error("attachment reported ready before commit")
	}

	ready, err = m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "att-1",
		Seq:          2,
		IsLast:       true,
		Data:         []byte("world"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ready {
		t.Error("attachment reported ready before commit")
	}

	ready, err = m.Commit("att-1", 11)
	if err != nil {
		t.Fatalf("unexpected error on commit: %v", err)
	}
	if !ready {
		t.Fatal("attachment not ready after commit with complete chunks")
	}

	data, ok := m.Assembled("att-1")
	if !ok {
		t.Fatal("Assembled returned no data for committed attachment")
	}
	if !bytes.Equal(data, []byte("hello world")) {
		t.Errorf("assembled data = %q, want %q", data, "hello world")
	}
}

func TestAttachmentAssembler_CommitBeforeChunks_SizeMismatch(t *testing.T) {
	m := NewAttachmentAssembler()

	ready, err := m.Commit("att-1", 100)
	if err != nil {
		t.Fatalf("unexpected error on commit before chunks: %v", err)
	}
	if ready {
		t.Error("attachment reported ready with no chunks")
	}

	_, err = m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "att-1",
		Seq:          1,
		IsLast:       true,
		Data:         make([]byte, 50),
	})
	if err == nil {
		t.Fatal("expected error for size mismatch when is_last arrives")
	}

	// Pending commit is cleaned up; not reported as orphan
	for _, id := range m.OrphanIDs() {
		if id == "att-1" {
			t.Error("attachment with size mismatch reported as orphan")
		}
	}

	acc, _ := m.Get("att-1")
	if !acc.ErrorState {
		t.Error("accumulator not in error state after size mismatch")
	}
	if _, ok := m.Assembled("att-1"); ok {
		t.Error("Assembled returned data for failed attachment")
	}
}

func TestAttachmentAssembler_CommitBeforeChunks_SizeMatch(t *testing.T) {
	m := NewAttachmentAssembler()

	if _, err := m.Commit("att-1", 100); err != nil {
		t.Fatalf("unexpected error on commit before chunks: %v", err)
	}

	ready, err := m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "att-1",
		Seq:          1,
		IsLast:       true,
		Data:         make([]byte, 100),
	})
	if err != nil {
		t.Fatalf("unexpected error for matching size: %v", err)
	}
	if !ready {
		t.Fatal("final chunk did not signal readiness for pending commit")
	}

	acc, _ := m.Get("att-1")
	if !acc.Committed {
		t.Error("attachment not committed after size reconciliation")
	}
}

func TestAttachmentAssembler_SequenceViolation(t *testing.T) {
	m := NewAttachmentAssembler()

	_, err := m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "att-1",
		Seq:          1,
		IsLast:       false,
		Data:         []byte("chunk1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Seq 3 where 2 is expected
	_, err = m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "att-1",
		Seq:          3,
		IsLast:       true,
		Data:         []byte("chunk3"),
	})
	if err == nil {
		t.Fatal("expected error for sequence violation")
	}
}

func TestAttachmentAssembler_ChunkAfterIsLast(t *testing.T) {
	m := NewAttachmentAssembler()

	_, err := m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "att-1",
		Seq:          1,
		IsLast:       true,
		Data:         []byte("final"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "att-1",
		Seq:          2,
		IsLast:       false,
		Data:         []byte("extra"),
	})
	if err == nil {
		t.Fatal("expected error for chunk after is_last")
	}
}

func TestAttachmentAssembler_OrphanTracking(t *testing.T) {
	m := NewAttachmentAssembler()

	_, _ = m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "orphan1",
		Seq:          1,
		IsLast:       true,
		Data:         []byte("data"),
	})
	_, _ = m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "orphan2",
		Seq:          1,
		IsLast:       true,
		Data:         []byte("data"),
	})

	// Commit one
	_, _ = m.Commit("orphan1", 4)

	orphans := m.OrphanIDs()
	if len(orphans) != 1 {
		t.Fatalf("expected 1 orphan, got %d", len(orphans))
	}
	if orphans[0] != "orphan2" {
		t.Errorf("expected orphan2, got %s", orphans[0])
	}
}

func TestAttachmentAssembler_CommitBeforeChunks_NotOrphan(t *testing.T) {
	m := NewAttachmentAssembler()

	if _, err := m.Commit("pending", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Partial data, not complete yet
	_, err := m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "pending",
		Seq:          1,
		IsLast:       false,
		Data:         make([]byte, 5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range m.OrphanIDs() {
		if id == "pending" {
			t.Error("attachment with pending commit reported as orphan")
		}
	}

	stats := m.Stats()
	if stats.OrphanedAttachments != 0 {
		t.Errorf("expected 0 orphaned attachments, got %d", stats.OrphanedAttachments)
	}
}

func TestAttachmentAssembler_Stats(t *testing.T) {
	m := NewAttachmentAssembler()

	_, _ = m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "committed",
		Seq:          1,
		IsLast:       true,
		Data:         make([]byte, 64),
	})
	_, _ = m.Commit("committed", 64)

	_, _ = m.AddChunk(&phpunit.AttachmentChunk{
		AttachmentID: "orphan",
		Seq:          1,
		IsLast:       true,
		Data:         make([]byte, 32),
	})

	stats := m.Stats()
	if stats.TotalAttachments != 2 {
		t.Errorf("TotalAttachments = %d, want 2", stats.TotalAttachments)
	}
	if stats.CommittedAttachments != 1 {
		t.Errorf("CommittedAttachments = %d, want 1", stats.CommittedAttachments)
	}
	if stats.OrphanedAttachments != 1 {
		t.Errorf("OrphanedAttachments = %d, want 1", stats.OrphanedAttachments)
	}
	if stats.TotalChunks != 2 {
		t.Errorf("TotalChunks = %d, want 2", stats.TotalChunks)
	}
	if stats.TotalBytes != 96 {
		t.Errorf("TotalBytes = %d, want 96", stats.TotalBytes)
	}
}
