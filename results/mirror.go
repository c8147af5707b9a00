package results

import (
	"context"
	"sync"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/log"
)

// MirrorStore writes to a primary store and mirrors every write to a
// secondary store. Primary failures are returned to the caller; mirror
// failures are logged and counted but never fail the run.
//
// Typical wiring: FSStore primary for the local report, S3Store mirror
// for archival.
type MirrorStore struct {
	primary Store
	mirror  Store
	logger  *log.Logger

	mu            sync.Mutex
	mirrorErrors  int64
	lastMirrorErr error
}

// NewMirrorStore creates a mirroring store.
func NewMirrorStore(primary, mirror Store, logger *log.Logger) *MirrorStore {
	if logger == nil {
		logger = log.NewNop()
	}
	return &MirrorStore{
		primary: primary,
		mirror:  mirror,
		logger:  logger,
	}
}

// WriteSuite writes to the primary, then mirrors best-effort.
func (s *MirrorStore) WriteSuite(ctx context.Context, suite *allure.TestSuite) error {
	if err := s.primary.WriteSuite(ctx, suite); err != nil {
		return err
	}
	if err := s.mirror.WriteSuite(ctx, suite); err != nil {
		s.recordMirrorError("suite", suite.UUID, err)
	}
	return nil
}

// WriteAttachment writes to the primary, then mirrors best-effort.
func (s *MirrorStore) WriteAttachment(ctx context.Context, source, mediaType string, data []byte) error {
	if err := s.primary.WriteAttachment(ctx, source, mediaType, data); err != nil {
		return err
	}
	if err := s.mirror.WriteAttachment(ctx, source, mediaType, data); err != nil {
		s.recordMirrorError("attachment", source, err)
	}
	return nil
}

// Close closes both stores. The primary close error wins.
func (s *MirrorStore) Close() error {
	primaryErr := s.primary.Close()
	if err := s.mirror.Close(); err != nil && primaryErr == nil {
		// Mirror close failures follow the same best-effort rule as writes
		s.recordMirrorError("close", "", err)
	}
	return primaryErr
}

// MirrorErrors returns the count and last error of failed mirror writes.
func (s *MirrorStore) MirrorErrors() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirrorErrors, s.lastMirrorErr
}

func (s *MirrorStore) recordMirrorError(kind, name string, err error) {
	s.mu.Lock()
	s.mirrorErrors++
	s.lastMirrorErr = err
	s.mu.Unlock()

	s.logger.Warn("mirror write failed", map[string]any{
		"kind":  kind,
		"name":  name,
		"error": err.Error(),
	})
}

// Verify MirrorStore implements Store.
var _ Store = (*MirrorStore)(nil)
