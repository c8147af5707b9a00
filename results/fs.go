package results

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kolsys/allure-phpunit/allure"
)

// DefaultOutputDir is the results directory used when none is configured.
const DefaultOutputDir = "build/allure-results"

// FSConfig holds filesystem store configuration.
type FSConfig struct {
	// Dir is the results directory. Created if missing.
	Dir string
	// Purge removes regular files from Dir before the run.
	// Subdirectories are left untouched.
	Purge bool
}

// FSStore writes report files to a local results directory.
//
// Suite and attachment writes are atomic: content lands in a temp file in
// the same directory and is renamed into place, so report generators never
// observe partial files.
type FSStore struct {
	dir string

	mu     sync.Mutex
	closed bool
}

// NewFSStore creates a filesystem store rooted at cfg.Dir.
// The directory is created if missing. When cfg.Purge is set, regular files
// in the directory are removed; any filesystem error during setup is fatal.
func NewFSStore(cfg FSConfig) (*FSStore, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultOutputDir
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, WrapInitError(err, dir)
	}

	if cfg.Purge {
		if err := purgeDir(dir); err != nil {
			return nil, err
		}
	}

	return &FSStore{dir: dir}, nil
}

// Dir returns the results directory path.
func (s *FSStore) Dir() string {
	return s.dir
}

// WriteSuite marshals the suite and writes it atomically as
// {uuid}-testsuite.xml.
func (s *FSStore) WriteSuite(ctx context.Context, suite *allure.TestSuite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageError(ErrNotFound, "write", s.dir, fmt.Errorf("store is closed"))
	}

	data, err := suite.Marshal()
	if err != nil {
		return fmt.Errorf("marshal suite %s: %w", suite.UUID, err)
	}

	name := BuildSuiteFileName(suite.UUID)
	return s.writeFileAtomic(name, data)
}

// WriteAttachment writes attachment bytes atomically under the source name.
func (s *FSStore) WriteAttachment(ctx context.Context, source, _ string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateSource(source); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageError(ErrNotFound, "write", s.dir, fmt.Errorf("store is closed"))
	}

	return s.writeFileAtomic(source, data)
}

// Close marks the store closed. Subsequent writes fail.
func (s *FSStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// writeFileAtomic writes data to a temp file in the results directory and
// renames it into place. Caller holds s.mu.
func (s *FSStore) writeFileAtomic(name string, data []byte) error {
	target := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return WrapWriteError(err, target)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return WrapWriteError(err, target)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return WrapWriteError(err, target)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return WrapWriteError(err, target)
	}

	return nil
}

// purgeDir removes regular files from dir. Subdirectories and anything
// inside them are left untouched. Any filesystem error aborts the purge.
func purgeDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return WrapPurgeError(err, dir)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return WrapPurgeError(err, path)
		}
	}

	return nil
}

// Verify FSStore implements Store.
var _ Store = (*FSStore)(nil)
