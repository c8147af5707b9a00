// Package bootstrap provides embedded PHP listener bundle management.
//
// The listener bundle is embedded at build time and extracted to a
// temporary directory on first use. This keeps the allure-phpunit binary
// self-contained: no composer package needs to be installed in the
// project under test for the frame stream to work.
package bootstrap

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kolsys/allure-phpunit/allure"
)

//go:embed bundle/listener.php
var embeddedListener []byte

// extractOnce ensures extraction happens only once per process.
var extractOnce sync.Once
var extractedPath string
var extractErr error

// EmbeddedVersion returns the version of the embedded bundle.
// This matches allure.Version under the lockstep versioning policy.
func EmbeddedVersion() string {
	return allure.Version
}

// EmbeddedSize returns the size of the embedded bundle in bytes.
func EmbeddedSize() int {
	return len(embeddedListener)
}

// EmbeddedChecksum returns the SHA256 checksum of the embedded bundle.
func EmbeddedChecksum() string {
	hash := sha256.Sum256(embeddedListener)
	return hex.EncodeToString(hash[:])
}

// IsEmbedded returns true if a listener bundle is embedded in this binary.
func IsEmbedded() bool {
	return len(embeddedListener) > 0
}

// ExtractedPath returns the path to the extracted listener bundle.
// Extracts on first call; subsequent calls return the cached path.
// Returns an error if extraction fails.
func ExtractedPath() (string, error) {
	extractOnce.Do(func() {
		extractedPath, extractErr = extractListener()
	})
	return extractedPath, extractErr
}

// extractListener extracts the embedded bundle to a temp directory.
func extractListener() (string, error) {
	if !IsEmbedded() {
		return "", fmt.Errorf("no embedded listener bundle available")
	}

	// Hash-based directory name so multiple versions can coexist
	checksum := EmbeddedChecksum()[:16]
	dirName := fmt.Sprintf("allure-phpunit-bootstrap-%s-%s", allure.Version, checksum)
	tempDir := filepath.Join(os.TempDir(), dirName)

	listenerPath := filepath.Join(tempDir, "listener.php")

	// Check if already extracted (idempotent)
	if info, err := os.Stat(listenerPath); err == nil && info.Size() == int64(len(embeddedListener)) {
		return listenerPath, nil
	}

	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	if err := os.WriteFile(listenerPath, embeddedListener, 0o644); err != nil {
		return "", fmt.Errorf("failed to write listener bundle: %w", err)
	}

	return listenerPath, nil
}

// Cleanup removes the extracted bundle directory.
// Safe to call multiple times or if extraction never happened.
func Cleanup() error {
	if extractedPath == "" {
		return nil
	}

	dir := filepath.Dir(extractedPath)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to cleanup listener bundle: %w", err)
	}

	return nil
}
