package fs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// TempFilePrefix is the prefix of temporary files created during atomic
// writes. The watcher ignores files carrying it.
const TempFilePrefix = "meteora-tmp-"

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over filename, so readers see either the old or the new content.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(filename), TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name()) // no-op after a successful rename

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}

// writeIfChanged writes data atomically unless filename already holds it.
// It reports whether a write happened.
func writeIfChanged(filename string, data []byte, perm os.FileMode) (bool, error) {
	if current, err := os.ReadFile(filename); err == nil && bytes.Equal(current, data) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}
	if err := writeFileAtomic(filename, data, perm); err != nil {
		return false, err
	}
	return true, nil
}
