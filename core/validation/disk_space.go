package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"outlook_backend/core"
)

// MinHistoryFreeBytes is the free space below which the history database
// check reports a warning.
const MinHistoryFreeBytes = 100 * core.BytesPerMB

// DiskSpaceError indicates a disk space problem.
type DiskSpaceError struct {
	Path      string
	Required  int64
	Available int64
}

func (e *DiskSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
		e.Path, core.FormatBytes(e.Required), core.FormatBytes(e.Available))
}

// FreeSpace returns the bytes available to the current user on the
// filesystem holding path. Missing trailing components are skipped, so a
// database file that does not exist yet is measured at its nearest
// existing parent.
func FreeSpace(path string) (int64, error) {
	dir, err := existingDir(path)
	if err != nil {
		return 0, err
	}
	free, err := freeBytes(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to get disk space for %s: %w", dir, err)
	}
	return free, nil
}

// CheckDiskSpace returns a *DiskSpaceError when less than required bytes
// are free at path.
func CheckDiskSpace(path string, required int64) error {
	free, err := FreeSpace(path)
	if err != nil {
		return err
	}
	if free < required {
		return &DiskSpaceError{Path: path, Required: required, Available: free}
	}
	return nil
}

func existingDir(path string) (string, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		info, err := os.Stat(p)
		if err == nil {
			if info.IsDir() {
				return p, nil
			}
			return filepath.Dir(p), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("cannot access path %s: %w", p, err)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("no existing parent for %s", path)
		}
		p = parent
	}
}
