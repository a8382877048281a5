package file

import (
	"fmt"
	"os"
)

// WriteSnapshot replaces path with data. A reader never sees a partial file.
func WriteSnapshot(path string, data []byte) error {
	err := writeAtomic(path, func(tmp string) error {
		return os.WriteFile(tmp, data, 0o644) //nolint:gosec // snapshots are public reference data
	})
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
