package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// writeAtomic creates path's directory, lets write fill a temporary file
// next to path, then renames it over path.
func writeAtomic(path string, write func(tmp string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// Keep the extension: some writers pick the format from it.
	base, ext := filepath.Base(path), filepath.Ext(path)
	f, err := os.CreateTemp(dir, "."+strings.TrimSuffix(base, ext)+"-*"+ext)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	defer os.Remove(tmp) //nolint:errcheck // no-op after a successful rename

	if err := write(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
