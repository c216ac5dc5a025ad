package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempFilePrefix marks files that are half written. Watchers and listings skip them.
const TempFilePrefix = ".draft-tmp-"

// writeFileAtomic replaces filename with data so that readers see either the
// old or the new content, never a partial write. The directory must exist.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(filename), TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		_ = os.Remove(tmp.Name())
		committed = true
		return fmt.Errorf("rename into %s: %w", filepath.Base(filename), err)
	}
	committed = true
	return nil
}
