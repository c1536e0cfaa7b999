package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

func EnsureDirectoryExist(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory %q: %w", dirPath, err)
	}
	return nil
}

// Exists reports whether path exists. Errors other than "not exist" are
// treated as existing so callers surface them on the next operation.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
