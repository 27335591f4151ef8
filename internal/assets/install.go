package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"stepwise/internal/fileutil"
)

// InstallResult lists what Install did per image name.
type InstallResult struct {
	Copied  []string
	Skipped []string
	Missing []string
}

// Install copies the named images from srcDir into the store directory.
// Names absent from srcDir are reported as missing; existing files are kept
// unless overwrite is set. Installed images replace cached bytes.
func (s *Store) Install(srcDir string, names []string, overwrite bool) (InstallResult, error) {
	var result InstallResult
	if s.dir == "" {
		return result, errors.New("no image directory configured")
	}
	if fileutil.SameFile(srcDir, s.dir) {
		return result, fmt.Errorf("source %s is the image directory", srcDir)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return result, fmt.Errorf("create image directory: %w", err)
	}
	for _, name := range names {
		clean, err := cleanName(name)
		if err != nil {
			return result, err
		}
		src := filepath.Join(srcDir, clean)
		if _, err := os.Stat(src); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				result.Missing = append(result.Missing, clean)
				continue
			}
			return result, fmt.Errorf("stat %s: %w", src, err)
		}
		dst := filepath.Join(s.dir, clean)
		if !overwrite {
			if _, err := os.Stat(dst); err == nil {
				result.Skipped = append(result.Skipped, clean)
				continue
			}
		}
		if err := fileutil.CopyFileVerified(src, dst, 0o644); err != nil {
			return result, fmt.Errorf("install %s: %w", clean, err)
		}
		s.mu.Lock()
		delete(s.cache, clean)
		s.mu.Unlock()
		result.Copied = append(result.Copied, clean)
	}
	return result, nil
}
