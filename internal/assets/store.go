// Package assets loads instruction images from disk on first use and keeps
// them in memory for the life of the process.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned for images missing from the asset directory.
var ErrNotFound = errors.New("asset not found")

// maxAssetBytes bounds a single instruction image.
const maxAssetBytes = 8 << 20

// Store serves instruction images from a directory.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string][]byte
}

// NewStore returns a store rooted at dir. An empty dir yields a store that
// has no images.
func NewStore(dir string) *Store {
	return &Store{dir: strings.TrimSpace(dir), cache: make(map[string][]byte)}
}

// Dir returns the asset directory.
func (s *Store) Dir() string { return s.dir }

// Load returns the bytes of the named image.
func (s *Store) Load(name string) ([]byte, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.cache[clean]
	s.mu.RUnlock()
	if ok {
		return data, nil
	}
	if s.dir == "" {
		return nil, fmt.Errorf("%w: %s (no image directory configured)", ErrNotFound, clean)
	}

	path := filepath.Join(s.dir, clean)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return nil, fmt.Errorf("stat asset %s: %w", clean, err)
	}
	if info.Size() > maxAssetBytes {
		return nil, fmt.Errorf("asset %s is %d bytes, limit %d", clean, info.Size(), maxAssetBytes)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", clean, err)
	}

	s.mu.Lock()
	if cached, ok := s.cache[clean]; ok {
		data = cached
	} else {
		s.cache[clean] = data
	}
	s.mu.Unlock()
	return data, nil
}

// Missing returns the names that cannot be loaded, sorted.
func (s *Store) Missing(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var missing []string
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, err := s.Load(name); err != nil {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrNotFound)
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid name %q", ErrNotFound, name)
	}
	return name, nil
}
