package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCachesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.PNG")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewStore(dir)
	data, err := s.Load("base.PNG")
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("Load = %q, %v", data, err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	data, err = s.Load("base.PNG")
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("expected cached bytes, got %q, %v", data, err)
	}
}

func TestLoadRejectsMissingAndTraversal(t *testing.T) {
	s := NewStore(t.TempDir())
	for _, name := range []string{"", "nope.png", "../etc/passwd", "a/b.png", ".."} {
		if _, err := s.Load(name); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%q: expected ErrNotFound, got %v", name, err)
		}
	}
	if _, err := NewStore("").Load("base.PNG"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("store without dir must report not found, got %v", err)
	}
}

func TestMissing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pipe.PNG"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := NewStore(dir).Missing([]string{"shade.PNG", "pipe.PNG", "base.PNG", "shade.PNG"})
	if len(got) != 2 || got[0] != "base.PNG" || got[1] != "shade.PNG" {
		t.Fatalf("unexpected missing %v", got)
	}
}
