package assets

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestInstallCopiesSkipsAndReportsMissing(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "images")
	for name, body := range map[string]string{"base.PNG": "base", "pipe.PNG": "pipe"} {
		if err := os.WriteFile(filepath.Join(src, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s := NewStore(dst)
	result, err := s.Install(src, []string{"base.PNG", "pipe.PNG", "shade.PNG"}, false)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !reflect.DeepEqual(result.Copied, []string{"base.PNG", "pipe.PNG"}) {
		t.Fatalf("copied = %v", result.Copied)
	}
	if !reflect.DeepEqual(result.Missing, []string{"shade.PNG"}) {
		t.Fatalf("missing = %v", result.Missing)
	}
	if data, err := s.Load("base.PNG"); err != nil || string(data) != "base" {
		t.Fatalf("Load after install = %q, %v", data, err)
	}

	if err := os.WriteFile(filepath.Join(src, "base.PNG"), []byte("base v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	result, err = s.Install(src, []string{"base.PNG"}, false)
	if err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if !reflect.DeepEqual(result.Skipped, []string{"base.PNG"}) || len(result.Copied) != 0 {
		t.Fatalf("expected skip, got %+v", result)
	}

	result, err = s.Install(src, []string{"base.PNG"}, true)
	if err != nil || len(result.Copied) != 1 {
		t.Fatalf("overwrite Install = %+v, %v", result, err)
	}
	if data, err := s.Load("base.PNG"); err != nil || string(data) != "base v2" {
		t.Fatalf("expected refreshed cache, got %q, %v", data, err)
	}
}

func TestInstallRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewStore("").Install(dir, []string{"base.PNG"}, false); err == nil {
		t.Fatal("expected error without image dir")
	}
	if _, err := NewStore(dir).Install(dir, []string{"base.PNG"}, false); err == nil {
		t.Fatal("expected error when source is the image dir")
	}
	if _, err := NewStore(t.TempDir()).Install(dir, []string{"../x.png"}, false); err == nil {
		t.Fatal("expected error for traversal name")
	}
}
