package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestNewImageLoaderFailsFast(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		dir  string
	}{
		{"unset", ""},
		{"missing", filepath.Join(t.TempDir(), "nope")},
		{"not a directory", file},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewImageLoader(c.dir)
			if errors.Cause(err) != ErrMissingImage {
				t.Errorf("got %v, want ErrMissingImage", err)
			}
		})
	}
}

func TestImageLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.so"), []byte("image bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "hollow.so"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := NewImageLoader(dir)
	if err != nil {
		t.Fatal(err)
	}

	img, err := l.Load("manifest")
	if err != nil {
		t.Fatal(err)
	}
	if string(img) != "image bytes" {
		t.Errorf("image = %q", img)
	}

	if _, err := l.Load("absent"); errors.Cause(err) != ErrMissingImage {
		t.Errorf("absent image: got %v, want ErrMissingImage", err)
	}
	if _, err := l.Load("hollow"); errors.Cause(err) != ErrMissingImage {
		t.Errorf("empty image: got %v, want ErrMissingImage", err)
	}

	// Loads are cached; the file can disappear afterwards.
	if err := os.Remove(filepath.Join(dir, "manifest.so")); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Load("manifest"); err != nil {
		t.Errorf("cached load: %v", err)
	}
}
