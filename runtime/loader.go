package runtime

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// ImageLoader reads compiled program images from a configured
// directory. A load is performed at most once per image per process;
// the bytes are shared read-only by every fixture that uses them.
//
// A missing or empty image is a hard error. Silently proceeding
// without the binary would produce near-zero "measurements" that are
// indistinguishable from genuinely cheap instructions.
type ImageLoader struct {
	dir   string
	group singleflight.Group

	mu    sync.Mutex
	cache map[string][]byte
}

// NewImageLoader returns a loader rooted at dir. The directory itself
// is checked eagerly so a misconfigured environment fails before any
// fixture is constructed.
func NewImageLoader(dir string) (*ImageLoader, error) {
	if dir == "" {
		return nil, errors.Wrap(ErrMissingImage, "program image directory not configured")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(ErrMissingImage, "program image directory %s: %v", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrMissingImage, "%s is not a directory", dir)
	}
	return &ImageLoader{dir: dir, cache: make(map[string][]byte)}, nil
}

// Load returns the image bytes for <dir>/<name>.so.
func (l *ImageLoader) Load(name string) ([]byte, error) {
	l.mu.Lock()
	if img, ok := l.cache[name]; ok {
		l.mu.Unlock()
		return img, nil
	}
	l.mu.Unlock()

	v, err, _ := l.group.Do(name, func() (interface{}, error) {
		path := filepath.Join(l.dir, name+".so")
		img, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(ErrMissingImage, "read %s: %v", path, err)
		}
		if len(img) == 0 {
			return nil, errors.Wrapf(ErrMissingImage, "%s is empty", path)
		}
		l.mu.Lock()
		l.cache[name] = img
		l.mu.Unlock()
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
