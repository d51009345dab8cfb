// Package testutil has helpers shared by tests across the module.
package testutil

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

// FatalErr calls t.Fatal with err, including its stack trace when the
// error carries one.
func FatalErr(t testing.TB, err error) {
	t.Helper()
	t.Fatalf("%+v", err)
}

// Equal compares got and want with reflect.DeepEqual and fails with a
// full dump of both values on mismatch.
func Equal(t testing.TB, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got:\n%swant:\n%s", spew.Sdump(got), spew.Sdump(want))
	}
}

// ImagesDir creates a temp directory holding a fake .so image for each
// named program, for wiring image loaders in tests. The bytes are
// arbitrary; only presence and non-emptiness matter.
func ImagesDir(t testing.TB, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		path := filepath.Join(dir, name+".so")
		if err := os.WriteFile(path, []byte("\x7fELF "+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
