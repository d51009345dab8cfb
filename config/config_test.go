package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dropset/cubench/config"
	"github.com/dropset/cubench/testutil"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cubench.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
images_dir = "/opt/images"
programs = ["manifest"]
json = true
`)
	c, err := config.Load(path)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	want := config.Config{ImagesDir: "/opt/images", Programs: []string{"manifest"}, JSON: true}
	testutil.Equal(t, c, want)

	if _, err := config.Load(""); err != nil {
		t.Errorf("empty path: %v", err)
	}
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("missing file: no error")
	}
	if _, err := config.Load(writeConfig(t, "images_dir = [broken")); err == nil {
		t.Error("malformed file: no error")
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv(config.EnvImagesDir, "/from/env")
	fileCfg := config.Config{ImagesDir: "/from/file", Programs: []string{"phoenix"}}

	// Flag beats file beats env.
	c, err := config.Resolve(fileCfg, "/from/flag", nil, false)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if c.ImagesDir != "/from/flag" {
		t.Errorf("images dir: got %q", c.ImagesDir)
	}
	testutil.Equal(t, c.Programs, []string{"phoenix"})

	c, err = config.Resolve(fileCfg, "", []string{"manifest"}, true)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if c.ImagesDir != "/from/file" {
		t.Errorf("images dir: got %q", c.ImagesDir)
	}
	testutil.Equal(t, c.Programs, []string{"manifest"})
	if !c.JSON {
		t.Error("json flag dropped")
	}

	c, err = config.Resolve(config.Config{}, "", nil, false)
	if err != nil {
		testutil.FatalErr(t, err)
	}
	if c.ImagesDir != "/from/env" {
		t.Errorf("images dir: got %q", c.ImagesDir)
	}
	testutil.Equal(t, c.Programs, config.DefaultPrograms)
}

func TestResolveRequiresImagesDir(t *testing.T) {
	t.Setenv(config.EnvImagesDir, "")
	_, err := config.Resolve(config.Config{}, "", nil, false)
	if err == nil {
		t.Fatal("no error with images dir unset")
	}
	if !strings.Contains(err.Error(), config.EnvImagesDir) {
		t.Errorf("error %q does not name %s", err, config.EnvImagesDir)
	}
}
