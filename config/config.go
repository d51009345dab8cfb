// Package config resolves the tool's settings from, in order of
// precedence, command-line flags, an optional TOML file, and the
// environment.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// EnvImagesDir is the environment fallback for the images directory.
const EnvImagesDir = "CUBENCH_PROGRAM_IMAGES"

// DefaultPrograms is the benchmark matrix when no selection is given.
var DefaultPrograms = []string{"manifest", "phoenix"}

// Config holds the resolved settings for a run.
type Config struct {
	// ImagesDir is the directory holding <program>.so images. It has
	// no default: a run without it is refused loudly rather than
	// silently measuring nothing.
	ImagesDir string `toml:"images_dir"`
	// Programs selects which targets to benchmark.
	Programs []string `toml:"programs"`
	// JSON switches the report to machine-readable output.
	JSON bool `toml:"json"`
}

// Load reads a TOML config file. A missing path yields a zero Config
// with no error so the caller can fall through to flags and env.
func Load(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, nil
	}
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, errors.Wrapf(err, "config file %s", path)
	}
	return c, nil
}

// Resolve layers flag values over the file config and the environment
// under them, then validates the result.
func Resolve(fileCfg Config, flagImagesDir string, flagPrograms []string, flagJSON bool) (Config, error) {
	c := fileCfg
	if flagImagesDir != "" {
		c.ImagesDir = flagImagesDir
	}
	if c.ImagesDir == "" {
		c.ImagesDir = os.Getenv(EnvImagesDir)
	}
	if len(flagPrograms) > 0 {
		c.Programs = flagPrograms
	}
	if len(c.Programs) == 0 {
		c.Programs = DefaultPrograms
	}
	if flagJSON {
		c.JSON = true
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.ImagesDir == "" {
		return errors.Errorf("no program images directory: set --images, images_dir in the config file, or %s", EnvImagesDir)
	}
	if len(c.Programs) == 0 {
		return errors.New("no programs selected")
	}
	return nil
}
