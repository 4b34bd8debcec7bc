// Package manifest handles tape.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// FileName is the name of the project configuration file.
const FileName = "tape.toml"

var validate = validator.New()

// Manifest represents a tape.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Run     RunConfig   `toml:"run"`
	Log     LogConfig   `toml:"log"`
	Image   ImageConfig `toml:"image"`

	// Dir is the directory containing the tape.toml file (set at load time).
	Dir string `toml:"-" validate:"-" jsonschema:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" validate:"omitempty,max=64" jsonschema:"maxLength=64"`
	Version string `toml:"version" validate:"omitempty,semver" jsonschema:"description=Semantic version"`
}

// RunConfig configures program execution.
type RunConfig struct {
	Trace   bool          `toml:"trace"`
	Timeout time.Duration `toml:"timeout" validate:"gte=0"` // 0 means no limit
}

// LogConfig configures commonlog output.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" validate:"gte=-4,lte=2" jsonschema:"minimum=-4,maximum=2"`
	File      string `toml:"file" jsonschema:"description=Log file relative to tape.toml; empty logs to stderr"`
}

// ImageConfig configures compiled image output.
type ImageConfig struct {
	Output string `toml:"output"`
}

// Default returns the configuration used when no tape.toml exists.
func Default() *Manifest {
	return &Manifest{Image: ImageConfig{Output: "."}}
}

// Load parses a tape.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if _, err := toml.Decode(string(data), m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Image.Output == "" {
		m.Image.Output = "."
	}

	return m, nil
}

// FindAndLoad walks up from startDir to find a tape.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks field constraints.
func (m *Manifest) Validate() error {
	return validate.Struct(m)
}

// LogFilePath returns the absolute log file path, or "" for stderr.
func (m *Manifest) LogFilePath() string {
	return m.resolve(m.Log.File)
}

// ImageOutputDir returns the absolute directory for built images.
func (m *Manifest) ImageOutputDir() string {
	return m.resolve(m.Image.Output)
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
