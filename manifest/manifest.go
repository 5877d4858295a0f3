// Package manifest handles mj.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project file.
const FileName = "mj.toml"

// DefaultMaxErrors is the diagnostic bound used when the manifest sets none.
const DefaultMaxErrors = 1000

// Manifest represents an mj.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Build   Build   `toml:"build"`

	// Dir is the directory containing the mj.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// Build configures what gets compiled and where the results go.
type Build struct {
	Sources      []string `toml:"sources"`
	OutputDir    string   `toml:"output-dir"`
	Listing      bool     `toml:"listing"`
	DebugSymbols bool     `toml:"debug-symbols"`
	MaxErrors    *int     `toml:"max-errors"` // nil means DefaultMaxErrors; 0 means unlimited
}

// Load parses an mj.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes manifest text and applies defaults. Unknown keys are an error.
func Parse(data string) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(data, &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := m.validate(); err != nil {
		return nil, err
	}

	// Defaults
	if m.Build.OutputDir == "" {
		m.Build.OutputDir = "."
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Build.MaxErrors != nil && *m.Build.MaxErrors < 0 {
		return fmt.Errorf("build.max-errors must not be negative, got %d", *m.Build.MaxErrors)
	}
	for _, src := range m.Build.Sources {
		if src == "" {
			return fmt.Errorf("build.sources contains an empty path")
		}
	}
	return nil
}

// FindAndLoad walks up from startDir to find an mj.toml file,
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

// MaxErrors returns the effective diagnostic bound.
func (m *Manifest) MaxErrors() int {
	if m.Build.MaxErrors == nil {
		return DefaultMaxErrors
	}
	return *m.Build.MaxErrors
}

// SourcePaths returns absolute paths for the configured sources.
func (m *Manifest) SourcePaths() []string {
	var paths []string
	for _, s := range m.Build.Sources {
		paths = append(paths, m.resolve(s))
	}
	return paths
}

// OutputDirPath returns the absolute output directory.
func (m *Manifest) OutputDirPath() string {
	return m.resolve(m.Build.OutputDir)
}

// ObjectPath returns where the object for src is written: the output
// directory joined with the source's base name, extension replaced by ".obj".
func (m *Manifest) ObjectPath(src string) string {
	return filepath.Join(m.OutputDirPath(), ReplaceExt(filepath.Base(src), ".obj"))
}

// ReplaceExt swaps the extension of path for ext, or appends ext if there is none.
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
