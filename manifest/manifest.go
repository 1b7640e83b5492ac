// Package manifest handles lng.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "lng.toml"

var logger = commonlog.GetLogger("lng.manifest")

// Manifest represents a lng.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Runtime Runtime `toml:"runtime"`
	Log     Log     `toml:"log"`
	Modules Modules `toml:"modules"`

	// Dir is the directory containing the lng.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Runtime bounds the interpreter.
type Runtime struct {
	// StepLimit caps the steps of one run; 0 means unbounded.
	StepLimit int64 `toml:"step-limit"`
	// DefaultQueueCapacity is used by que() without an argument; 0 or
	// less means unbounded.
	DefaultQueueCapacity int `toml:"default-queue-capacity"`
	// StreamCapacity bounds a stream that names no capacity.
	StreamCapacity int `toml:"stream-capacity"`
}

// Log configures the commonlog backend.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Modules configures import resolution.
type Modules struct {
	SearchPaths []string `toml:"search-paths"`
}

// Load parses a lng.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	logger.Debugf("loaded manifest %s", path)
	return m, nil
}

// Parse decodes manifest text and fills in defaults. Unknown keys are
// rejected.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	if m.Runtime.StepLimit < 0 {
		return nil, fmt.Errorf("runtime.step-limit must not be negative, got %d", m.Runtime.StepLimit)
	}

	// Defaults
	if m.Runtime.StreamCapacity <= 0 {
		m.Runtime.StreamCapacity = 16
	}
	if len(m.Modules.SearchPaths) == 0 {
		m.Modules.SearchPaths = []string{"."}
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a lng.toml file,
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

// SearchPathDirs returns the module search paths, relative entries
// resolved against the manifest directory.
func (m *Manifest) SearchPathDirs() []string {
	var paths []string
	for _, d := range m.Modules.SearchPaths {
		if filepath.IsAbs(d) || m.Dir == "" {
			paths = append(paths, d)
			continue
		}
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// LogFilePath returns the configured log file, resolved against the
// manifest directory, or nil for standard error.
func (m *Manifest) LogFilePath() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}

// ConfigureLogging applies the [log] section to commonlog. The log
// file and its directory are created first, since the backend treats an
// unopenable file as fatal.
func (m *Manifest) ConfigureLogging() error {
	path := m.LogFilePath()
	if path != nil {
		if err := os.MkdirAll(filepath.Dir(*path), 0755); err != nil {
			return fmt.Errorf("cannot create log directory for %s: %w", *path, err)
		}
		f, err := os.OpenFile(*path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", *path, err)
		}
		f.Close()
	}
	commonlog.Configure(m.Log.Verbosity, path)
	return nil
}
