// Package manifest reads and writes depot.toml, the project manifest
// declaring the package and its dependency constraints.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Filename is the manifest file name looked up by FindRoot.
const Filename = "depot.toml"

// ErrManifestNotFound is returned by FindRoot when no depot.toml exists in
// the starting directory or any of its parents.
var ErrManifestNotFound = errors.New("no depot.toml found in this directory or any parent")

// Package identifies the project itself.
type Package struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Manifest is the parsed depot.toml.
type Manifest struct {
	Package         Package           `toml:"package"`
	Dependencies    map[string]string `toml:"dependencies,omitempty"`
	DevDependencies map[string]string `toml:"dev_dependencies,omitempty"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if m.Package.Name == "" {
		return nil, fmt.Errorf("parsing %s: package.name is required", filepath.Base(path))
	}
	return &m, nil
}

// Save writes the manifest as TOML.
func (m *Manifest) Save(path string) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// FindRoot walks up from start looking for depot.toml and returns the
// directory containing it.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, Filename)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrManifestNotFound
		}
		dir = parent
	}
}

// Requested merges the dependency tables into the root requirement set.
// Dev dependencies are included unless noDev is set.
func (m *Manifest) Requested(noDev bool) map[string]string {
	out := make(map[string]string, len(m.Dependencies)+len(m.DevDependencies))
	for name, constraint := range m.Dependencies {
		out[name] = constraint
	}
	if !noDev {
		for name, constraint := range m.DevDependencies {
			out[name] = constraint
		}
	}
	return out
}

// AddDependency records a new constraint in the chosen table.
func (m *Manifest) AddDependency(name, constraint string, dev bool) {
	if dev {
		if m.DevDependencies == nil {
			m.DevDependencies = make(map[string]string)
		}
		m.DevDependencies[name] = constraint
		return
	}
	if m.Dependencies == nil {
		m.Dependencies = make(map[string]string)
	}
	m.Dependencies[name] = constraint
}
