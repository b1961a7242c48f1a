// Package lockfile defines the depot.lock format and the builder that
// produces it from a resolved dependency set.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// Filename is the lockfile name written next to depot.toml.
const Filename = "depot.lock"

// CurrentVersion is the lockfile schema version this build reads and writes.
const CurrentVersion = 1

// ErrLockfileCorrupt is returned by Load when the file exists but cannot be
// interpreted. A corrupt lockfile is never silently repaired.
var ErrLockfileCorrupt = errors.New("lockfile is corrupt")

// BuildInfo carries the build section of the package's rockspec.
type BuildInfo struct {
	Type    string            `json:"type"`
	Modules map[string]string `json:"modules,omitempty"`
}

// LockedPackage pins one resolved package.
type LockedPackage struct {
	Version      string            `json:"version"`
	Source       string            `json:"source"`
	RockspecURL  string            `json:"rockspec_url"`
	SourceURL    string            `json:"source_url"`
	Checksum     string            `json:"checksum"`
	Size         int64             `json:"size"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Build        *BuildInfo        `json:"build,omitempty"`
}

// Lockfile is the full depot.lock document.
type Lockfile struct {
	Version  int                      `json:"version"`
	Packages map[string]LockedPackage `json:"packages"`
}

// New returns an empty lockfile at the current schema version.
func New() *Lockfile {
	return &Lockfile{
		Version:  CurrentVersion,
		Packages: make(map[string]LockedPackage),
	}
}

// Load reads a lockfile from disk. A missing file surfaces as the underlying
// fs error; malformed content or an unknown schema version is
// ErrLockfileCorrupt.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lf Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockfileCorrupt, err)
	}
	if lf.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrLockfileCorrupt, lf.Version)
	}
	if lf.Packages == nil {
		lf.Packages = make(map[string]LockedPackage)
	}
	return &lf, nil
}

// Save writes the lockfile as indented JSON.
func (l *Lockfile) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding lockfile: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing lockfile: %w", err)
	}
	return nil
}

// Package looks up one locked package by name.
func (l *Lockfile) Package(name string) (LockedPackage, bool) {
	p, ok := l.Packages[name]
	return p, ok
}

// Names returns the locked package names in sorted order.
func (l *Lockfile) Names() []string {
	names := make([]string, 0, len(l.Packages))
	for name := range l.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source renders the package-URL identity recorded for a locked package.
func Source(name, version string) string {
	return fmt.Sprintf("pkg:luarocks/%s@%s", name, version)
}
