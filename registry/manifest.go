package registry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/forge18/depot-sub001/fetch"
)

// PackageVersion is one published version of a package with its artifact URLs.
type PackageVersion struct {
	Version     string
	RockspecURL string
	ArchiveURL  string
}

// Manifest is the registry's package index.
type Manifest struct {
	Packages map[string][]PackageVersion
}

// manifestJSON mirrors the LuaRocks manifest format. Each version maps to a
// list of available architectures, which this parser does not need.
type manifestJSON struct {
	Repository map[string]map[string][]struct {
		Arch string `json:"arch"`
	} `json:"repository"`
}

// ParseManifest decodes a LuaRocks JSON manifest and fills in per-version
// artifact URLs relative to the registry base.
func ParseManifest(data []byte, urls fetch.URLs) (*Manifest, error) {
	var raw manifestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	m := &Manifest{Packages: make(map[string][]PackageVersion, len(raw.Repository))}
	for name, versions := range raw.Repository {
		list := make([]PackageVersion, 0, len(versions))
		for v := range versions {
			list = append(list, PackageVersion{
				Version:     v,
				RockspecURL: urls.Rockspec(name, v),
				ArchiveURL:  urls.SourceRock(name, v),
			})
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Version < list[j].Version })
		m.Packages[name] = list
	}
	return m, nil
}

// Versions returns the published versions of name, or nil if unknown.
func (m *Manifest) Versions(name string) []PackageVersion {
	return m.Packages[name]
}

// Has reports whether the registry publishes name.
func (m *Manifest) Has(name string) bool {
	_, ok := m.Packages[name]
	return ok
}
