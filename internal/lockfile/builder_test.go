package lockfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forge18/depot-sub001/fetch"
	"github.com/forge18/depot-sub001/internal/cache"
	"github.com/forge18/depot-sub001/internal/manifest"
	"github.com/forge18/depot-sub001/internal/resolver"
	"github.com/forge18/depot-sub001/registry"
)

// fakeClient serves a fixed universe and materializes downloads in a temp dir.
type fakeClient struct {
	manifest  *registry.Manifest
	rockspecs map[string]string
	dir       string
	downloads map[string]int
}

type rock struct {
	name    string
	version string
	deps    []string
}

func newFakeClient(t *testing.T, rocks ...rock) *fakeClient {
	t.Helper()
	urls := fetch.NewURLs("https://registry.test")
	m := &registry.Manifest{Packages: make(map[string][]registry.PackageVersion)}
	specs := make(map[string]string)

	for _, r := range rocks {
		pv := registry.PackageVersion{
			Version:     r.version,
			RockspecURL: urls.Rockspec(r.name, r.version),
			ArchiveURL:  urls.SourceRock(r.name, r.version),
		}
		m.Packages[r.name] = append(m.Packages[r.name], pv)

		var deps strings.Builder
		for _, d := range r.deps {
			fmt.Fprintf(&deps, "   %q,\n", d)
		}
		specs[pv.RockspecURL] = fmt.Sprintf(`
package = %q
version = %q
source = {
   url = "https://example.com/%s-%s.tar.gz"
}
dependencies = {
%s}
build = {
   type = "builtin"
}
`, r.name, r.version, r.name, r.version, deps.String())
	}

	return &fakeClient{
		manifest:  m,
		rockspecs: specs,
		dir:       t.TempDir(),
		downloads: make(map[string]int),
	}
}

func (f *fakeClient) FetchManifest(ctx context.Context) (*registry.Manifest, error) {
	return f.manifest, nil
}

func (f *fakeClient) DownloadRockspec(ctx context.Context, url string) (string, error) {
	text, ok := f.rockspecs[url]
	if !ok {
		return "", fetch.ErrNotFound
	}
	return text, nil
}

func (f *fakeClient) ParseRockspec(content string) (*registry.Rockspec, error) {
	return registry.ParseRockspec(content)
}

func (f *fakeClient) DownloadSource(ctx context.Context, url string) (string, error) {
	f.downloads[url]++
	path := filepath.Join(f.dir, fetch.FilenameFromURL(url))
	if err := os.WriteFile(path, []byte("artifact for "+url), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	store, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func testManifest(deps, devDeps map[string]string) *manifest.Manifest {
	return &manifest.Manifest{
		Package:         manifest.Package{Name: "my-app", Version: "0.1.0"},
		Dependencies:    deps,
		DevDependencies: devDeps,
	}
}

func TestBuild(t *testing.T) {
	client := newFakeClient(t,
		rock{name: "a", version: "1.2.0", deps: []string{"x >= 1.0.0"}},
		rock{name: "x", version: "1.5.0"},
	)
	b := NewBuilder(client, newTestCache(t))

	lf, err := b.Build(context.Background(), testManifest(map[string]string{"a": "^1.0.0"}, nil), false)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(lf.Packages) != 2 {
		t.Fatalf("locked %d packages, want 2: %v", len(lf.Packages), lf.Names())
	}

	a := lf.Packages["a"]
	if a.Version != "1.2.0" {
		t.Errorf("a.Version = %q", a.Version)
	}
	if a.Source != "pkg:luarocks/a@1.2.0" {
		t.Errorf("a.Source = %q", a.Source)
	}
	if !strings.HasPrefix(a.Checksum, "blake3:") {
		t.Errorf("a.Checksum = %q", a.Checksum)
	}
	if a.Size <= 0 {
		t.Errorf("a.Size = %d", a.Size)
	}
	if a.Dependencies["x"] != "1.5.0" {
		t.Errorf("a.Dependencies = %v", a.Dependencies)
	}
	if a.Build == nil || a.Build.Type != "builtin" {
		t.Errorf("a.Build = %+v", a.Build)
	}
	if a.RockspecURL == "" || a.SourceURL == "" {
		t.Errorf("missing URLs: %+v", a)
	}
}

func TestBuildNoDev(t *testing.T) {
	client := newFakeClient(t,
		rock{name: "a", version: "1.2.0"},
		rock{name: "busted", version: "2.2.0"},
	)
	b := NewBuilder(client, newTestCache(t))
	m := testManifest(map[string]string{"a": "^1.0.0"}, map[string]string{"busted": "^2.0.0"})

	lf, err := b.Build(context.Background(), m, true)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, ok := lf.Packages["busted"]; ok {
		t.Error("dev dependency locked despite noDev")
	}
	if _, ok := lf.Packages["a"]; !ok {
		t.Error("regular dependency missing")
	}
}

func TestBuildLowestStrategy(t *testing.T) {
	client := newFakeClient(t,
		rock{name: "a", version: "1.0.0"},
		rock{name: "a", version: "1.9.0"},
	)
	b := NewBuilder(client, newTestCache(t), WithStrategy(resolver.Lowest))

	lf, err := b.Build(context.Background(), testManifest(map[string]string{"a": "^1.0.0"}, nil), false)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if v := lf.Packages["a"].Version; v != "1.0.0" {
		t.Errorf("a.Version = %q, want 1.0.0", v)
	}
}

func TestUpdateKeepsUnchangedVerbatim(t *testing.T) {
	client := newFakeClient(t,
		rock{name: "a", version: "1.2.0"},
		rock{name: "b", version: "3.0.0"},
	)
	b := NewBuilder(client, newTestCache(t))
	m := testManifest(map[string]string{"a": "^1.0.0", "b": "^3.0.0"}, nil)

	existing := New()
	existing.Packages["a"] = LockedPackage{
		Version:  "1.2.0",
		Source:   "pkg:luarocks/a@1.2.0",
		Checksum: "blake3:preserved",
		Size:     42,
	}
	existing.Packages["b"] = LockedPackage{
		Version:  "2.0.0",
		Checksum: "blake3:stale",
	}
	existing.Packages["gone"] = LockedPackage{Version: "1.0.0"}

	lf, err := b.Update(context.Background(), existing, m, false)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if a := lf.Packages["a"]; a.Checksum != "blake3:preserved" || a.Size != 42 {
		t.Errorf("unchanged package was re-hashed: %+v", a)
	}
	if url := client.manifest.Versions("a")[0].ArchiveURL; client.downloads[url] != 0 {
		t.Error("unchanged package was re-downloaded")
	}

	if bPkg := lf.Packages["b"]; bPkg.Version != "3.0.0" || bPkg.Checksum == "blake3:stale" {
		t.Errorf("changed package not rebuilt: %+v", bPkg)
	}
	if _, ok := lf.Packages["gone"]; ok {
		t.Error("removed package still locked")
	}
}
