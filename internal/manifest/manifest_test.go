package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `[package]
name = "my-app"
version = "0.1.0"

[dependencies]
penlight = "^1.13.0"
luasocket = ">=3.0.0"

[dev_dependencies]
busted = "~2.2.0"
`

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, Filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, t.TempDir(), sampleManifest)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Package.Name != "my-app" || m.Package.Version != "0.1.0" {
		t.Errorf("package = %+v", m.Package)
	}
	if m.Dependencies["penlight"] != "^1.13.0" {
		t.Errorf("dependencies = %v", m.Dependencies)
	}
	if m.DevDependencies["busted"] != "~2.2.0" {
		t.Errorf("dev_dependencies = %v", m.DevDependencies)
	}
}

func TestLoadMissingName(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "[package]\nversion = \"0.1.0\"\n")

	if _, err := Load(path); err == nil {
		t.Fatal("manifest without package.name accepted")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "[package\nname = oops")

	if _, err := Load(path); err == nil {
		t.Fatal("invalid TOML accepted")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{
		Package:      Package{Name: "demo", Version: "1.0.0"},
		Dependencies: map[string]string{"penlight": "^1.13.0"},
	}

	path := filepath.Join(dir, Filename)
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Package.Name != "demo" || got.Dependencies["penlight"] != "^1.13.0" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, sampleManifest)
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindRoot(nested)
	if err != nil {
		t.Fatalf("FindRoot failed: %v", err)
	}
	// TempDir may sit behind a symlink on some platforms, so compare the
	// manifest's presence rather than the literal path.
	if _, err := os.Stat(filepath.Join(got, Filename)); err != nil {
		t.Errorf("FindRoot returned %s without a manifest", got)
	}
}

func TestFindRootNotFound(t *testing.T) {
	if _, err := FindRoot(t.TempDir()); !errors.Is(err, ErrManifestNotFound) {
		t.Fatalf("err = %v, want ErrManifestNotFound", err)
	}
}

func TestRequested(t *testing.T) {
	m := &Manifest{
		Dependencies:    map[string]string{"penlight": "^1.13.0"},
		DevDependencies: map[string]string{"busted": "~2.2.0"},
	}

	all := m.Requested(false)
	if len(all) != 2 {
		t.Errorf("Requested(false) = %v", all)
	}
	noDev := m.Requested(true)
	if len(noDev) != 1 || noDev["penlight"] == "" {
		t.Errorf("Requested(true) = %v", noDev)
	}
}

func TestAddDependency(t *testing.T) {
	m := &Manifest{Package: Package{Name: "demo"}}

	m.AddDependency("penlight", "^1.13.0", false)
	m.AddDependency("busted", "~2.2.0", true)

	if m.Dependencies["penlight"] != "^1.13.0" {
		t.Errorf("dependencies = %v", m.Dependencies)
	}
	if m.DevDependencies["busted"] != "~2.2.0" {
		t.Errorf("dev_dependencies = %v", m.DevDependencies)
	}
}
