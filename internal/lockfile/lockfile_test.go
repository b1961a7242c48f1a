package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	lf := New()
	lf.Packages["penlight"] = LockedPackage{
		Version:      "1.14.0-3",
		Source:       "pkg:luarocks/penlight@1.14.0-3",
		RockspecURL:  "https://luarocks.org/penlight-1.14.0-3.rockspec",
		SourceURL:    "https://luarocks.org/penlight-1.14.0-3.src.rock",
		Checksum:     "blake3:abc123",
		Size:         4096,
		Dependencies: map[string]string{"luafilesystem": "1.8.0-1"},
		Build:        &BuildInfo{Type: "builtin", Modules: map[string]string{"pl": "lua/pl/init.lua"}},
	}

	path := filepath.Join(t.TempDir(), Filename)
	if err := lf.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Version != CurrentVersion {
		t.Errorf("Version = %d", got.Version)
	}
	if !reflect.DeepEqual(got.Packages, lf.Packages) {
		t.Errorf("Packages mismatch:\ngot  %+v\nwant %+v", got.Packages, lf.Packages)
	}
}

func TestLoadCorruptJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrLockfileCorrupt) {
		t.Fatalf("err = %v, want ErrLockfileCorrupt", err)
	}
}

func TestLoadUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	if err := os.WriteFile(path, []byte(`{"version": 99, "packages": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrLockfileCorrupt) {
		t.Fatalf("err = %v, want ErrLockfileCorrupt", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), Filename))
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestNames(t *testing.T) {
	lf := New()
	lf.Packages["zeta"] = LockedPackage{Version: "1.0.0"}
	lf.Packages["alpha"] = LockedPackage{Version: "2.0.0"}

	got := lf.Names()
	want := []string{"alpha", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestSource(t *testing.T) {
	got := Source("penlight", "1.14.0-3")
	if got != "pkg:luarocks/penlight@1.14.0-3" {
		t.Errorf("Source = %q", got)
	}
}
