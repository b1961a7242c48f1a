package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestPaths(t *testing.T) {
	c := newTestCache(t)

	if got := c.RockspecPath("penlight", "1.14.0-3"); !strings.HasSuffix(got, "penlight-1.14.0-3.rockspec") {
		t.Errorf("RockspecPath = %s", got)
	}
	if got := c.ManifestPath(); !strings.HasSuffix(got, filepath.Join("rockspecs", "manifest.json")) {
		t.Errorf("ManifestPath = %s", got)
	}
}

func TestSourcePathHashesURL(t *testing.T) {
	c := newTestCache(t)

	a := c.SourcePath("https://example.com/a.tar.gz")
	b := c.SourcePath("https://example.com/b.tar.gz")
	if a == b {
		t.Fatal("distinct URLs mapped to the same path")
	}
	if filepath.Dir(a) != c.SourcesDir() {
		t.Errorf("source path outside sources dir: %s", a)
	}
	if noExt := c.SourcePath("https://example.com/archive"); !strings.HasSuffix(noExt, ".tar.gz") {
		t.Errorf("extensionless URL should default to .tar.gz, got %s", noExt)
	}
}

func TestReadWrite(t *testing.T) {
	c := newTestCache(t)
	path := c.RockspecPath("penlight", "1.14.0")

	if c.Exists(path) {
		t.Fatal("file exists before write")
	}
	if err := c.Write(path, []byte("rockspec body")); err != nil {
		t.Fatal(err)
	}
	if !c.Exists(path) {
		t.Fatal("file missing after write")
	}
	data, err := c.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "rockspec body" {
		t.Fatalf("read back %q", data)
	}

	if _, err := c.Read(filepath.Join(c.Root(), "nope")); err == nil {
		t.Fatal("reading a missing file succeeded")
	}
}

func TestFresh(t *testing.T) {
	c := newTestCache(t)
	path := c.ManifestPath()
	if err := c.Write(path, []byte("{}")); err != nil {
		t.Fatal(err)
	}

	if !c.Fresh(path, time.Hour) {
		t.Error("just-written file reported stale")
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
	if c.Fresh(path, time.Hour) {
		t.Error("2h-old file reported fresh with 1h ttl")
	}
	if c.Fresh(filepath.Join(c.Root(), "missing"), time.Hour) {
		t.Error("missing file reported fresh")
	}
}

func TestChecksumFormats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact")
	if err := os.WriteFile(path, []byte("test data"), 0o644); err != nil {
		t.Fatal(err)
	}

	b3, err := Checksum(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(b3, "blake3:") || len(b3) != len("blake3:")+64 {
		t.Errorf("default checksum %q", b3)
	}

	s256, err := ChecksumWith(path, SHA256)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(s256, "sha256:") || len(s256) != len("sha256:")+64 {
		t.Errorf("sha256 checksum %q", s256)
	}
}

func TestChecksumDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("same content"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ca, _ := Checksum(a)
	cb, _ := Checksum(b)
	if ca != cb {
		t.Fatalf("same content, different checksums: %s != %s", ca, cb)
	}

	if err := os.WriteFile(b, []byte("other content"), 0o644); err != nil {
		t.Fatal(err)
	}
	cb2, _ := Checksum(b)
	if ca == cb2 {
		t.Fatal("different content, same checksum")
	}
}

func TestVerifyChecksum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact")
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	b3, _ := Checksum(path)
	s256, _ := ChecksumWith(path, SHA256)

	tests := []struct {
		name     string
		expected string
		want     bool
	}{
		{"blake3 prefixed", b3, true},
		{"sha256 prefixed", s256, true},
		{"bare blake3 hex", stripPrefix(b3), true},
		{"mismatch", "blake3:" + strings.Repeat("0", 64), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyChecksum(path, tt.expected)
			if err != nil {
				t.Fatal(err)
			}
			if ok != tt.want {
				t.Errorf("VerifyChecksum(%q) = %v, want %v", tt.expected, ok, tt.want)
			}
		})
	}
}

func TestAlgorithmFor(t *testing.T) {
	if AlgorithmFor("sha256:abc") != SHA256 {
		t.Error("sha256 prefix not recognized")
	}
	if AlgorithmFor("blake3:abc") != BLAKE3 {
		t.Error("blake3 prefix not recognized")
	}
	if AlgorithmFor("abcdef") != BLAKE3 {
		t.Error("bare checksum should default to blake3")
	}
}
