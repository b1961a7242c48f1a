// Package cache stores downloaded manifests, rockspecs and source archives
// under a single root and computes artifact checksums.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lukechampine.com/blake3"
)

// Algorithm selects the hash used for artifact checksums.
type Algorithm int

const (
	// BLAKE3 is the default for new lockfile entries.
	BLAKE3 Algorithm = iota
	// SHA256 remains supported for lockfiles written by older releases.
	SHA256
)

func (a Algorithm) String() string {
	if a == SHA256 {
		return "sha256"
	}
	return "blake3"
}

// AlgorithmFor picks the algorithm encoded in a checksum string prefix.
// Unprefixed checksums are treated as BLAKE3.
func AlgorithmFor(checksum string) Algorithm {
	if strings.HasPrefix(checksum, "sha256:") {
		return SHA256
	}
	return BLAKE3
}

// Cache is a content cache rooted at a single directory.
type Cache struct {
	root string
}

// New creates the cache root if needed and returns a cache over it.
func New(root string) (*Cache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &Cache{root: root}, nil
}

// Default returns the cache under the user cache directory.
func Default() (*Cache, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("locate user cache dir: %w", err)
	}
	return New(filepath.Join(base, "depot"))
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

// RockspecsDir returns the directory holding cached rockspecs and the
// registry manifest snapshot.
func (c *Cache) RockspecsDir() string {
	return filepath.Join(c.root, "luarocks", "rockspecs")
}

// SourcesDir returns the directory holding cached source archives.
func (c *Cache) SourcesDir() string {
	return filepath.Join(c.root, "luarocks", "sources")
}

// ManifestPath returns the path of the cached registry manifest.
func (c *Cache) ManifestPath() string {
	return filepath.Join(c.RockspecsDir(), "manifest.json")
}

// RockspecPath returns the cache path for a package's rockspec.
func (c *Cache) RockspecPath(name, version string) string {
	return filepath.Join(c.RockspecsDir(), fmt.Sprintf("%s-%s.rockspec", name, version))
}

// SourcePath returns the cache path for a source archive. The filename is a
// hash of the URL so arbitrary URLs map to safe names.
func (c *Cache) SourcePath(url string) string {
	ext := filepath.Ext(url)
	if ext == "" {
		ext = ".tar.gz"
	}
	return filepath.Join(c.SourcesDir(), urlHash(url)+ext)
}

// Exists reports whether path is present in the cache.
func (c *Cache) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Read returns the contents of a cached file.
func (c *Cache) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cache file %s: %w", path, err)
	}
	return data, nil
}

// Write stores data at path, creating parent directories as needed.
func (c *Cache) Write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cache file %s: %w", path, err)
	}
	return nil
}

// Fresh reports whether path exists and was modified within ttl.
func (c *Cache) Fresh(path string, ttl time.Duration) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < ttl
}

// Checksum hashes the file at path with the default algorithm and returns
// the prefixed form, e.g. "blake3:<hex>".
func Checksum(path string) (string, error) {
	return ChecksumWith(path, BLAKE3)
}

// Checksum hashes the file at path with the default algorithm.
func (c *Cache) Checksum(path string) (string, error) {
	return Checksum(path)
}

// ChecksumWith hashes the file at path with the given algorithm.
func ChecksumWith(path string, algo Algorithm) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return ChecksumBytes(data, algo), nil
}

// ChecksumBytes hashes data with the given algorithm.
func ChecksumBytes(data []byte, algo Algorithm) string {
	switch algo {
	case SHA256:
		sum := sha256.Sum256(data)
		return "sha256:" + hex.EncodeToString(sum[:])
	default:
		sum := blake3.Sum256(data)
		return "blake3:" + hex.EncodeToString(sum[:])
	}
}

// VerifyChecksum recomputes the file's checksum with the algorithm the
// expected string names and compares the hex payloads. The prefix itself is
// not compared, so bare and prefixed checksums interoperate.
func VerifyChecksum(path, expected string) (bool, error) {
	actual, err := ChecksumWith(path, AlgorithmFor(expected))
	if err != nil {
		return false, err
	}
	return stripPrefix(expected) == stripPrefix(actual), nil
}

func stripPrefix(checksum string) string {
	if _, payload, ok := strings.Cut(checksum, ":"); ok {
		return payload
	}
	return checksum
}

// urlHash shortens a URL to a stable filename. The first 16 bytes of the
// digest keep names short while avoiding collisions in practice.
func urlHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16])
}
