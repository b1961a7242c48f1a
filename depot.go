// Package depot resolves LuaRocks dependency constraints against a registry
// manifest and pins the result in a reproducible lockfile.
//
// The package wraps a constraint grammar (caret, tilde, ranges,
// alternatives), a worklist resolver with highest/lowest strategies and
// diamond-constraint intersection, and a lockfile builder that checksums
// downloaded source rocks.
//
// Basic usage:
//
//	store, err := depot.DefaultCache()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client := depot.NewClient(store)
//
//	resolved, err := depot.NewResolver(client).Resolve(context.Background(),
//		map[string]string{"penlight": "^1.13.0"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	for name, v := range resolved {
//		fmt.Println(name, v)
//	}
package depot

import (
	"github.com/forge18/depot-sub001/fetch"
	"github.com/forge18/depot-sub001/internal/cache"
	"github.com/forge18/depot-sub001/internal/graph"
	"github.com/forge18/depot-sub001/internal/lockfile"
	"github.com/forge18/depot-sub001/internal/manifest"
	"github.com/forge18/depot-sub001/internal/resolver"
	"github.com/forge18/depot-sub001/internal/version"
	"github.com/forge18/depot-sub001/registry"
)

// Re-export core types
type (
	// Version is a parsed package version.
	Version = version.Version

	// Constraint is a parsed version constraint.
	Constraint = version.Constraint

	// Resolver computes the transitive closure of a requirement set.
	Resolver = resolver.Resolver

	// Strategy selects which satisfying version wins.
	Strategy = resolver.Strategy

	// ResolvedPackage is one resolution winner with its registry metadata.
	ResolvedPackage = resolver.ResolvedPackage

	// PackageClient is the registry surface the resolver and builder consume.
	PackageClient = resolver.PackageClient

	// Graph is the resolved dependency graph.
	Graph = graph.Graph
)

// Re-export registry types
type (
	// Client talks to one LuaRocks-style registry.
	Client = registry.Client

	// Manifest is the registry's package index.
	Manifest = registry.Manifest

	// Rockspec is a parsed rockspec file.
	Rockspec = registry.Rockspec
)

// Re-export lockfile and project types
type (
	// Lockfile is the depot.lock document.
	Lockfile = lockfile.Lockfile

	// LockedPackage pins one resolved package.
	LockedPackage = lockfile.LockedPackage

	// Builder assembles lockfiles from a project manifest.
	Builder = lockfile.Builder

	// ProjectManifest is the parsed depot.toml.
	ProjectManifest = manifest.Manifest

	// Cache is the on-disk artifact cache.
	Cache = cache.Cache
)

// Resolution strategies
const (
	Highest = resolver.Highest
	Lowest  = resolver.Lowest
)

// Re-export sentinel errors
var (
	ErrNotFound        = fetch.ErrNotFound
	ErrRateLimited     = fetch.ErrRateLimited
	ErrUpstreamDown    = fetch.ErrUpstreamDown
	ErrLockfileCorrupt = lockfile.ErrLockfileCorrupt
)

// Error types
type (
	InvalidVersionError    = version.InvalidVersionError
	InvalidConstraintError = version.InvalidConstraintError
	UnresolvableError      = resolver.UnresolvableError
	ConflictError          = resolver.ConflictError
	CycleError             = graph.CycleError
)

// ParseVersion parses a version string, folding LuaRocks revision suffixes
// into the version model.
func ParseVersion(s string) (Version, error) {
	return version.Parse(s)
}

// ParseConstraint parses the full constraint grammar, including " || "
// alternatives and ">=X, <Y" ranges.
func ParseConstraint(s string) (Constraint, error) {
	return version.ParseCompoundConstraint(s)
}

// DefaultCache opens the artifact cache in the user cache directory.
func DefaultCache() (*Cache, error) {
	return cache.Default()
}

// NewCache opens an artifact cache rooted at the given directory.
func NewCache(root string) (*Cache, error) {
	return cache.New(root)
}

// NewClient creates a registry client backed by the given cache.
// Without options it targets luarocks.org.
func NewClient(store *Cache, opts ...registry.ClientOption) *Client {
	return registry.NewClient(store, opts...)
}

// NewResolver creates a resolver using the given registry client.
func NewResolver(client PackageClient, opts ...resolver.ResolverOption) *Resolver {
	return resolver.New(client, opts...)
}

// NewBuilder creates a lockfile builder that downloads through client and
// checksums through store.
func NewBuilder(client PackageClient, store *Cache, opts ...lockfile.BuilderOption) *Builder {
	return lockfile.NewBuilder(client, store, opts...)
}

// LoadManifest reads and validates a depot.toml file.
func LoadManifest(path string) (*ProjectManifest, error) {
	return manifest.Load(path)
}

// LoadLockfile reads a depot.lock file. Malformed content is reported as
// ErrLockfileCorrupt, never repaired.
func LoadLockfile(path string) (*Lockfile, error) {
	return lockfile.Load(path)
}
