package lockfile

import (
	"context"
	"fmt"
	"os"

	"github.com/forge18/depot-sub001/internal/manifest"
	"github.com/forge18/depot-sub001/internal/resolver"
)

// Checksummer hashes on-disk artifacts. Satisfied by cache.Cache.
type Checksummer interface {
	Checksum(path string) (string, error)
}

// Builder assembles lockfiles from a manifest by resolving, downloading
// each winner's source artifact and checksumming it.
type Builder struct {
	client   resolver.PackageClient
	sums     Checksummer
	strategy resolver.Strategy
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithStrategy selects the resolution strategy used when building.
func WithStrategy(s resolver.Strategy) BuilderOption {
	return func(b *Builder) {
		b.strategy = s
	}
}

// NewBuilder creates a Builder backed by the given registry client and
// checksummer.
func NewBuilder(client resolver.PackageClient, sums Checksummer, opts ...BuilderOption) *Builder {
	b := &Builder{
		client:   client,
		sums:     sums,
		strategy: resolver.Highest,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build resolves the manifest's dependencies and produces a fresh lockfile.
// Dev dependencies are included unless noDev is set.
func (b *Builder) Build(ctx context.Context, m *manifest.Manifest, noDev bool) (*Lockfile, error) {
	return b.build(ctx, nil, m, noDev)
}

// Update re-resolves against an existing lockfile. Packages locked at the
// same version keep their recorded checksum, size and URLs verbatim so the
// lockfile diff only shows real changes. Packages that no longer resolve
// are dropped.
func (b *Builder) Update(ctx context.Context, existing *Lockfile, m *manifest.Manifest, noDev bool) (*Lockfile, error) {
	return b.build(ctx, existing, m, noDev)
}

func (b *Builder) build(ctx context.Context, existing *Lockfile, m *manifest.Manifest, noDev bool) (*Lockfile, error) {
	r := resolver.New(b.client, resolver.WithStrategy(b.strategy))
	resolved, err := r.ResolveDetailed(ctx, m.Requested(noDev))
	if err != nil {
		return nil, err
	}

	lf := New()
	for name, pkg := range resolved {
		if existing != nil {
			if prev, ok := existing.Package(name); ok && prev.Version == pkg.PublishedAs {
				lf.Packages[name] = prev
				continue
			}
		}

		locked, err := b.lock(ctx, name, pkg, resolved)
		if err != nil {
			return nil, err
		}
		lf.Packages[name] = locked
	}
	return lf, nil
}

// lock downloads and checksums one resolved package.
func (b *Builder) lock(ctx context.Context, name string, pkg resolver.ResolvedPackage, resolved map[string]resolver.ResolvedPackage) (LockedPackage, error) {
	path, err := b.client.DownloadSource(ctx, pkg.ArchiveURL)
	if err != nil {
		return LockedPackage{}, fmt.Errorf("downloading %s: %w", name, err)
	}

	sum, err := b.sums.Checksum(path)
	if err != nil {
		return LockedPackage{}, fmt.Errorf("checksumming %s: %w", name, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return LockedPackage{}, fmt.Errorf("checksumming %s: %w", name, err)
	}

	// The lockfile records what each dependency resolved to, not the
	// constraint that produced it.
	var deps map[string]string
	if len(pkg.Dependencies) > 0 {
		deps = make(map[string]string, len(pkg.Dependencies))
		for depName := range pkg.Dependencies {
			if dep, ok := resolved[depName]; ok {
				deps[depName] = dep.PublishedAs
			}
		}
	}

	locked := LockedPackage{
		Version:      pkg.PublishedAs,
		Source:       Source(name, pkg.PublishedAs),
		RockspecURL:  pkg.RockspecURL,
		SourceURL:    pkg.ArchiveURL,
		Checksum:     sum,
		Size:         info.Size(),
		Dependencies: deps,
	}

	if build, err := b.buildInfo(ctx, pkg.RockspecURL); err == nil {
		locked.Build = build
	}
	return locked, nil
}

// buildInfo re-reads the (cached) rockspec for its build section.
func (b *Builder) buildInfo(ctx context.Context, rockspecURL string) (*BuildInfo, error) {
	text, err := b.client.DownloadRockspec(ctx, rockspecURL)
	if err != nil {
		return nil, err
	}
	rs, err := b.client.ParseRockspec(text)
	if err != nil {
		return nil, err
	}
	return &BuildInfo{Type: rs.Build.Type, Modules: rs.Build.Modules}, nil
}
