// Package registry implements the LuaRocks registry client: manifest
// retrieval, rockspec download and parsing, and source archive download.
// All network fetches go through the fetch package and land in the on-disk
// cache, so repeated resolutions are cheap.
package registry

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/forge18/depot-sub001/fetch"
	"github.com/forge18/depot-sub001/internal/cache"
)

const defaultManifestTTL = 24 * time.Hour

// Client talks to one LuaRocks-style registry.
type Client struct {
	urls        fetch.URLs
	fetcher     fetch.FetcherInterface
	cache       *cache.Cache
	manifestTTL time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRegistryURL points the client at a registry other than luarocks.org.
func WithRegistryURL(base string) ClientOption {
	return func(c *Client) {
		c.urls = fetch.NewURLs(base)
	}
}

// WithFetcher replaces the default circuit-breaking fetcher.
func WithFetcher(f fetch.FetcherInterface) ClientOption {
	return func(c *Client) {
		c.fetcher = f
	}
}

// WithManifestTTL sets how long a cached manifest stays fresh.
func WithManifestTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.manifestTTL = ttl
	}
}

// NewClient creates a registry client backed by the given cache.
func NewClient(store *cache.Cache, opts ...ClientOption) *Client {
	c := &Client{
		urls:        fetch.NewURLs(""),
		fetcher:     fetch.NewCircuitBreakerFetcher(fetch.NewFetcher()),
		cache:       store,
		manifestTTL: defaultManifestTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URLs returns the client's URL builder.
func (c *Client) URLs() fetch.URLs { return c.urls }

// FetchManifest returns the registry's package index, serving from the
// cache while the snapshot is within its TTL.
func (c *Client) FetchManifest(ctx context.Context) (*Manifest, error) {
	path := c.cache.ManifestPath()
	if c.cache.Fresh(path, c.manifestTTL) {
		data, err := c.cache.Read(path)
		if err == nil {
			return ParseManifest(data, c.urls)
		}
	}

	data, err := c.fetchBytes(ctx, c.urls.Manifest())
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	if err := c.cache.Write(path, data); err != nil {
		return nil, err
	}
	return ParseManifest(data, c.urls)
}

// DownloadRockspec returns the rockspec text at url, caching by filename.
func (c *Client) DownloadRockspec(ctx context.Context, url string) (string, error) {
	path := filepath.Join(c.cache.RockspecsDir(), fetch.FilenameFromURL(url))
	if c.cache.Exists(path) {
		data, err := c.cache.Read(path)
		if err == nil {
			return string(data), nil
		}
	}

	data, err := c.fetchBytes(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download rockspec: %w", err)
	}
	if err := c.cache.Write(path, data); err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseRockspec parses rockspec text without evaluating it.
func (c *Client) ParseRockspec(content string) (*Rockspec, error) {
	return ParseRockspec(content)
}

// DownloadSource downloads the source archive at url into the cache and
// returns the local path. Already-cached archives are not re-downloaded.
func (c *Client) DownloadSource(ctx context.Context, url string) (string, error) {
	path := c.cache.SourcePath(url)
	if c.cache.Exists(path) {
		return path, nil
	}
	if _, err := c.fetcher.FetchToFile(ctx, url, path); err != nil {
		return "", fmt.Errorf("download source: %w", err)
	}
	return path, nil
}

func (c *Client) fetchBytes(ctx context.Context, url string) ([]byte, error) {
	artifact, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer artifact.Body.Close()
	return io.ReadAll(artifact.Body)
}
