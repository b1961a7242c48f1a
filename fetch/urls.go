package fetch

import (
	"fmt"
	"strings"
)

// DefaultRegistryURL is the public LuaRocks manifest root.
const DefaultRegistryURL = "https://luarocks.org"

// URLs builds artifact URLs for a LuaRocks-style registry rooted at Base.
type URLs struct {
	Base string
}

// NewURLs returns a URL builder for base, defaulting to the public registry.
func NewURLs(base string) URLs {
	if base == "" {
		base = DefaultRegistryURL
	}
	return URLs{Base: strings.TrimRight(base, "/")}
}

// Manifest returns the JSON manifest URL.
func (u URLs) Manifest() string {
	return u.Base + "/manifest?format=json"
}

// Rockspec returns the rockspec URL for a package version.
func (u URLs) Rockspec(name, version string) string {
	return fmt.Sprintf("%s/%s-%s.rockspec", u.Base, name, version)
}

// SourceRock returns the source rock archive URL for a package version.
func (u URLs) SourceRock(name, version string) string {
	return fmt.Sprintf("%s/%s-%s.src.rock", u.Base, name, version)
}

// FilenameFromURL returns the final path segment of a URL.
func FilenameFromURL(url string) string {
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}
