// Package version implements the semantic version model and constraint
// grammar used across the resolver and lockfile builder.
//
// The grammar is SemVer with two LuaRocks legacy conventions layered on top:
// missing minor/patch segments default to zero ("5.1" == "5.1.0"), and a
// trailing dash-separated rock revision is folded into the patch segment
// ("3.0-1" parses as "3.0.1") unless the suffix is a real prerelease tag.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an immutable parsed version. Build metadata is carried verbatim
// but never participates in comparison or equality.
type Version struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	Prerelease string
	Build      string
}

// InvalidVersionError reports a version string that does not parse.
type InvalidVersionError struct {
	Input  string
	Reason string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// New constructs a plain major.minor.patch version.
func New(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// Parse parses a version string.
//
// Accepted forms: "1", "1.2", "1.2.3", "1.2.3-rc.1", "1.2.3+build.5",
// "1.2.3-rc.1+build.5", and the legacy rock form "3.0-1" (== "3.0.1").
// The dash suffix is a prerelease when it contains a dot or any non-digit,
// or when the numeric core already has three segments ("1.2.3-4" is the
// SemVer prerelease "4"); otherwise it is a rock revision.
func Parse(s string) (Version, error) {
	input := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, &InvalidVersionError{Input: input, Reason: "empty string"}
	}

	var build string
	if i := strings.Index(s, "+"); i >= 0 {
		build = s[i+1:]
		s = s[:i]
	}

	var prerelease string
	if i := strings.LastIndex(s, "-"); i >= 0 {
		suffix := s[i+1:]
		head := s[:i]
		if isPrereleaseTag(suffix) || strings.Count(head, ".") >= 2 {
			prerelease = suffix
			s = head
		} else {
			// Legacy rock revision: "3.0-1" -> "3.0.1".
			s = strings.ReplaceAll(s, "-", ".")
		}
	}

	parts := strings.Split(s, ".")
	major, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Version{}, &InvalidVersionError{Input: input, Reason: "major segment is not numeric"}
	}

	v := Version{Major: major, Prerelease: prerelease, Build: build}
	if len(parts) > 1 {
		v.Minor, _ = strconv.ParseUint(parts[1], 10, 64)
	}
	if len(parts) > 2 {
		v.Patch, _ = strconv.ParseUint(parts[2], 10, 64)
	}
	return v, nil
}

// MustParse is Parse for test fixtures and constants; it panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func isPrereleaseTag(s string) bool {
	if strings.Contains(s, ".") {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}

// Compare returns -1, 0 or 1. Build metadata is ignored; a prerelease orders
// below the same release; prerelease identifiers follow SemVer precedence.
func Compare(a, b Version) int {
	if c := compareUint(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareUint(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareUint(a.Patch, b.Patch); c != 0 {
		return c
	}
	switch {
	case a.Prerelease == "" && b.Prerelease == "":
		return 0
	case a.Prerelease == "":
		return 1
	case b.Prerelease == "":
		return -1
	default:
		return comparePrerelease(a.Prerelease, b.Prerelease)
	}
}

// Equal reports version equality ignoring build metadata.
func (v Version) Equal(o Version) bool { return Compare(v, o) == 0 }

// Less reports v < o under version precedence.
func (v Version) Less(o Version) bool { return Compare(v, o) < 0 }

// Compare orders v against o; see the package-level Compare.
func (v Version) Compare(o Version) int { return Compare(v, o) }

func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		b.WriteByte('-')
		b.WriteString(v.Prerelease)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePrerelease implements SemVer item 11: identifiers are compared
// pairwise left to right, numeric identifiers numerically and below any
// non-numeric identifier, non-numeric identifiers lexically. When every
// paired identifier is equal the longer identifier list wins.
func comparePrerelease(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		an, aNum := parseNumericIdent(as[i])
		bn, bNum := parseNumericIdent(bs[i])
		switch {
		case aNum && bNum:
			if c := compareUint(an, bn); c != 0 {
				return c
			}
		case aNum:
			return -1
		case bNum:
			return 1
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}

func parseNumericIdent(s string) (uint64, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	return n, err == nil
}
