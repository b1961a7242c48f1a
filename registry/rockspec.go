package registry

import (
	"fmt"
	"regexp"
	"strings"
)

// Rockspec holds the fields extracted from a rockspec file.
type Rockspec struct {
	Package      string
	Version      string
	Source       RockspecSource
	Dependencies []string
	Build        RockspecBuild
	Description  string
	Homepage     string
	License      string
	LuaVersion   string
}

// RockspecSource describes where a package's source lives.
type RockspecSource struct {
	URL    string
	Tag    string
	Branch string
}

// RockspecBuild describes how a package is built.
type RockspecBuild struct {
	Type    string
	Modules map[string]string
}

// ParseError reports a rockspec that could not be parsed.
type ParseError struct {
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rockspec: required field %q not found", e.Field)
}

var (
	stringFieldRe = `\b%s\s*=\s*["']([^"']+)["']`
	depEntryRe    = regexp.MustCompile(`(?m)^\s*["']([^"']+)["']`)
	moduleRe      = regexp.MustCompile(`(?m)^\s*(\w+)\s*=\s*["']([^"']+)["']`)
)

// ParseRockspec extracts the common fields from a rockspec file. Rockspecs
// are Lua source; this does field extraction, not evaluation, so untrusted
// rockspecs never execute.
func ParseRockspec(content string) (*Rockspec, error) {
	pkg, ok := stringField(content, "package")
	if !ok {
		return nil, &ParseError{Field: "package"}
	}
	ver, ok := stringField(content, "version")
	if !ok {
		return nil, &ParseError{Field: "version"}
	}

	source, err := parseSource(content)
	if err != nil {
		return nil, err
	}

	rs := &Rockspec{
		Package:      pkg,
		Version:      ver,
		Source:       source,
		Dependencies: parseDependencyList(content),
		Build:        parseBuild(content),
	}
	rs.Description, _ = stringField(content, "description")
	rs.Homepage, _ = stringField(content, "homepage")
	rs.License, _ = stringField(content, "license")
	rs.LuaVersion, _ = stringField(content, "lua_version")

	return rs, nil
}

func stringField(content, name string) (string, bool) {
	re := regexp.MustCompile(fmt.Sprintf(stringFieldRe, regexp.QuoteMeta(name)))
	m := re.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func parseSource(content string) (RockspecSource, error) {
	block, ok := tableBlock(content, "source")
	if !ok {
		return RockspecSource{}, &ParseError{Field: "source"}
	}
	url, ok := stringField(block, "url")
	if !ok {
		return RockspecSource{}, &ParseError{Field: "source.url"}
	}
	src := RockspecSource{URL: url}
	src.Tag, _ = stringField(block, "tag")
	src.Branch, _ = stringField(block, "branch")
	return src, nil
}

func parseDependencyList(content string) []string {
	block, ok := tableBlock(content, "dependencies")
	if !ok {
		return nil
	}
	var deps []string
	for _, m := range depEntryRe.FindAllStringSubmatch(block, -1) {
		deps = append(deps, m[1])
	}
	return deps
}

func parseBuild(content string) RockspecBuild {
	build := RockspecBuild{Type: "builtin"}
	block, ok := tableBlock(content, "build")
	if !ok {
		return build
	}
	if t, ok := stringField(block, "type"); ok {
		build.Type = t
	}
	if modules, ok := tableBlock(block, "modules"); ok {
		build.Modules = make(map[string]string)
		for _, m := range moduleRe.FindAllStringSubmatch(modules, -1) {
			build.Modules[m[1]] = m[2]
		}
	}
	return build
}

// tableBlock returns the text of a Lua table assignment, `name = { ... }`,
// including the braces. Nested braces are balanced by counting.
func tableBlock(content, name string) (string, bool) {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*=\s*\{`)
	loc := re.FindStringIndex(content)
	if loc == nil {
		return "", false
	}

	depth := 1
	for i := loc[1]; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[loc[0] : i+1], true
			}
		}
	}
	return "", false
}

// ParseDependency splits a rockspec dependency entry like "penlight >= 1.13"
// into its package name and constraint. A bare name yields an empty
// constraint, meaning any version.
func ParseDependency(entry string) (name, constraint string) {
	trimmed := strings.TrimSpace(entry)
	if i := strings.IndexAny(trimmed, " <>=~^"); i > 0 {
		return trimmed[:i], strings.TrimSpace(trimmed[i:])
	}
	return trimmed, ""
}

// NormalizeConstraint rewrites LuaRocks operator spellings into the
// constraint grammar. "~>" pins the minor series, which "~" expresses.
func NormalizeConstraint(constraint string) string {
	c := strings.TrimSpace(constraint)
	if rest, ok := strings.CutPrefix(c, "~>"); ok {
		return "~" + strings.TrimSpace(rest)
	}
	return c
}

// RuntimeDependencies converts the rockspec dependency entries into a
// name -> constraint map, dropping the implicit lua requirement.
func (r *Rockspec) RuntimeDependencies() map[string]string {
	deps := make(map[string]string)
	for _, entry := range r.Dependencies {
		name, constraint := ParseDependency(entry)
		if name == "" || name == "lua" {
			continue
		}
		deps[name] = NormalizeConstraint(constraint)
	}
	return deps
}
