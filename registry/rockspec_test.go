package registry

import (
	"errors"
	"reflect"
	"testing"
)

const penlightRockspec = `
package = "penlight"
version = "1.14.0-3"

source = {
   url = "https://github.com/lunarmodules/Penlight/archive/refs/tags/1.14.0.tar.gz",
   tag = "1.14.0"
}

description = "Lua utility libraries loosely based on the Python standard libraries"
homepage = "https://lunarmodules.github.io/Penlight"
license = "MIT/X11"

dependencies = {
   "lua >= 5.1",
   "luafilesystem"
}

build = {
   type = "builtin",
   modules = {
      pl = "lua/pl/init.lua"
   }
}
`

func TestParseRockspec(t *testing.T) {
	rs, err := ParseRockspec(penlightRockspec)
	if err != nil {
		t.Fatalf("ParseRockspec failed: %v", err)
	}

	if rs.Package != "penlight" {
		t.Errorf("Package = %q", rs.Package)
	}
	if rs.Version != "1.14.0-3" {
		t.Errorf("Version = %q", rs.Version)
	}
	if rs.Source.URL != "https://github.com/lunarmodules/Penlight/archive/refs/tags/1.14.0.tar.gz" {
		t.Errorf("Source.URL = %q", rs.Source.URL)
	}
	if rs.Source.Tag != "1.14.0" {
		t.Errorf("Source.Tag = %q", rs.Source.Tag)
	}
	if rs.License != "MIT/X11" {
		t.Errorf("License = %q", rs.License)
	}
	if want := []string{"lua >= 5.1", "luafilesystem"}; !reflect.DeepEqual(rs.Dependencies, want) {
		t.Errorf("Dependencies = %v, want %v", rs.Dependencies, want)
	}
	if rs.Build.Type != "builtin" {
		t.Errorf("Build.Type = %q", rs.Build.Type)
	}
	if rs.Build.Modules["pl"] != "lua/pl/init.lua" {
		t.Errorf("Build.Modules = %v", rs.Build.Modules)
	}
}

func TestParseRockspecSingleQuotes(t *testing.T) {
	content := `
package = 'luasocket'
version = '3.1.0-1'
source = {
   url = 'https://github.com/lunarmodules/luasocket/archive/v3.1.0.tar.gz'
}
dependencies = {
   'lua >= 5.1'
}
`
	rs, err := ParseRockspec(content)
	if err != nil {
		t.Fatalf("ParseRockspec failed: %v", err)
	}
	if rs.Package != "luasocket" || rs.Version != "3.1.0-1" {
		t.Errorf("parsed %q %q", rs.Package, rs.Version)
	}
	// No build table defaults to builtin.
	if rs.Build.Type != "builtin" {
		t.Errorf("Build.Type = %q", rs.Build.Type)
	}
}

func TestParseRockspecMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"no package", `version = "1.0.0"`, "package"},
		{"no version", `package = "x"`, "version"},
		{"no source", `package = "x"` + "\n" + `version = "1.0.0"`, "source"},
		{
			"source without url",
			"package = \"x\"\nversion = \"1.0.0\"\nsource = {\n tag = \"v1\"\n}",
			"source.url",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRockspec(tt.content)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if perr.Field != tt.field {
				t.Errorf("Field = %q, want %q", perr.Field, tt.field)
			}
		})
	}
}

func TestParseRockspecVersionNotLuaVersion(t *testing.T) {
	content := `
package = "x"
lua_version = "5.4"
version = "2.0.0-1"
source = {
   url = "https://example.com/x.tar.gz"
}
`
	rs, err := ParseRockspec(content)
	if err != nil {
		t.Fatal(err)
	}
	if rs.Version != "2.0.0-1" {
		t.Errorf("Version = %q, lua_version leaked into version", rs.Version)
	}
	if rs.LuaVersion != "5.4" {
		t.Errorf("LuaVersion = %q", rs.LuaVersion)
	}
}

func TestParseDependency(t *testing.T) {
	tests := []struct {
		entry      string
		name       string
		constraint string
	}{
		{"lua >= 5.1", "lua", ">= 5.1"},
		{"penlight >= 1.13.0", "penlight", ">= 1.13.0"},
		{"luafilesystem", "luafilesystem", ""},
		{"lpeg>=1.0", "lpeg", ">=1.0"},
		{"  busted ~> 2.1  ", "busted", "~> 2.1"},
	}
	for _, tt := range tests {
		name, constraint := ParseDependency(tt.entry)
		if name != tt.name || constraint != tt.constraint {
			t.Errorf("ParseDependency(%q) = (%q, %q), want (%q, %q)",
				tt.entry, name, constraint, tt.name, tt.constraint)
		}
	}
}

func TestNormalizeConstraint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"~> 2.1", "~2.1"},
		{">= 1.13.0", ">= 1.13.0"},
		{"", ""},
		{"^1.0.0", "^1.0.0"},
	}
	for _, tt := range tests {
		if got := NormalizeConstraint(tt.in); got != tt.want {
			t.Errorf("NormalizeConstraint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRuntimeDependencies(t *testing.T) {
	rs, err := ParseRockspec(penlightRockspec)
	if err != nil {
		t.Fatal(err)
	}
	deps := rs.RuntimeDependencies()
	if _, ok := deps["lua"]; ok {
		t.Error("implicit lua dependency not filtered")
	}
	if constraint, ok := deps["luafilesystem"]; !ok || constraint != "" {
		t.Errorf("luafilesystem = (%q, %v)", constraint, ok)
	}
}
