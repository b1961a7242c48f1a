package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-pkgs/purl"
	"github.com/spf13/cobra"

	"github.com/forge18/depot-sub001/internal/conflict"
	"github.com/forge18/depot-sub001/internal/manifest"
	"github.com/forge18/depot-sub001/internal/version"
	"github.com/forge18/depot-sub001/registry"
)

var flagAddDev bool

var addCmd = &cobra.Command{
	Use:   "add <pkg>[@constraint]",
	Short: "Add a dependency to depot.toml",
	Long: `add appends a dependency to depot.toml after checking it against the
existing tables.

The package may be given as a name, a name with a constraint, or a package
URL:

  depot add penlight
  depot add penlight@^1.13.0
  depot add pkg:luarocks/penlight@1.14.0-3

Without a constraint, the highest published version is looked up and pinned
with a caret constraint.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().BoolVar(&flagAddDev, "dev", false, "Add to dev_dependencies instead of dependencies")
}

func runAdd(cmd *cobra.Command, args []string) error {
	m, root, err := loadProject()
	if err != nil {
		return err
	}

	name, constraint, err := parseAddSpec(args[0])
	if err != nil {
		return err
	}

	if constraint == "" {
		store, err := newStore()
		if err != nil {
			return err
		}
		constraint, err = latestConstraint(cmd.Context(), newClient(store), name)
		if err != nil {
			return err
		}
	} else {
		if _, err := version.ParseCompoundConstraint(registry.NormalizeConstraint(constraint)); err != nil {
			return err
		}
	}

	if err := conflict.CheckNewDependency(m.Dependencies, m.DevDependencies, name, constraint); err != nil {
		return err
	}

	m.AddDependency(name, constraint, flagAddDev)
	if err := m.Save(filepath.Join(root, manifest.Filename)); err != nil {
		return err
	}

	table := "dependencies"
	if flagAddDev {
		table = "dev_dependencies"
	}
	fmt.Fprintf(os.Stderr, "Added %s = %q to [%s]\n", name, constraint, table)
	return nil
}

// parseAddSpec splits "name", "name@constraint" or a pkg:luarocks PURL into
// a package name and constraint string.
func parseAddSpec(spec string) (name, constraint string, err error) {
	if strings.HasPrefix(spec, "pkg:") {
		p, err := purl.Parse(spec)
		if err != nil {
			return "", "", fmt.Errorf("parsing package URL: %w", err)
		}
		if p.Type != "luarocks" {
			return "", "", fmt.Errorf("unsupported package URL type %q, only luarocks is supported", p.Type)
		}
		return p.Name, p.Version, nil
	}

	name, constraint, _ = strings.Cut(spec, "@")
	if name == "" {
		return "", "", fmt.Errorf("invalid package spec %q", spec)
	}
	return name, constraint, nil
}

// latestConstraint looks up the highest published version and renders a
// caret constraint for it.
func latestConstraint(ctx context.Context, client *registry.Client, name string) (string, error) {
	man, err := client.FetchManifest(ctx)
	if err != nil {
		return "", err
	}

	var best *version.Version
	for _, pv := range man.Versions(name) {
		v, err := version.Parse(pv.Version)
		if err != nil {
			continue
		}
		if best == nil || best.Less(v) {
			best = &v
		}
	}
	if best == nil {
		return "", fmt.Errorf("package %q not found in registry", name)
	}
	return fmt.Sprintf("^%d.%d.%d", best.Major, best.Minor, best.Patch), nil
}
