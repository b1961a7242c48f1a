// Package conflict performs pre-install conflict audits over a manifest's
// declared dependencies and the resolved dependency graph.
package conflict

import (
	"fmt"
	"sort"

	"github.com/forge18/depot-sub001/internal/graph"
	"github.com/forge18/depot-sub001/internal/version"
)

// IncompatibleDependencyError reports two constraints on the same package
// that no single version can satisfy.
type IncompatibleDependencyError struct {
	Name     string
	Existing string
	Proposed string
	Dev      bool
}

func (e *IncompatibleDependencyError) Error() string {
	table := "dependencies"
	if e.Dev {
		table = "dev_dependencies"
	}
	return fmt.Sprintf("conflict: %q is already in %s with constraint %q, which is incompatible with %q",
		e.Name, table, e.Existing, e.Proposed)
}

// CheckManifest validates the declared dependency tables before resolution:
// every constraint must parse, and a package declared in both tables must
// carry constraints that can share a version.
func CheckManifest(deps, devDeps map[string]string) error {
	if err := validateConstraints(deps); err != nil {
		return err
	}
	if err := validateConstraints(devDeps); err != nil {
		return err
	}
	for name, reg := range deps {
		dev, ok := devDeps[name]
		if !ok {
			continue
		}
		rc, _ := version.ParseCompoundConstraint(reg)
		dc, _ := version.ParseCompoundConstraint(dev)
		if !version.Compatible(rc, dc) {
			return &IncompatibleDependencyError{Name: name, Existing: reg, Proposed: dev, Dev: true}
		}
	}
	return nil
}

func validateConstraints(deps map[string]string) error {
	for name, raw := range deps {
		if _, err := version.ParseCompoundConstraint(raw); err != nil {
			return fmt.Errorf("dependency %q: %w", name, err)
		}
	}
	return nil
}

// CheckNewDependency verifies that the requested constraint parses and does
// not contradict a constraint the manifest already declares for the same
// package. A compatible re-declaration is allowed; the caller overwrites it.
func CheckNewDependency(deps, devDeps map[string]string, name, constraint string) error {
	proposed, err := version.ParseCompoundConstraint(constraint)
	if err != nil {
		return fmt.Errorf("dependency %q: %w", name, err)
	}

	if existing, ok := deps[name]; ok {
		if err := checkCompatible(name, existing, constraint, proposed, false); err != nil {
			return err
		}
	}
	if existing, ok := devDeps[name]; ok {
		if err := checkCompatible(name, existing, constraint, proposed, true); err != nil {
			return err
		}
	}
	return nil
}

func checkCompatible(name, existing, raw string, proposed version.Constraint, dev bool) error {
	ec, err := version.ParseCompoundConstraint(existing)
	if err != nil {
		return fmt.Errorf("dependency %q: %w", name, err)
	}
	if !version.Compatible(ec, proposed) {
		return &IncompatibleDependencyError{Name: name, Existing: existing, Proposed: raw, Dev: dev}
	}
	return nil
}

// CheckStrict runs the extra audits enabled by strict mode over a resolved
// graph and the manifest's directly declared packages, returning
// human-readable warnings. None of the audits fail the build; suspicious
// but possibly-fine shapes are surfaced, not rejected.
func CheckStrict(g *graph.Graph, declared map[string]string) []string {
	var warnings []string
	warnings = append(warnings, transitiveConflicts(g)...)
	warnings = append(warnings, diamondDependencies(g)...)
	warnings = append(warnings, constraintSatisfiability(g)...)
	warnings = append(warnings, phantomDependencies(g, declared)...)
	return warnings
}

// phantomDependencies flags resolved packages that arrived only through the
// transitive closure, never from the manifest itself.
func phantomDependencies(g *graph.Graph, declared map[string]string) []string {
	var warnings []string
	for _, name := range sortedNames(g) {
		if _, ok := declared[name]; !ok {
			warnings = append(warnings, fmt.Sprintf(
				"phantom dependency: %q is installed transitively but not declared in the manifest", name))
		}
	}
	return warnings
}

type requirement struct {
	dependent  string
	constraint version.Constraint
}

// transitiveConflicts flags pairs of packages that require the same
// dependency under constraints that cannot share a version.
func transitiveConflicts(g *graph.Graph) []string {
	byDep := make(map[string][]requirement)
	for _, name := range sortedNames(g) {
		node := g.Node(name)
		for _, dep := range node.Dependencies {
			depNode := g.Node(dep)
			if depNode == nil {
				continue
			}
			byDep[dep] = append(byDep[dep], requirement{dependent: name, constraint: depNode.Constraint})
		}
	}

	var warnings []string
	deps := make([]string, 0, len(byDep))
	for dep := range byDep {
		deps = append(deps, dep)
	}
	sort.Strings(deps)

	for _, dep := range deps {
		reqs := byDep[dep]
		for i := 0; i < len(reqs); i++ {
			for j := i + 1; j < len(reqs); j++ {
				if !version.Compatible(reqs[i].constraint, reqs[j].constraint) {
					warnings = append(warnings, fmt.Sprintf(
						"transitive conflict: %q requires %q %s, but %q requires %q %s",
						reqs[i].dependent, dep, reqs[i].constraint,
						reqs[j].dependent, dep, reqs[j].constraint))
				}
			}
		}
	}
	return warnings
}

// diamondDependencies flags packages reachable at more than one depth in
// the dependency tree. Diamonds are legal; the warning exists so users can
// see where constraint intersection happened.
func diamondDependencies(g *graph.Graph) []string {
	hasParent := make(map[string]bool)
	for _, name := range g.Names() {
		for _, dep := range g.Node(name).Dependencies {
			hasParent[dep] = true
		}
	}

	depths := make(map[string][]int)
	for _, root := range sortedNames(g) {
		if !hasParent[root] {
			trackDepths(g, root, 0, depths)
		}
	}

	var warnings []string
	for _, name := range sortedKeys(depths) {
		seen := depths[name]
		if len(seen) > 1 {
			warnings = append(warnings, fmt.Sprintf(
				"diamond dependency detected: %q appears at depths %v in the dependency tree", name, seen))
		}
	}
	return warnings
}

func trackDepths(g *graph.Graph, name string, depth int, depths map[string][]int) {
	depths[name] = append(depths[name], depth)
	node := g.Node(name)
	if node == nil {
		return
	}
	for _, dep := range node.Dependencies {
		trackDepths(g, dep, depth+1, depths)
	}
}

// constraintSatisfiability flags resolved versions that escaped their own
// constraint. The resolver never produces these; a hand-edited lockfile can.
func constraintSatisfiability(g *graph.Graph) []string {
	var warnings []string
	for _, name := range sortedNames(g) {
		node := g.Node(name)
		if node.Resolved == nil {
			continue
		}
		if !node.Resolved.Satisfies(node.Constraint) {
			warnings = append(warnings, fmt.Sprintf(
				"constraint violation: %q resolved to %s but constraint is %s",
				name, node.Resolved, node.Constraint))
		}
	}
	return warnings
}

func sortedNames(g *graph.Graph) []string {
	names := g.Names()
	sort.Strings(names)
	return names
}

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
