// Package graph holds the dependency graph built during resolution and the
// whole-graph cycle check that runs once all edges are known.
package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forge18/depot-sub001/internal/version"
)

// ErrPackageNotFound is returned when an edge or version references a
// package that was never added to the graph.
var ErrPackageNotFound = errors.New("package not found in dependency graph")

// CycleError reports a dependency cycle. Path lists the packages along the
// cycle, ending with the package that closes it.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Path, " -> "))
}

// Node is one package in the graph. Nodes are owned by the graph that
// created them and mutated only through graph methods.
type Node struct {
	Name         string
	Constraint   version.Constraint
	Dependencies []string
	Resolved     *version.Version
}

// Graph maps package names to nodes. It is not safe for concurrent
// mutation; the resolver merges fetch results on a single goroutine.
type Graph struct {
	nodes map[string]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode inserts a node for name. Re-adding an existing name replaces its
// constraint but keeps edges and any resolved version.
func (g *Graph) AddNode(name string, c version.Constraint) {
	if n, ok := g.nodes[name]; ok {
		n.Constraint = c
		return
	}
	g.nodes[name] = &Node{Name: name, Constraint: c}
}

// AddDependency records the edge from -> to. The edge is deduplicated;
// adding it twice is a no-op.
func (g *Graph) AddDependency(from, to string) error {
	n, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("%q: %w", from, ErrPackageNotFound)
	}
	for _, dep := range n.Dependencies {
		if dep == to {
			return nil
		}
	}
	n.Dependencies = append(n.Dependencies, to)
	return nil
}

// SetResolved records the version chosen for name.
func (g *Graph) SetResolved(name string, v version.Version) error {
	n, ok := g.nodes[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrPackageNotFound)
	}
	n.Resolved = &v
	return nil
}

// Node returns the node for name, or nil.
func (g *Graph) Node(name string) *Node {
	return g.nodes[name]
}

// Names returns all package names in the graph, in no particular order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	return names
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Resolved returns the name -> version map for every resolved node.
func (g *Graph) Resolved() map[string]version.Version {
	out := make(map[string]version.Version, len(g.nodes))
	for name, n := range g.nodes {
		if n.Resolved != nil {
			out[name] = *n.Resolved
		}
	}
	return out
}

type dfsColor int

const (
	unvisited dfsColor = iota
	inProgress
	done
)

// DetectCycles runs a three-color DFS from every node so every component,
// connected or not, is checked. A back-edge to an in-progress node is a
// cycle and aborts immediately with the offending path.
func (g *Graph) DetectCycles() error {
	colors := make(map[string]dfsColor, len(g.nodes))
	for name := range g.nodes {
		if colors[name] != unvisited {
			continue
		}
		if err := g.cycleDFS(name, colors, []string{}); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) cycleDFS(name string, colors map[string]dfsColor, path []string) error {
	colors[name] = inProgress
	path = append(path, name)

	if n := g.nodes[name]; n != nil {
		for _, dep := range n.Dependencies {
			switch colors[dep] {
			case unvisited:
				if err := g.cycleDFS(dep, colors, path); err != nil {
					return err
				}
			case inProgress:
				return &CycleError{Path: cyclePath(path, dep)}
			}
		}
	}

	colors[name] = done
	return nil
}

// cyclePath trims the DFS path to the portion inside the cycle and closes it.
func cyclePath(path []string, back string) []string {
	start := 0
	for i, name := range path {
		if name == back {
			start = i
			break
		}
	}
	out := make([]string, 0, len(path)-start+1)
	out = append(out, path[start:]...)
	out = append(out, back)
	return out
}
