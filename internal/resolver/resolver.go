// Package resolver turns a set of requested constraints into one concrete
// version per package across the whole transitive dependency closure.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/forge18/depot-sub001/internal/graph"
	"github.com/forge18/depot-sub001/internal/version"
	"github.com/forge18/depot-sub001/registry"
)

// PackageClient is the registry surface the resolver consumes.
type PackageClient interface {
	FetchManifest(ctx context.Context) (*registry.Manifest, error)
	DownloadRockspec(ctx context.Context, url string) (string, error)
	ParseRockspec(content string) (*registry.Rockspec, error)
	DownloadSource(ctx context.Context, url string) (string, error)
}

// Strategy selects which candidate wins once constraints are satisfied.
type Strategy int

const (
	// Highest picks the newest satisfying version.
	Highest Strategy = iota
	// Lowest picks the oldest satisfying version, useful for checking
	// whether declared lower bounds actually work.
	Lowest
)

func (s Strategy) String() string {
	if s == Lowest {
		return "lowest"
	}
	return "highest"
}

// ParseStrategy maps a flag value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "highest", "":
		return Highest, nil
	case "lowest":
		return Lowest, nil
	default:
		return Highest, fmt.Errorf("invalid resolution strategy %q: must be \"highest\" or \"lowest\"", s)
	}
}

const defaultConcurrency = 8

// Resolver resolves dependency closures against one registry manifest.
type Resolver struct {
	client      PackageClient
	strategy    Strategy
	concurrency int64
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithStrategy sets the version selection strategy.
func WithStrategy(s Strategy) ResolverOption {
	return func(r *Resolver) {
		r.strategy = s
	}
}

// WithConcurrency bounds the number of rockspec downloads in flight.
func WithConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = int64(n)
		}
	}
}

// New creates a Resolver using the given registry client.
func New(client PackageClient, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:      client,
		strategy:    Highest,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// candidate pairs a published version with its parsed form.
type candidate struct {
	pub registry.PackageVersion
	ver version.Version
}

// requirement is one constraint on a package, tagged with who asked for it.
type requirement struct {
	name       string
	constraint string
	requester  string
}

// rootRequester marks constraints that came straight from the manifest.
const rootRequester = "root"

// Resolve maps every requested package plus its transitive closure to a
// single version. The result is all-or-nothing: any unresolvable package,
// conflict or cycle fails the whole call and no partial map is returned.
func (r *Resolver) Resolve(ctx context.Context, requested map[string]string) (map[string]version.Version, error) {
	st, err := r.run(ctx, requested)
	if err != nil {
		return nil, err
	}
	result := make(map[string]version.Version, len(st.chosen))
	for name, c := range st.chosen {
		result[name] = c.ver
	}
	return result, nil
}

// Graph resolves the closure and returns the underlying dependency graph,
// for callers that need edges and constraints rather than the bare map.
func (r *Resolver) Graph(ctx context.Context, requested map[string]string) (*graph.Graph, error) {
	st, err := r.run(ctx, requested)
	if err != nil {
		return nil, err
	}
	return st.graph, nil
}

// ResolvedPackage describes one package in a resolved closure with the
// metadata the lockfile needs.
type ResolvedPackage struct {
	Version      version.Version
	PublishedAs  string
	RockspecURL  string
	ArchiveURL   string
	Dependencies map[string]string
}

// ResolveDetailed resolves the closure and returns full per-package
// metadata: the published version string, artifact URLs and the dependency
// constraints each chosen rockspec declares.
func (r *Resolver) ResolveDetailed(ctx context.Context, requested map[string]string) (map[string]ResolvedPackage, error) {
	st, err := r.run(ctx, requested)
	if err != nil {
		return nil, err
	}
	result := make(map[string]ResolvedPackage, len(st.chosen))
	for name, c := range st.chosen {
		result[name] = ResolvedPackage{
			Version:      c.ver,
			PublishedAs:  c.pub.Version,
			RockspecURL:  c.pub.RockspecURL,
			ArchiveURL:   c.pub.ArchiveURL,
			Dependencies: st.dependencies[name],
		}
	}
	return result, nil
}

func (r *Resolver) run(ctx context.Context, requested map[string]string) (*state, error) {
	manifest, err := r.client.FetchManifest(ctx)
	if err != nil {
		return nil, &ClientError{Err: err}
	}

	st := &state{
		resolver:     r,
		manifest:     manifest,
		graph:        graph.New(),
		candidates:   make(map[string][]candidate),
		requirements: make(map[string][]RequirementSource),
		chosen:       make(map[string]candidate),
		dependencies: make(map[string]map[string]string),
		visited:      make(map[string]bool),
	}

	pending := make([]requirement, 0, len(requested))
	for _, name := range sortedKeys(requested) {
		pending = append(pending, requirement{name: name, constraint: requested[name], requester: rootRequester})
	}

	for len(pending) > 0 {
		var expand []string
		for _, req := range pending {
			changed, err := st.apply(req)
			if err != nil {
				return nil, err
			}
			if changed {
				expand = append(expand, req.name)
			}
		}

		pending, err = st.expand(ctx, dedup(expand))
		if err != nil {
			return nil, err
		}
	}

	if err := st.graph.DetectCycles(); err != nil {
		return nil, err
	}
	return st, nil
}

// state carries one resolution attempt. Mutation happens only on the
// calling goroutine; the concurrent part is limited to rockspec downloads.
type state struct {
	resolver     *Resolver
	manifest     *registry.Manifest
	graph        *graph.Graph
	candidates   map[string][]candidate
	requirements map[string][]RequirementSource
	chosen       map[string]candidate
	dependencies map[string]map[string]string
	visited      map[string]bool
}

// apply records one requirement, narrows the package's candidate set and
// re-picks the winner. It reports whether the winner is new or changed,
// meaning the package needs (re-)expansion.
func (st *state) apply(req requirement) (bool, error) {
	c, err := parseConstraint(req.constraint)
	if err != nil {
		return false, err
	}

	st.requirements[req.name] = append(st.requirements[req.name], RequirementSource{
		Requester:  req.requester,
		Constraint: req.constraint,
	})

	accepted, err := st.accepted(req.name, c, req.constraint)
	if err != nil {
		return false, err
	}

	if existing, ok := st.candidates[req.name]; ok {
		accepted = intersect(existing, accepted)
		if len(accepted) == 0 {
			return false, &ConflictError{Package: req.name, Requirements: st.requirements[req.name]}
		}
	}
	st.candidates[req.name] = accepted

	winner := pick(accepted, st.resolver.strategy)

	st.graph.AddNode(req.name, c)
	if req.requester != rootRequester {
		if err := st.graph.AddDependency(req.requester, req.name); err != nil {
			return false, err
		}
	}

	prev, had := st.chosen[req.name]
	if had && prev.ver.Equal(winner.ver) {
		return false, nil
	}
	st.chosen[req.name] = winner
	if err := st.graph.SetResolved(req.name, winner.ver); err != nil {
		return false, err
	}
	return true, nil
}

// accepted filters the package's published versions by a constraint.
func (st *state) accepted(name string, c version.Constraint, raw string) ([]candidate, error) {
	published := st.manifest.Versions(name)
	if published == nil {
		return nil, &UnresolvableError{Package: name, Constraint: raw, Reason: "not in registry manifest"}
	}

	var out []candidate
	for _, pv := range published {
		v, err := version.Parse(pv.Version)
		if err != nil {
			// Published versions the model cannot represent are not
			// candidates, but they do not fail the package either.
			continue
		}
		if v.Satisfies(c) {
			out = append(out, candidate{pub: pv, ver: v})
		}
	}
	if len(out) == 0 {
		return nil, &UnresolvableError{Package: name, Constraint: raw, Reason: "no version satisfies constraint"}
	}
	return out, nil
}

// expand downloads and parses the rockspecs of freshly chosen versions and
// returns the requirements they introduce. Downloads run concurrently under
// a bounded semaphore; results merge on the calling goroutine.
func (st *state) expand(ctx context.Context, names []string) ([]requirement, error) {
	type fetched struct {
		name string
		deps map[string]string
	}

	var toFetch []string
	for _, name := range names {
		key := name + "@" + st.chosen[name].ver.String()
		if st.visited[key] {
			continue
		}
		st.visited[key] = true
		toFetch = append(toFetch, name)
	}
	if len(toFetch) == 0 {
		return nil, nil
	}

	results := make([]fetched, len(toFetch))
	sem := semaphore.NewWeighted(st.resolver.concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for i, name := range toFetch {
		i, name := i, name
		url := st.chosen[name].pub.RockspecURL
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			text, err := st.resolver.client.DownloadRockspec(gctx, url)
			if err != nil {
				return &ClientError{Package: name, Err: err}
			}
			rs, err := st.resolver.client.ParseRockspec(text)
			if err != nil {
				return &ClientError{Package: name, Err: err}
			}
			results[i] = fetched{name: name, deps: rs.RuntimeDependencies()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var next []requirement
	for _, res := range results {
		st.dependencies[res.name] = res.deps
		for _, dep := range sortedKeys(res.deps) {
			next = append(next, requirement{
				name:       dep,
				constraint: res.deps[dep],
				requester:  res.name,
			})
		}
	}
	return next, nil
}

// parseConstraint handles the compound grammar plus the bare-name case,
// where an empty constraint accepts any version.
func parseConstraint(raw string) (version.Constraint, error) {
	if raw == "" {
		return version.Constraint{Op: version.OpGreaterOrEqual, Version: version.Version{}}, nil
	}
	return version.ParseCompoundConstraint(registry.NormalizeConstraint(raw))
}

// pick selects the winner from a non-empty candidate set.
func pick(candidates []candidate, strategy Strategy) candidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		switch strategy {
		case Lowest:
			if c.ver.Less(best.ver) {
				best = c
			}
		default:
			if best.ver.Less(c.ver) {
				best = c
			}
		}
	}
	return best
}

// intersect keeps candidates present in both sets, compared by version.
func intersect(a, b []candidate) []candidate {
	inB := make(map[string]bool, len(b))
	for _, c := range b {
		inB[c.ver.String()] = true
	}
	var out []candidate
	for _, c := range a {
		if inB[c.ver.String()] {
			out = append(out, c)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dedup(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
