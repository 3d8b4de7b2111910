package core

import (
	"iter"
	"maps"
	"slices"
)

// Link is a directed reference from Source to Target.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// LinkGraph holds directed edges between note IDs. Cycles are allowed.
// Edges reference identifiers only; the notes themselves live in the Store.
type LinkGraph struct {
	out map[string]map[string]struct{}
	in  map[string]map[string]struct{}
}

// NewLinkGraph returns an empty graph.
func NewLinkGraph() *LinkGraph {
	return &LinkGraph{
		out: make(map[string]map[string]struct{}),
		in:  make(map[string]map[string]struct{}),
	}
}

// AddEdge inserts source->target. It is a no-op for an existing edge.
func (g *LinkGraph) AddEdge(source, target string) {
	addAdj(g.out, source, target)
	addAdj(g.in, target, source)
}

// RemoveEdge deletes source->target if present.
func (g *LinkGraph) RemoveEdge(source, target string) {
	delAdj(g.out, source, target)
	delAdj(g.in, target, source)
}

// HasEdge reports whether source->target exists.
func (g *LinkGraph) HasEdge(source, target string) bool {
	_, ok := g.out[source][target]
	return ok
}

// RemoveNode deletes every edge incident to id, in both directions, and
// returns the sources whose outgoing sets lost id.
func (g *LinkGraph) RemoveNode(id string) (sources []string) {
	for target := range g.out[id] {
		delAdj(g.in, target, id)
	}
	delete(g.out, id)

	for source := range g.in[id] {
		delAdj(g.out, source, id)
		sources = append(sources, source)
	}
	delete(g.in, id)

	slices.Sort(sources)
	return sources
}

// DependenciesOf yields the targets id links to, in ascending order.
// The sequence can be ranged over any number of times.
func (g *LinkGraph) DependenciesOf(id string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, target := range slices.Sorted(maps.Keys(g.out[id])) {
			if !yield(target) {
				return
			}
		}
	}
}

// DependentsOf yields the sources linking to id, in ascending order.
func (g *LinkGraph) DependentsOf(id string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, source := range slices.Sorted(maps.Keys(g.in[id])) {
			if !yield(source) {
				return
			}
		}
	}
}

// Edges returns every edge sorted by source then target.
func (g *LinkGraph) Edges() []Link {
	var edges []Link
	for _, source := range slices.Sorted(maps.Keys(g.out)) {
		for _, target := range slices.Sorted(maps.Keys(g.out[source])) {
			edges = append(edges, Link{Source: source, Target: target})
		}
	}
	return edges
}

// Len returns the number of edges.
func (g *LinkGraph) Len() int {
	n := 0
	for _, targets := range g.out {
		n += len(targets)
	}
	return n
}

// Clone returns an independent copy.
func (g *LinkGraph) Clone() *LinkGraph {
	c := NewLinkGraph()
	for source, targets := range g.out {
		for target := range targets {
			c.AddEdge(source, target)
		}
	}
	return c
}

func addAdj(adj map[string]map[string]struct{}, from, to string) {
	set, ok := adj[from]
	if !ok {
		set = make(map[string]struct{})
		adj[from] = set
	}
	set[to] = struct{}{}
}

func delAdj(adj map[string]map[string]struct{}, from, to string) {
	set, ok := adj[from]
	if !ok {
		return
	}
	delete(set, to)
	if len(set) == 0 {
		delete(adj, from)
	}
}
