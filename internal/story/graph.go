// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package story

import (
	"sort"

	"github.com/samber/lo"
)

// Graph is one immutable-by-convention snapshot of the narrative graph.
// Nodes are keyed by id with no ordering guarantee; edges keep insertion
// order. A Graph is owned by exactly one version: nothing mutates it after
// construction, and Clone produces a new container sharing the (immutable)
// node and edge values.
type Graph struct {
	Nodes map[string]Node
	Edges []Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]Node)}
}

// NewSeededGraph returns a graph pre-populated with the 15 canonical beats.
// Every story starts from this shape.
func NewSeededGraph() *Graph {
	g := NewGraph()
	for _, b := range BeatCatalog() {
		g.Nodes[b.ID] = b
	}
	return g
}

// Clone returns an independent snapshot: new containers, same values.
// Node and edge values are plain value types, so sharing them is safe.
func (g *Graph) Clone() *Graph {
	nodes := make(map[string]Node, len(g.Nodes))
	for id, n := range g.Nodes {
		nodes[id] = n
	}
	edges := make([]Edge, len(g.Edges))
	copy(edges, g.Edges)
	return &Graph{Nodes: nodes, Edges: edges}
}

// GetNode returns the node with the given id.
func (g *Graph) GetNode(id string) (Node, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

// NodesByKind returns every node of the given kind, sorted by id for
// deterministic iteration.
func (g *Graph) NodesByKind(kind NodeKind) []Node {
	out := lo.Filter(lo.Values(g.Nodes), func(n Node, _ int) bool {
		return n.Kind() == kind
	})
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID() < out[j].NodeID() })
	return out
}

// EdgesFrom returns every edge originating at the given node.
func (g *Graph) EdgesFrom(id string) []Edge {
	return lo.Filter(g.Edges, func(e Edge, _ int) bool { return e.From == id })
}

// EdgesTo returns every edge terminating at the given node.
func (g *Graph) EdgesTo(id string) []Edge {
	return lo.Filter(g.Edges, func(e Edge, _ int) bool { return e.To == id })
}

// EdgesByType returns every edge of the given type.
func (g *Graph) EdgesByType(t EdgeType) []Edge {
	return lo.Filter(g.Edges, func(e Edge, _ int) bool { return e.Type == t })
}

// HasEdge reports whether an edge with the given semantic key exists.
func (g *Graph) HasEdge(key EdgeKey) bool {
	return lo.ContainsBy(g.Edges, func(e Edge) bool { return e.Key() == key })
}

// EdgeIndex is an optional endpoint lookup built over one snapshot's edge
// list. It is never kept in sync implicitly: after any batch edge
// mutation the caller either rebuilds it or stops using it.
type EdgeIndex struct {
	from map[string][]int
	to   map[string][]int
	g    *Graph
}

// BuildEdgeIndex indexes the graph's current edge list by endpoint.
func (g *Graph) BuildEdgeIndex() *EdgeIndex {
	idx := &EdgeIndex{
		from: make(map[string][]int),
		to:   make(map[string][]int),
		g:    g,
	}
	for i, e := range g.Edges {
		idx.from[e.From] = append(idx.from[e.From], i)
		idx.to[e.To] = append(idx.to[e.To], i)
	}
	return idx
}

// From returns the edges originating at id, in edge-list order.
func (idx *EdgeIndex) From(id string) []Edge {
	return idx.collect(idx.from[id])
}

// To returns the edges terminating at id, in edge-list order.
func (idx *EdgeIndex) To(id string) []Edge {
	return idx.collect(idx.to[id])
}

func (idx *EdgeIndex) collect(positions []int) []Edge {
	if idx.g == nil {
		return nil
	}
	out := make([]Edge, 0, len(positions))
	for _, i := range positions {
		out = append(out, idx.g.Edges[i])
	}
	return out
}

// Invalidate detaches the index from its graph. Subsequent lookups return
// nothing; callers rebuild after batch edge edits.
func (idx *EdgeIndex) Invalidate() {
	idx.g = nil
	idx.from = nil
	idx.to = nil
}
