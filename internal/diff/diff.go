// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diff compares two graph snapshots for version display. The
// comparison is purely structural: no snapshot is mutated and diffing a
// graph against itself reports no changes.
package diff

import (
	"reflect"
	"sort"

	"github.com/plotweave/plotweave/internal/story"
)

// FieldChange is one field-level difference on a modified node.
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// NodeChange is one modified node with its per-field changes.
type NodeChange struct {
	ID      string        `json:"id"`
	Changes []FieldChange `json:"changes"`
}

// NodeDiff groups node-level differences.
type NodeDiff struct {
	Added    []string     `json:"added"`
	Removed  []string     `json:"removed"`
	Modified []NodeChange `json:"modified"`
}

// EdgeDiff groups edge-level differences. Edges are matched by their
// semantic (type, from, to) identity, never by id, so re-creating an
// identical edge under a fresh id is not churn.
type EdgeDiff struct {
	Added   []story.Edge `json:"added"`
	Removed []story.Edge `json:"removed"`
}

// Summary carries the rollup counts.
type Summary struct {
	NodesAdded    int  `json:"nodes_added"`
	NodesRemoved  int  `json:"nodes_removed"`
	NodesModified int  `json:"nodes_modified"`
	EdgesAdded    int  `json:"edges_added"`
	EdgesRemoved  int  `json:"edges_removed"`
	HasChanges    bool `json:"has_changes"`
}

// GraphDiff is the full comparison of two snapshots.
type GraphDiff struct {
	Nodes   NodeDiff `json:"nodes"`
	Edges   EdgeDiff `json:"edges"`
	Summary Summary  `json:"summary"`
}

// Compute compares before and after. Identity fields (id, kind) never
// count as modifications on their own; a node whose kind changed under a
// reused id is reported as a "kind" field change.
func Compute(before, after *story.Graph) *GraphDiff {
	d := &GraphDiff{
		Nodes: NodeDiff{Added: []string{}, Removed: []string{}, Modified: []NodeChange{}},
		Edges: EdgeDiff{Added: []story.Edge{}, Removed: []story.Edge{}},
	}

	for id := range after.Nodes {
		if _, ok := before.Nodes[id]; !ok {
			d.Nodes.Added = append(d.Nodes.Added, id)
		}
	}
	for id := range before.Nodes {
		if _, ok := after.Nodes[id]; !ok {
			d.Nodes.Removed = append(d.Nodes.Removed, id)
		}
	}
	sort.Strings(d.Nodes.Added)
	sort.Strings(d.Nodes.Removed)

	kept := make([]string, 0, len(before.Nodes))
	for id := range before.Nodes {
		if _, ok := after.Nodes[id]; ok {
			kept = append(kept, id)
		}
	}
	sort.Strings(kept)
	for _, id := range kept {
		changes := nodeChanges(before.Nodes[id], after.Nodes[id])
		if len(changes) > 0 {
			d.Nodes.Modified = append(d.Nodes.Modified, NodeChange{ID: id, Changes: changes})
		}
	}

	beforeEdges := edgesByKey(before)
	afterEdges := edgesByKey(after)
	for _, e := range sortedEdges(afterEdges) {
		if _, ok := beforeEdges[e.Key()]; !ok {
			d.Edges.Added = append(d.Edges.Added, e)
		}
	}
	for _, e := range sortedEdges(beforeEdges) {
		if _, ok := afterEdges[e.Key()]; !ok {
			d.Edges.Removed = append(d.Edges.Removed, e)
		}
	}

	d.Summary = Summary{
		NodesAdded:    len(d.Nodes.Added),
		NodesRemoved:  len(d.Nodes.Removed),
		NodesModified: len(d.Nodes.Modified),
		EdgesAdded:    len(d.Edges.Added),
		EdgesRemoved:  len(d.Edges.Removed),
	}
	d.Summary.HasChanges = d.Summary.NodesAdded+d.Summary.NodesRemoved+d.Summary.NodesModified+
		d.Summary.EdgesAdded+d.Summary.EdgesRemoved > 0
	return d
}

// nodeChanges compares two nodes sharing an id, field by field, using
// deep structural equality.
func nodeChanges(before, after story.Node) []FieldChange {
	var changes []FieldChange
	if before.Kind() != after.Kind() {
		changes = append(changes, FieldChange{Field: "kind", Old: string(before.Kind()), New: string(after.Kind())})
	}

	oldFields := before.Fields()
	newFields := after.Fields()
	names := make(map[string]struct{}, len(oldFields))
	for f := range oldFields {
		names[f] = struct{}{}
	}
	for f := range newFields {
		names[f] = struct{}{}
	}
	ordered := make([]string, 0, len(names))
	for f := range names {
		ordered = append(ordered, f)
	}
	sort.Strings(ordered)

	for _, f := range ordered {
		oldV, inOld := oldFields[f]
		newV, inNew := newFields[f]
		if inOld && inNew && reflect.DeepEqual(oldV, newV) {
			continue
		}
		changes = append(changes, FieldChange{Field: f, Old: oldV, New: newV})
	}
	return changes
}

// edgesByKey dedupes an edge list down to semantic identities. When a key
// repeats the first occurrence wins.
func edgesByKey(g *story.Graph) map[story.EdgeKey]story.Edge {
	out := make(map[story.EdgeKey]story.Edge, len(g.Edges))
	for _, e := range g.Edges {
		if _, ok := out[e.Key()]; !ok {
			out[e.Key()] = e
		}
	}
	return out
}

func sortedEdges(m map[story.EdgeKey]story.Edge) []story.Edge {
	out := make([]story.Edge, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().String() < out[j].Key().String() })
	return out
}
