// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package story

import "fmt"

// Apply runs every op of the patch, in order, against a fresh clone of g
// and returns the resulting snapshot. The input graph is never touched.
//
// Apply enforces only mechanical well-formedness (an op must name a node
// that exists at that point in the sequence). Semantic checks — id
// uniqueness, edge shape, structural invariants — belong to the validator,
// which callers run first.
func Apply(g *Graph, p *Patch) (*Graph, error) {
	next := g.Clone()
	for i, op := range p.Ops {
		switch o := op.(type) {
		case AddNode:
			if o.Node == nil {
				return nil, fmt.Errorf("op %d (%s): missing node payload", i, op.OpCode())
			}
			next.Nodes[o.Node.NodeID()] = o.Node
		case UpdateNode:
			n, ok := next.Nodes[o.ID]
			if !ok {
				return nil, fmt.Errorf("op %d (%s): node %q does not exist", i, op.OpCode(), o.ID)
			}
			updated, err := n.WithFields(o.Set, o.Unset)
			if err != nil {
				return nil, fmt.Errorf("op %d (%s): %w", i, op.OpCode(), err)
			}
			next.Nodes[o.ID] = updated
		case DeleteNode:
			if _, ok := next.Nodes[o.ID]; !ok {
				return nil, fmt.Errorf("op %d (%s): node %q does not exist", i, op.OpCode(), o.ID)
			}
			delete(next.Nodes, o.ID)
		case AddEdge:
			next.Edges = append(next.Edges, o.Edge)
		case DeleteEdge:
			kept := next.Edges[:0:0]
			for _, e := range next.Edges {
				if !o.Match.Matches(e) {
					kept = append(kept, e)
				}
			}
			next.Edges = kept
		default:
			return nil, fmt.Errorf("op %d: unknown patch op %T", i, op)
		}
	}
	return next, nil
}

// Inverse builds the patch that undoes p when applied to Apply(g, p).
//
// Pre-images are captured from the running state while walking the ops
// forward, so deletions and updates late in a patch invert correctly even
// when they touch nodes the same patch created. Deleted nodes and edges
// are captured wholesale, which makes every op fully invertible.
func Inverse(g *Graph, p *Patch) (*Patch, error) {
	staged := g
	inv := make([]PatchOp, 0, len(p.Ops))
	for i, op := range p.Ops {
		switch o := op.(type) {
		case AddNode:
			if o.Node == nil {
				return nil, fmt.Errorf("op %d (%s): missing node payload", i, op.OpCode())
			}
			inv = append(inv, DeleteNode{ID: o.Node.NodeID()})
		case UpdateNode:
			n, ok := staged.Nodes[o.ID]
			if !ok {
				return nil, fmt.Errorf("op %d (%s): node %q does not exist", i, op.OpCode(), o.ID)
			}
			pre := n.Fields()
			set := make(map[string]any, len(o.Set)+len(o.Unset))
			for field := range o.Set {
				v, ok := pre[field]
				if !ok {
					return nil, errUnknownField(n.Kind(), field)
				}
				set[field] = v
			}
			for _, field := range o.Unset {
				v, ok := pre[field]
				if !ok {
					return nil, errUnknownField(n.Kind(), field)
				}
				set[field] = v
			}
			inv = append(inv, UpdateNode{ID: o.ID, Set: set})
		case DeleteNode:
			n, ok := staged.Nodes[o.ID]
			if !ok {
				return nil, fmt.Errorf("op %d (%s): node %q does not exist", i, op.OpCode(), o.ID)
			}
			inv = append(inv, AddNode{Node: n})
		case AddEdge:
			inv = append(inv, DeleteEdge{Match: matcherFor(o.Edge)})
		case DeleteEdge:
			for _, e := range staged.Edges {
				if o.Match.Matches(e) {
					inv = append(inv, AddEdge{Edge: e})
				}
			}
		default:
			return nil, fmt.Errorf("op %d: unknown patch op %T", i, op)
		}

		step, err := Apply(staged, &Patch{Ops: []PatchOp{op}})
		if err != nil {
			return nil, err
		}
		staged = step
	}

	// Undo runs in reverse op order.
	for l, r := 0, len(inv)-1; l < r; l, r = l+1, r-1 {
		inv[l], inv[r] = inv[r], inv[l]
	}
	return &Patch{Ops: inv}, nil
}

func matcherFor(e Edge) EdgeMatcher {
	if e.ID != "" {
		return EdgeMatcher{ID: e.ID}
	}
	return EdgeMatcher{Type: e.Type, From: e.From, To: e.To}
}
