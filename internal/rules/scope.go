// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

// ScopeMode selects between a whole-graph pass and a bounded neighborhood
// pass.
type ScopeMode string

const (
	ScopeFull    ScopeMode = "full"
	ScopeTouched ScopeMode = "touched"
)

// DefaultScopeExpansionLimit caps how many nodes and edges a touched-scope
// expansion may visit. Past the cap the scope is marked truncated and the
// caller should fall back to a full lint.
const DefaultScopeExpansionLimit = 500

// Scope is the subset of the graph a lint pass may examine. In touched
// mode the engine expands the edited nodes into a bounded neighborhood:
// incident edges, their far endpoints, and the enclosing structural
// container (a scene's story beat, a story beat's canonical beat).
type Scope struct {
	Mode            ScopeMode `json:"mode"`
	TouchedNodeIDs  []string  `json:"touched_node_ids,omitempty"`
	TouchedEdgeIDs  []string  `json:"touched_edge_ids,omitempty"`
	ExpandedNodeIDs []string  `json:"expanded_node_ids,omitempty"`
	Truncated       bool      `json:"truncated,omitempty"`

	expanded map[string]struct{}
}

// FullScope examines the whole graph.
func FullScope() *Scope {
	return &Scope{Mode: ScopeFull}
}

// TouchedScope examines only the given nodes/edges plus their expanded
// neighborhood.
func TouchedScope(nodeIDs, edgeIDs []string) *Scope {
	return &Scope{Mode: ScopeTouched, TouchedNodeIDs: nodeIDs, TouchedEdgeIDs: edgeIDs}
}

// Covers reports whether a rule may report findings about the given node.
// Full scope covers everything; an unexpanded touched scope covers only
// the touched ids.
func (s *Scope) Covers(nodeID string) bool {
	if s == nil || s.Mode == ScopeFull {
		return true
	}
	if s.expanded != nil {
		_, ok := s.expanded[nodeID]
		return ok
	}
	for _, id := range s.TouchedNodeIDs {
		if id == nodeID {
			return true
		}
	}
	return false
}
