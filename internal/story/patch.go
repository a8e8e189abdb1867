// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package story

import "time"

// Patch is an atomic, ordered batch of graph mutations. It is the only way
// to produce a new graph snapshot, and it is applied as a whole or not at
// all.
type Patch struct {
	ID            string         `json:"id"`
	BaseVersionID string         `json:"base_story_version_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	Ops           []PatchOp      `json:"ops"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// PatchOp is the closed set of mutation operations. The concrete variants
// are AddNode, UpdateNode, DeleteNode, AddEdge and DeleteEdge; Apply, the
// validator and inverse generation all switch exhaustively over them.
type PatchOp interface {
	// OpCode returns the wire discriminator for the variant.
	OpCode() OpCode
}

// OpCode is the wire discriminator of a patch operation.
type OpCode string

const (
	OpAddNode    OpCode = "ADD_NODE"
	OpUpdateNode OpCode = "UPDATE_NODE"
	OpDeleteNode OpCode = "DELETE_NODE"
	OpAddEdge    OpCode = "ADD_EDGE"
	OpDeleteEdge OpCode = "DELETE_EDGE"
)

// AddNode inserts a node. Id uniqueness is the validator's concern, not
// the apply primitive's.
type AddNode struct {
	Node Node
}

// UpdateNode replaces the fields named in Set and zeroes the fields named
// in Unset. Id and kind are never touched.
type UpdateNode struct {
	ID    string
	Set   map[string]any
	Unset []string
}

// DeleteNode removes a node. Incident edges are NOT cascade-deleted:
// callers include explicit DeleteEdge ops for them.
type DeleteNode struct {
	ID string
}

// AddEdge appends an edge to the edge list.
type AddEdge struct {
	Edge Edge
}

// DeleteEdge removes edges matching the matcher.
type DeleteEdge struct {
	Match EdgeMatcher
}

func (AddNode) OpCode() OpCode    { return OpAddNode }
func (UpdateNode) OpCode() OpCode { return OpUpdateNode }
func (DeleteNode) OpCode() OpCode { return OpDeleteNode }
func (AddEdge) OpCode() OpCode    { return OpAddEdge }
func (DeleteEdge) OpCode() OpCode { return OpDeleteEdge }

// EdgeMatcher selects edges either by id or by semantic (type, from, to)
// identity. Exactly one of the two modes is used: id wins when set.
type EdgeMatcher struct {
	ID   string   `json:"id,omitempty"`
	Type EdgeType `json:"type,omitempty"`
	From string   `json:"from,omitempty"`
	To   string   `json:"to,omitempty"`
}

// Matches reports whether the matcher selects e.
func (m EdgeMatcher) Matches(e Edge) bool {
	if m.ID != "" {
		return e.ID == m.ID
	}
	return e.Type == m.Type && e.From == m.From && e.To == m.To
}
