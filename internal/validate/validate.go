// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package validate is the fail-closed gate in front of patch application.
// A patch either passes every check and may become a new version, or it is
// rejected wholesale with the complete list of violations; nothing here
// mutates state.
package validate

import (
	"fmt"
	"strings"

	"github.com/plotweave/plotweave/internal/story"
)

// Code identifies a class of validation failure.
type Code string

const (
	CodeFKIntegrity         Code = "FK_INTEGRITY"
	CodeDuplicateID         Code = "DUPLICATE_ID"
	CodeDuplicateEdge       Code = "DUPLICATE_EDGE"
	CodeMissingRequired     Code = "MISSING_REQUIRED"
	CodeInvalidEnum         Code = "INVALID_ENUM"
	CodeConstraint          Code = "CONSTRAINT_VIOLATION"
	CodeOutOfRange          Code = "OUT_OF_RANGE"
	CodeInvalidEdgeType     Code = "INVALID_EDGE_TYPE"
	CodeInvalidEdgeSource   Code = "INVALID_EDGE_SOURCE"
	CodeInvalidEdgeTarget   Code = "INVALID_EDGE_TARGET"
	CodeStructuralInvariant Code = "STRUCTURAL_INVARIANT"
)

// Error is one validation failure, with enough context for a caller to
// render an actionable message.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	NodeID  string `json:"node_id,omitempty"`
	Field   string `json:"field,omitempty"`
	OpIndex *int   `json:"op_index,omitempty"`
}

func (e Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.OpIndex != nil {
		fmt.Fprintf(&b, " (op %d)", *e.OpIndex)
	}
	return b.String()
}

// Errors is the full failure list of one validation pass.
type Errors []Error

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Options tunes the content constraints.
type Options struct {
	// MinDescriptionLen is the minimum length of non-empty descriptive
	// fields (descriptions, summaries, statements).
	MinDescriptionLen int
}

// DefaultOptions matches the authoring defaults.
func DefaultOptions() Options {
	return Options{MinDescriptionLen: 10}
}

// Validator checks graphs and candidate patches. It is pure: both entry
// points only read their inputs.
type Validator struct {
	opts Options
}

// New creates a validator. Zero-valued options fall back to defaults.
func New(opts Options) *Validator {
	if opts.MinDescriptionLen <= 0 {
		opts.MinDescriptionLen = DefaultOptions().MinDescriptionLen
	}
	return &Validator{opts: opts}
}

// Graph checks a whole snapshot: every node, every edge, and the
// structural beat invariant. A nil or empty result means the graph is
// valid.
func (v *Validator) Graph(g *story.Graph) Errors {
	var errs Errors
	for _, id := range sortedNodeIDs(g) {
		errs = append(errs, v.checkNode(g, g.Nodes[id], nil)...)
	}
	seen := make(map[story.EdgeKey]bool, len(g.Edges))
	for _, e := range g.Edges {
		errs = append(errs, v.checkEdge(g, e, seen, nil)...)
	}
	errs = append(errs, v.checkBeatInvariant(g, nil)...)
	return errs
}

// Patch checks a candidate patch against the snapshot it would apply to.
// Ops are staged in sequence, so an edge may reference a node added
// earlier in the same patch. Checks cover only what the patch touches,
// plus the structural beat invariant on the resulting state — a patch is
// never rejected for pre-existing damage it does not touch.
func (v *Validator) Patch(g *story.Graph, p *story.Patch) Errors {
	var errs Errors
	staged := g.Clone()
	touched := make(map[string]bool)

	for i, op := range p.Ops {
		idx := i
		switch o := op.(type) {
		case story.AddNode:
			if o.Node == nil {
				errs = append(errs, Error{Code: CodeMissingRequired, Message: "ADD_NODE has no node payload", OpIndex: &idx})
				continue
			}
			if o.Node.NodeID() == "" {
				errs = append(errs, Error{Code: CodeMissingRequired, Message: "node id is required", Field: "id", OpIndex: &idx})
				continue
			}
			if !o.Node.Kind().Valid() {
				errs = append(errs, Error{Code: CodeInvalidEnum, Message: fmt.Sprintf("unknown node kind %q", o.Node.Kind()), NodeID: o.Node.NodeID(), Field: "kind", OpIndex: &idx})
				continue
			}
			if _, exists := staged.Nodes[o.Node.NodeID()]; exists {
				errs = append(errs, Error{Code: CodeDuplicateID, Message: fmt.Sprintf("node %q already exists", o.Node.NodeID()), NodeID: o.Node.NodeID(), OpIndex: &idx})
				continue
			}
			staged.Nodes[o.Node.NodeID()] = o.Node
			touched[o.Node.NodeID()] = true

		case story.UpdateNode:
			n, ok := staged.Nodes[o.ID]
			if !ok {
				errs = append(errs, Error{Code: CodeFKIntegrity, Message: fmt.Sprintf("node %q does not exist; create it first", o.ID), NodeID: o.ID, OpIndex: &idx})
				continue
			}
			updated, err := n.WithFields(o.Set, o.Unset)
			if err != nil {
				errs = append(errs, Error{Code: CodeConstraint, Message: err.Error(), NodeID: o.ID, OpIndex: &idx})
				continue
			}
			staged.Nodes[o.ID] = updated
			touched[o.ID] = true

		case story.DeleteNode:
			if _, ok := staged.Nodes[o.ID]; !ok {
				errs = append(errs, Error{Code: CodeFKIntegrity, Message: fmt.Sprintf("node %q does not exist", o.ID), NodeID: o.ID, OpIndex: &idx})
				continue
			}
			delete(staged.Nodes, o.ID)
			delete(touched, o.ID)

		case story.AddEdge:
			opIdx := idx
			errs = append(errs, v.checkEdgeOp(staged, o.Edge, &opIdx)...)
			staged.Edges = append(staged.Edges, o.Edge)

		case story.DeleteEdge:
			kept := staged.Edges[:0:0]
			for _, e := range staged.Edges {
				if !o.Match.Matches(e) {
					kept = append(kept, e)
				}
			}
			staged.Edges = kept

		default:
			errs = append(errs, Error{Code: CodeConstraint, Message: fmt.Sprintf("unknown patch op %T", op), OpIndex: &idx})
		}
	}

	// Content checks only on what the patch produced.
	for _, id := range sortedKeys(touched) {
		if n, ok := staged.Nodes[id]; ok {
			errs = append(errs, v.checkNode(staged, n, nil)...)
		}
	}

	errs = append(errs, v.checkBeatInvariant(staged, nil)...)
	return errs
}

// checkEdgeOp validates a single added edge against the staged graph.
func (v *Validator) checkEdgeOp(staged *story.Graph, e story.Edge, opIdx *int) Errors {
	var errs Errors
	if !story.ValidEdgeType(e.Type) {
		errs = append(errs, Error{Code: CodeInvalidEdgeType, Message: fmt.Sprintf("unknown edge type %q", e.Type), Field: "type", OpIndex: opIdx})
		return errs
	}
	from, fromOK := staged.Nodes[e.From]
	if !fromOK {
		errs = append(errs, Error{Code: CodeFKIntegrity, Message: fmt.Sprintf("edge source %q does not exist; create the referenced node first", e.From), NodeID: e.From, Field: "from", OpIndex: opIdx})
	}
	to, toOK := staged.Nodes[e.To]
	if !toOK {
		errs = append(errs, Error{Code: CodeFKIntegrity, Message: fmt.Sprintf("edge target %q does not exist; create the referenced node first", e.To), NodeID: e.To, Field: "to", OpIndex: opIdx})
	}
	if fromOK && !story.EdgeSourceAllowed(e.Type, from.Kind()) {
		errs = append(errs, Error{Code: CodeInvalidEdgeSource, Message: fmt.Sprintf("%s may not originate from a %s node", e.Type, from.Kind()), NodeID: e.From, Field: "from", OpIndex: opIdx})
	}
	if toOK && !story.EdgeTargetAllowed(e.Type, to.Kind()) {
		errs = append(errs, Error{Code: CodeInvalidEdgeTarget, Message: fmt.Sprintf("%s may not terminate at a %s node", e.Type, to.Kind()), NodeID: e.To, Field: "to", OpIndex: opIdx})
	}
	if staged.HasEdge(e.Key()) {
		errs = append(errs, Error{Code: CodeDuplicateEdge, Message: fmt.Sprintf("edge %s already exists", e.Key()), OpIndex: opIdx})
	}
	errs = append(errs, v.checkEdgeShape(e, opIdx)...)
	return errs
}

// checkEdge validates one edge during a whole-graph pass.
func (v *Validator) checkEdge(g *story.Graph, e story.Edge, seen map[story.EdgeKey]bool, opIdx *int) Errors {
	var errs Errors
	if !story.ValidEdgeType(e.Type) {
		errs = append(errs, Error{Code: CodeInvalidEdgeType, Message: fmt.Sprintf("unknown edge type %q", e.Type), Field: "type", OpIndex: opIdx})
		return errs
	}
	from, fromOK := g.Nodes[e.From]
	if !fromOK {
		errs = append(errs, Error{Code: CodeFKIntegrity, Message: fmt.Sprintf("edge source %q does not exist", e.From), NodeID: e.From, Field: "from", OpIndex: opIdx})
	} else if !story.EdgeSourceAllowed(e.Type, from.Kind()) {
		errs = append(errs, Error{Code: CodeInvalidEdgeSource, Message: fmt.Sprintf("%s may not originate from a %s node", e.Type, from.Kind()), NodeID: e.From, Field: "from", OpIndex: opIdx})
	}
	to, toOK := g.Nodes[e.To]
	if !toOK {
		errs = append(errs, Error{Code: CodeFKIntegrity, Message: fmt.Sprintf("edge target %q does not exist", e.To), NodeID: e.To, Field: "to", OpIndex: opIdx})
	} else if !story.EdgeTargetAllowed(e.Type, to.Kind()) {
		errs = append(errs, Error{Code: CodeInvalidEdgeTarget, Message: fmt.Sprintf("%s may not terminate at a %s node", e.Type, to.Kind()), NodeID: e.To, Field: "to", OpIndex: opIdx})
	}
	if seen[e.Key()] {
		errs = append(errs, Error{Code: CodeDuplicateEdge, Message: fmt.Sprintf("edge %s appears more than once", e.Key()), OpIndex: opIdx})
	}
	seen[e.Key()] = true
	errs = append(errs, v.checkEdgeShape(e, opIdx)...)
	return errs
}

// checkEdgeShape validates status and properties regardless of context.
func (v *Validator) checkEdgeShape(e story.Edge, opIdx *int) Errors {
	var errs Errors
	if e.Status != "" && e.Status != story.EdgeActive && e.Status != story.EdgeProposed {
		errs = append(errs, Error{Code: CodeInvalidEnum, Message: fmt.Sprintf("unknown edge status %q", e.Status), Field: "status", OpIndex: opIdx})
	}
	if e.Properties.Order < 0 {
		errs = append(errs, Error{Code: CodeOutOfRange, Message: "edge order must be >= 1 when set", Field: "properties.order", OpIndex: opIdx})
	}
	if e.Properties.Confidence < 0 || e.Properties.Confidence > 1 {
		errs = append(errs, Error{Code: CodeOutOfRange, Message: "edge confidence must be within 0..1", Field: "properties.confidence", OpIndex: opIdx})
	}
	return errs
}
