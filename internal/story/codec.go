// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package story

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// MarshalNode serializes a node with its kind discriminator injected.
func MarshalNode(n Node) ([]byte, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["kind"] = string(n.Kind())
	return json.Marshal(m)
}

// UnmarshalNode deserializes a node by its kind discriminator.
func UnmarshalNode(data []byte) (Node, error) {
	var probe struct {
		Kind NodeKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	switch probe.Kind {
	case KindCharacter:
		var n Character
		return n, json.Unmarshal(data, &n)
	case KindScene:
		var n Scene
		return n, json.Unmarshal(data, &n)
	case KindBeat:
		var n Beat
		return n, json.Unmarshal(data, &n)
	case KindStoryBeat:
		var n StoryBeat
		return n, json.Unmarshal(data, &n)
	case KindLocation:
		var n Location
		return n, json.Unmarshal(data, &n)
	case KindObject:
		var n Object
		return n, json.Unmarshal(data, &n)
	case KindConflict:
		var n Conflict
		return n, json.Unmarshal(data, &n)
	case KindTheme:
		var n Theme
		return n, json.Unmarshal(data, &n)
	case KindMotif:
		var n Motif
		return n, json.Unmarshal(data, &n)
	case KindCharacterArc:
		var n CharacterArc
		return n, json.Unmarshal(data, &n)
	case KindPlotPoint:
		var n PlotPoint
		return n, json.Unmarshal(data, &n)
	}
	return nil, fmt.Errorf("unknown node kind %q", probe.Kind)
}

// opEnvelope is the wire form of a single patch op.
type opEnvelope struct {
	Op    OpCode          `json:"op"`
	Node  json.RawMessage `json:"node,omitempty"`
	ID    string          `json:"id,omitempty"`
	Set   map[string]any  `json:"set,omitempty"`
	Unset []string        `json:"unset,omitempty"`
	Edge  json.RawMessage `json:"edge,omitempty"`
}

// patchEnvelope is the wire form of a patch.
type patchEnvelope struct {
	ID            string         `json:"id"`
	BaseVersionID string         `json:"base_story_version_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	Ops           []opEnvelope   `json:"ops"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON writes the patch in the external wire shape, with each op
// tagged by its "op" discriminator.
func (p Patch) MarshalJSON() ([]byte, error) {
	env := patchEnvelope{
		ID:            p.ID,
		BaseVersionID: p.BaseVersionID,
		CreatedAt:     p.CreatedAt,
		Ops:           make([]opEnvelope, 0, len(p.Ops)),
		Metadata:      p.Metadata,
	}
	for i, op := range p.Ops {
		e := opEnvelope{Op: op.OpCode()}
		switch o := op.(type) {
		case AddNode:
			raw, err := MarshalNode(o.Node)
			if err != nil {
				return nil, fmt.Errorf("op %d: %w", i, err)
			}
			e.Node = raw
		case UpdateNode:
			e.ID = o.ID
			e.Set = o.Set
			e.Unset = o.Unset
		case DeleteNode:
			e.ID = o.ID
		case AddEdge:
			raw, err := json.Marshal(o.Edge)
			if err != nil {
				return nil, fmt.Errorf("op %d: %w", i, err)
			}
			e.Edge = raw
		case DeleteEdge:
			raw, err := json.Marshal(o.Match)
			if err != nil {
				return nil, fmt.Errorf("op %d: %w", i, err)
			}
			e.Edge = raw
		default:
			return nil, fmt.Errorf("op %d: unknown patch op %T", i, op)
		}
		env.Ops = append(env.Ops, e)
	}
	return json.Marshal(env)
}

// UnmarshalJSON reads the external wire shape back into typed ops.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var env patchEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	ops := make([]PatchOp, 0, len(env.Ops))
	for i, e := range env.Ops {
		switch e.Op {
		case OpAddNode:
			n, err := UnmarshalNode(e.Node)
			if err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			ops = append(ops, AddNode{Node: n})
		case OpUpdateNode:
			ops = append(ops, UpdateNode{ID: e.ID, Set: e.Set, Unset: e.Unset})
		case OpDeleteNode:
			ops = append(ops, DeleteNode{ID: e.ID})
		case OpAddEdge:
			var edge Edge
			if err := json.Unmarshal(e.Edge, &edge); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			ops = append(ops, AddEdge{Edge: edge})
		case OpDeleteEdge:
			var m EdgeMatcher
			if err := json.Unmarshal(e.Edge, &m); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			ops = append(ops, DeleteEdge{Match: m})
		default:
			return fmt.Errorf("op %d: unknown op code %q", i, e.Op)
		}
	}
	p.ID = env.ID
	p.BaseVersionID = env.BaseVersionID
	p.CreatedAt = env.CreatedAt
	p.Ops = ops
	p.Metadata = env.Metadata
	return nil
}

// graphDocument is the serialized form of a graph snapshot.
type graphDocument struct {
	Nodes []json.RawMessage `json:"nodes"`
	Edges []Edge            `json:"edges"`
}

// EncodeGraph serializes a snapshot. Nodes are written sorted by id so
// that encoding is deterministic.
func EncodeGraph(g *Graph) ([]byte, error) {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	doc := graphDocument{
		Nodes: make([]json.RawMessage, 0, len(ids)),
		Edges: g.Edges,
	}
	if doc.Edges == nil {
		doc.Edges = []Edge{}
	}
	for _, id := range ids {
		raw, err := MarshalNode(g.Nodes[id])
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		doc.Nodes = append(doc.Nodes, raw)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeGraph parses a serialized snapshot. Malformed node payloads are
// rejected here, at the construction boundary.
func DecodeGraph(data []byte) (*Graph, error) {
	var doc graphDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	g := NewGraph()
	for i, raw := range doc.Nodes {
		n, err := UnmarshalNode(raw)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if n.NodeID() == "" {
			return nil, fmt.Errorf("node %d: empty id", i)
		}
		if _, dup := g.Nodes[n.NodeID()]; dup {
			return nil, fmt.Errorf("node %d: duplicate id %q", i, n.NodeID())
		}
		g.Nodes[n.NodeID()] = n
	}
	g.Edges = doc.Edges
	return g, nil
}
