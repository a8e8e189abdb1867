// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package story

import "fmt"

// EdgeType enumerates the relationship kinds between nodes.
type EdgeType string

const (
	EdgeAppearsIn EdgeType = "APPEARS_IN" // Character -> Scene
	EdgeSatisfies EdgeType = "SATISFIES"  // Scene -> StoryBeat
	EdgeAlignsTo  EdgeType = "ALIGNS_TO"  // StoryBeat -> Beat
	EdgeLocatedAt EdgeType = "LOCATED_AT" // Scene -> Location
	EdgeInvolves  EdgeType = "INVOLVES"   // Conflict -> Character
	EdgeExpresses EdgeType = "EXPRESSES"  // Scene -> Theme
	EdgeFeatures  EdgeType = "FEATURES"   // Scene -> Object
	EdgeEchoes    EdgeType = "ECHOES"     // Motif -> Scene
	EdgeArcOf     EdgeType = "ARC_OF"     // CharacterArc -> Character
	EdgeAdvances  EdgeType = "ADVANCES"   // Scene -> PlotPoint
	EdgePrecedes  EdgeType = "PRECEDES"   // Scene -> Scene, StoryBeat -> StoryBeat
	EdgeDrives    EdgeType = "DRIVES"     // Conflict -> StoryBeat
)

// EdgeStatus marks whether a relationship is authored or merely proposed
// (for example by a fix or an external suggestion source).
type EdgeStatus string

const (
	EdgeActive   EdgeStatus = "active"
	EdgeProposed EdgeStatus = "proposed"
)

// EdgeProperties carries the per-type payload of an edge. Which fields are
// meaningful depends on the edge type: PRECEDES carries an order key,
// proposed edges carry a confidence score, machine-created edges carry
// provenance.
type EdgeProperties struct {
	Order      int     `json:"order,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Provenance string  `json:"provenance,omitempty"`
}

// Edge is a typed, directed relationship between two nodes. Edges are
// identified semantically by (type, from, to); the id exists for wire
// round-trips and targeted deletion, not for uniqueness.
type Edge struct {
	ID         string         `json:"id"`
	Type       EdgeType       `json:"type"`
	From       string         `json:"from"`
	To         string         `json:"to"`
	Status     EdgeStatus     `json:"status,omitempty"`
	Properties EdgeProperties `json:"properties,omitempty"`
}

// EdgeKey is the semantic identity of an edge.
type EdgeKey struct {
	Type EdgeType
	From string
	To   string
}

// Key returns the semantic identity of e.
func (e Edge) Key() EdgeKey {
	return EdgeKey{Type: e.Type, From: e.From, To: e.To}
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("%s:%s->%s", k.Type, k.From, k.To)
}

// endpoints describes which node kinds may originate and terminate an
// edge type.
type endpoints struct {
	from map[NodeKind]struct{}
	to   map[NodeKind]struct{}
}

func kinds(ks ...NodeKind) map[NodeKind]struct{} {
	m := make(map[NodeKind]struct{}, len(ks))
	for _, k := range ks {
		m[k] = struct{}{}
	}
	return m
}

// edgeSchema is the closed table of legal endpoint kinds per edge type.
// The validator consults it; nothing else enforces edge shape.
var edgeSchema = map[EdgeType]endpoints{
	EdgeAppearsIn: {from: kinds(KindCharacter), to: kinds(KindScene)},
	EdgeSatisfies: {from: kinds(KindScene), to: kinds(KindStoryBeat)},
	EdgeAlignsTo:  {from: kinds(KindStoryBeat), to: kinds(KindBeat)},
	EdgeLocatedAt: {from: kinds(KindScene), to: kinds(KindLocation)},
	EdgeInvolves:  {from: kinds(KindConflict), to: kinds(KindCharacter)},
	EdgeExpresses: {from: kinds(KindScene), to: kinds(KindTheme)},
	EdgeFeatures:  {from: kinds(KindScene), to: kinds(KindObject)},
	EdgeEchoes:    {from: kinds(KindMotif), to: kinds(KindScene)},
	EdgeArcOf:     {from: kinds(KindCharacterArc), to: kinds(KindCharacter)},
	EdgeAdvances:  {from: kinds(KindScene), to: kinds(KindPlotPoint)},
	EdgePrecedes:  {from: kinds(KindScene, KindStoryBeat), to: kinds(KindScene, KindStoryBeat)},
	EdgeDrives:    {from: kinds(KindConflict), to: kinds(KindStoryBeat)},
}

// ValidEdgeType reports whether t is a known edge type.
func ValidEdgeType(t EdgeType) bool {
	_, ok := edgeSchema[t]
	return ok
}

// EdgeSourceAllowed reports whether an edge of type t may originate from a
// node of kind k.
func EdgeSourceAllowed(t EdgeType, k NodeKind) bool {
	s, ok := edgeSchema[t]
	if !ok {
		return false
	}
	_, ok = s.from[k]
	return ok
}

// EdgeTargetAllowed reports whether an edge of type t may terminate at a
// node of kind k.
func EdgeTargetAllowed(t EdgeType, k NodeKind) bool {
	s, ok := edgeSchema[t]
	if !ok {
		return false
	}
	_, ok = s.to[k]
	return ok
}
