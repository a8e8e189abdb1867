// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package story defines the narrative knowledge graph: the closed set of
// node kinds, the edge vocabulary, the immutable graph snapshot, and the
// patch primitive that is the only way to produce a new snapshot.
package story

import "fmt"

// NodeKind identifies one of the closed set of node variants.
type NodeKind string

const (
	KindCharacter    NodeKind = "character"
	KindScene        NodeKind = "scene"
	KindBeat         NodeKind = "beat"
	KindStoryBeat    NodeKind = "story_beat"
	KindLocation     NodeKind = "location"
	KindObject       NodeKind = "object"
	KindConflict     NodeKind = "conflict"
	KindTheme        NodeKind = "theme"
	KindMotif        NodeKind = "motif"
	KindCharacterArc NodeKind = "character_arc"
	KindPlotPoint    NodeKind = "plot_point"
)

// NodeKinds lists every valid kind, in a stable order.
var NodeKinds = []NodeKind{
	KindCharacter, KindScene, KindBeat, KindStoryBeat, KindLocation,
	KindObject, KindConflict, KindTheme, KindMotif, KindCharacterArc,
	KindPlotPoint,
}

// Valid reports whether k is a known node kind.
func (k NodeKind) Valid() bool {
	switch k {
	case KindCharacter, KindScene, KindBeat, KindStoryBeat, KindLocation,
		KindObject, KindConflict, KindTheme, KindMotif, KindCharacterArc,
		KindPlotPoint:
		return true
	}
	return false
}

// Node is the closed interface over all node kinds. Each kind is a struct
// with typed fields; generic consumers (patch application, diff, the
// validator) go through Fields/WithFields, everything else type-switches
// on the concrete kind.
type Node interface {
	// NodeID returns the globally unique node id.
	NodeID() string
	// Kind returns the kind tag.
	Kind() NodeKind
	// Fields projects the kind-specific fields (identity excluded) into a
	// name→value map. The zero value of a field projects as its zero value,
	// not as absent.
	Fields() map[string]any
	// WithFields returns a copy with the named fields replaced by set and
	// the named fields in unset reset to their zero values. Unknown field
	// names and uncoercible values are errors; id and kind are untouchable.
	WithFields(set map[string]any, unset []string) (Node, error)
}

// errUnknownField is returned by WithFields for a field name the kind does
// not carry.
func errUnknownField(kind NodeKind, field string) error {
	return fmt.Errorf("node kind %q has no field %q", kind, field)
}

// fieldString coerces a patch value to string.
func fieldString(kind NodeKind, field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q of %s expects a string, got %T", field, kind, v)
	}
	return s, nil
}

// fieldInt coerces a patch value to int. JSON decoding hands integers to us
// as float64, so both are accepted.
func fieldInt(kind NodeKind, field string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("field %q of %s expects an integer, got %T", field, kind, v)
}
