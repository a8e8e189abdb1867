// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package story

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeededGraph(t *testing.T) {
	g := NewSeededGraph()

	assert.Len(t, g.Nodes, CanonicalBeatCount)
	assert.Empty(t, g.Edges)

	catalyst, ok := g.GetNode("beat_Catalyst")
	require.True(t, ok)
	assert.Equal(t, KindBeat, catalyst.Kind())

	beat := catalyst.(Beat)
	assert.Equal(t, "Catalyst", beat.Slug)
	assert.Equal(t, 1, beat.Act)
	assert.Equal(t, 4, beat.Position)
}

func TestBeatCatalogIsACopy(t *testing.T) {
	a := BeatCatalog()
	a[0].Name = "mutated"

	b := BeatCatalog()
	assert.Equal(t, "Opening Image", b[0].Name)
}

func TestGraphClone(t *testing.T) {
	g := NewGraph()
	g.Nodes["char_hero"] = Character{ID: "char_hero", Name: "Mara"}
	g.Edges = append(g.Edges, Edge{ID: "e1", Type: EdgeAppearsIn, From: "char_hero", To: "scene_1"})

	clone := g.Clone()
	clone.Nodes["char_rival"] = Character{ID: "char_rival", Name: "Oren"}
	clone.Edges = append(clone.Edges, Edge{ID: "e2", Type: EdgeAppearsIn, From: "char_rival", To: "scene_1"})

	assert.Len(t, g.Nodes, 1)
	assert.Len(t, g.Edges, 1)
	assert.Len(t, clone.Nodes, 2)
	assert.Len(t, clone.Edges, 2)
}

func TestGraphQueries(t *testing.T) {
	g := NewGraph()
	g.Nodes["char_b"] = Character{ID: "char_b", Name: "B"}
	g.Nodes["char_a"] = Character{ID: "char_a", Name: "A"}
	g.Nodes["scene_1"] = Scene{ID: "scene_1", Title: "Arrival"}
	g.Edges = []Edge{
		{ID: "e1", Type: EdgeAppearsIn, From: "char_a", To: "scene_1"},
		{ID: "e2", Type: EdgeAppearsIn, From: "char_b", To: "scene_1"},
		{ID: "e3", Type: EdgePrecedes, From: "scene_1", To: "scene_2"},
	}

	chars := g.NodesByKind(KindCharacter)
	require.Len(t, chars, 2)
	assert.Equal(t, "char_a", chars[0].NodeID(), "NodesByKind sorts by id")

	assert.Len(t, g.EdgesTo("scene_1"), 2)
	assert.Len(t, g.EdgesFrom("scene_1"), 1)
	assert.Len(t, g.EdgesByType(EdgeAppearsIn), 2)

	assert.True(t, g.HasEdge(EdgeKey{Type: EdgeAppearsIn, From: "char_a", To: "scene_1"}))
	assert.False(t, g.HasEdge(EdgeKey{Type: EdgeSatisfies, From: "char_a", To: "scene_1"}))
}

func TestEdgeIndex(t *testing.T) {
	g := NewGraph()
	g.Edges = []Edge{
		{ID: "e1", Type: EdgeAppearsIn, From: "char_a", To: "scene_1"},
		{ID: "e2", Type: EdgePrecedes, From: "scene_1", To: "scene_2"},
	}

	idx := g.BuildEdgeIndex()
	require.Len(t, idx.From("scene_1"), 1)
	assert.Equal(t, "e2", idx.From("scene_1")[0].ID)
	require.Len(t, idx.To("scene_1"), 1)
	assert.Equal(t, "e1", idx.To("scene_1")[0].ID)

	idx.Invalidate()
	assert.Empty(t, idx.From("scene_1"))
	assert.Empty(t, idx.To("scene_1"))
}

func TestEdgeSchema(t *testing.T) {
	tests := []struct {
		name      string
		edgeType  EdgeType
		from, to  NodeKind
		wantValid bool
	}{
		{"character appears in scene", EdgeAppearsIn, KindCharacter, KindScene, true},
		{"scene satisfies story beat", EdgeSatisfies, KindScene, KindStoryBeat, true},
		{"story beat aligns to beat", EdgeAlignsTo, KindStoryBeat, KindBeat, true},
		{"scene cannot appear in character", EdgeAppearsIn, KindScene, KindCharacter, false},
		{"theme cannot satisfy", EdgeSatisfies, KindTheme, KindStoryBeat, false},
		{"precedes links scenes", EdgePrecedes, KindScene, KindScene, true},
		{"precedes links story beats", EdgePrecedes, KindStoryBeat, KindStoryBeat, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok := EdgeSourceAllowed(tt.edgeType, tt.from) && EdgeTargetAllowed(tt.edgeType, tt.to)
			assert.Equal(t, tt.wantValid, ok)
		})
	}

	assert.False(t, ValidEdgeType("FRIENDS_WITH"))
}

func TestNodeWithFields(t *testing.T) {
	c := Character{ID: "char_1", Name: "Mara", Description: "quiet cartographer", Role: "protagonist"}

	updated, err := c.WithFields(map[string]any{"name": "Mara Venn", "goal": "map the rift"}, []string{"description"})
	require.NoError(t, err)

	got := updated.(Character)
	assert.Equal(t, "Mara Venn", got.Name)
	assert.Equal(t, "map the rift", got.Goal)
	assert.Empty(t, got.Description)
	assert.Equal(t, "protagonist", got.Role, "untouched fields survive")
	assert.Equal(t, "quiet cartographer", c.Description, "receiver is untouched")

	_, err = c.WithFields(map[string]any{"altitude": 3}, nil)
	assert.Error(t, err)

	_, err = c.WithFields(map[string]any{"name": 42}, nil)
	assert.Error(t, err)
}

func TestNodeWithFieldsIntCoercion(t *testing.T) {
	s := Scene{ID: "scene_1", Title: "Arrival"}

	// JSON decoding delivers numbers as float64.
	updated, err := s.WithFields(map[string]any{"order": float64(3)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.(Scene).Order)
}
