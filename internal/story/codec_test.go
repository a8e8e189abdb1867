// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package story

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchWireRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	p := Patch{
		ID:            "patch_1",
		BaseVersionID: "v1",
		CreatedAt:     created,
		Ops: []PatchOp{
			AddNode{Node: Character{ID: "char_1", Name: "Mara", Role: "protagonist"}},
			UpdateNode{ID: "char_1", Set: map[string]any{"goal": "map the rift"}, Unset: []string{"flaw"}},
			DeleteNode{ID: "char_2"},
			AddEdge{Edge: Edge{ID: "e1", Type: EdgeAppearsIn, From: "char_1", To: "scene_1", Status: EdgeActive}},
			DeleteEdge{Match: EdgeMatcher{Type: EdgeExpresses, From: "scene_1", To: "theme_1"}},
		},
		Metadata: map[string]any{"author": "cli"},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got Patch
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.BaseVersionID, got.BaseVersionID)
	assert.True(t, created.Equal(got.CreatedAt))
	require.Len(t, got.Ops, 5)

	add := got.Ops[0].(AddNode)
	assert.Equal(t, Character{ID: "char_1", Name: "Mara", Role: "protagonist"}, add.Node)

	upd := got.Ops[1].(UpdateNode)
	assert.Equal(t, "char_1", upd.ID)
	assert.Equal(t, map[string]any{"goal": "map the rift"}, upd.Set)
	assert.Equal(t, []string{"flaw"}, upd.Unset)

	assert.Equal(t, DeleteNode{ID: "char_2"}, got.Ops[2])
	assert.Equal(t, EdgeAppearsIn, got.Ops[3].(AddEdge).Edge.Type)
	assert.Equal(t, EdgeMatcher{Type: EdgeExpresses, From: "scene_1", To: "theme_1"}, got.Ops[4].(DeleteEdge).Match)
}

func TestPatchUnmarshalWireShape(t *testing.T) {
	// The exact document shape external callers produce.
	raw := `{
		"id": "patch_2",
		"base_story_version_id": "v3",
		"created_at": "2026-03-14T09:30:00Z",
		"ops": [
			{"op": "ADD_NODE", "node": {"kind": "story_beat", "id": "sb_1", "title": "The letter arrives", "beat_id": "beat_Catalyst", "intensity": 3}},
			{"op": "DELETE_EDGE", "edge": {"id": "e9"}}
		]
	}`

	var p Patch
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	require.Len(t, p.Ops, 2)

	sb := p.Ops[0].(AddNode).Node.(StoryBeat)
	assert.Equal(t, "beat_Catalyst", sb.BeatID)
	assert.Equal(t, 3, sb.Intensity)
	assert.Equal(t, EdgeMatcher{ID: "e9"}, p.Ops[1].(DeleteEdge).Match)
}

func TestPatchUnmarshalRejectsUnknownOp(t *testing.T) {
	var p Patch
	err := json.Unmarshal([]byte(`{"id":"x","ops":[{"op":"MERGE_NODE","id":"n1"}]}`), &p)
	assert.Error(t, err)
}

func TestNodeCodecAllKinds(t *testing.T) {
	nodes := []Node{
		Character{ID: "char_1", Name: "Mara"},
		Scene{ID: "scene_1", Title: "Arrival", Order: 2},
		BeatCatalog()[0],
		StoryBeat{ID: "sb_1", Title: "The letter", BeatID: "beat_Catalyst"},
		Location{ID: "loc_1", Name: "The rift"},
		Object{ID: "obj_1", Name: "Brass compass"},
		Conflict{ID: "conf_1", Name: "Guild blockade", Intensity: 4},
		Theme{ID: "theme_1", Name: "Maps lie"},
		Motif{ID: "motif_1", Name: "Ink stains"},
		CharacterArc{ID: "arc_1", CharacterID: "char_1", ArcType: "positive"},
		PlotPoint{ID: "pp_1", Title: "The bridge burns", Act: 2},
	}

	for _, n := range nodes {
		t.Run(string(n.Kind()), func(t *testing.T) {
			raw, err := MarshalNode(n)
			require.NoError(t, err)

			got, err := UnmarshalNode(raw)
			require.NoError(t, err)
			assert.Equal(t, n, got)
		})
	}
}

func TestGraphDocumentRoundTrip(t *testing.T) {
	g := NewSeededGraph()
	g.Nodes["char_1"] = Character{ID: "char_1", Name: "Mara"}
	g.Edges = []Edge{{ID: "e1", Type: EdgeAlignsTo, From: "sb_1", To: "beat_Catalyst"}}

	data, err := EncodeGraph(g)
	require.NoError(t, err)

	got, err := DecodeGraph(data)
	require.NoError(t, err)
	assert.Equal(t, g.Nodes, got.Nodes)
	assert.Equal(t, g.Edges, got.Edges)
}

func TestDecodeGraphRejectsDuplicateIDs(t *testing.T) {
	raw := `{"nodes": [
		{"kind": "theme", "id": "theme_1", "name": "Maps lie"},
		{"kind": "theme", "id": "theme_1", "name": "Maps lie twice"}
	], "edges": []}`

	_, err := DecodeGraph([]byte(raw))
	assert.ErrorContains(t, err, "duplicate id")
}
