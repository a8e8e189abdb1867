// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/plotweave/plotweave/internal/story"
)

// Sample data creators for consistent testing

// NewPatch wraps ops in a patch against the given base version.
func NewPatch(baseVersionID string, ops ...story.PatchOp) *story.Patch {
	return &story.Patch{
		ID:            uuid.NewString(),
		BaseVersionID: baseVersionID,
		CreatedAt:     time.Now().UTC(),
		Ops:           ops,
	}
}

// FoundationOps returns ops that stand up a minimal story foundation:
// a protagonist, an antagonist, a central conflict wired to both, and a
// theme.
func FoundationOps() []story.PatchOp {
	return []story.PatchOp{
		story.AddNode{Node: story.Character{
			ID:          "char_ishan",
			Name:        "Ishan Veld",
			Description: "A cartographer who trusts maps more than people.",
			Role:        "protagonist",
			Goal:        "Chart the drowned coast before the archive burns",
			Flaw:        "Cannot improvise",
		}},
		story.AddNode{Node: story.Character{
			ID:          "char_brassau",
			Name:        "Magistrate Brassau",
			Description: "The archivist who ordered the coast erased from record.",
			Role:        "antagonist",
		}},
		story.AddNode{Node: story.Conflict{
			ID:          "conflict_erasure",
			Name:        "The Erasure",
			Description: "Whether the drowned coast is remembered or stricken.",
			Nature:      "societal",
			Intensity:   3,
		}},
		story.AddNode{Node: story.Theme{
			ID:        "theme_memory",
			Name:      "Memory as territory",
			Statement: "What a people forget, they surrender.",
		}},
		story.AddEdge{Edge: story.Edge{
			ID:   uuid.NewString(),
			Type: story.EdgeInvolves,
			From: "conflict_erasure",
			To:   "char_ishan",
		}},
		story.AddEdge{Edge: story.Edge{
			ID:   uuid.NewString(),
			Type: story.EdgeInvolves,
			From: "conflict_erasure",
			To:   "char_brassau",
		}},
	}
}

// RealizedBeatOps returns ops that realize one canonical beat end to end:
// a story beat aligned to it plus a scene that satisfies the story beat.
func RealizedBeatOps(beatSlug string, order int) []story.PatchOp {
	beatNodeID := story.BeatIDPrefix + beatSlug
	storyBeatID := "sb_" + beatSlug
	sceneID := "scene_" + beatSlug

	return []story.PatchOp{
		story.AddNode{Node: story.StoryBeat{
			ID:        storyBeatID,
			Title:     beatSlug + " realized",
			BeatID:    beatNodeID,
			Order:     order,
			Intensity: 2,
		}},
		story.AddNode{Node: story.Scene{
			ID:    sceneID,
			Title: "Scene for " + beatSlug,
			Order: order,
		}},
		story.AddEdge{Edge: story.Edge{
			ID:   uuid.NewString(),
			Type: story.EdgeAlignsTo,
			From: storyBeatID,
			To:   beatNodeID,
		}},
		story.AddEdge{Edge: story.Edge{
			ID:   uuid.NewString(),
			Type: story.EdgeSatisfies,
			From: sceneID,
			To:   storyBeatID,
		}},
	}
}

// DraftGraph returns a seeded graph grown into a small draft: the
// foundation cast plus one realized beat. Built through Apply so the
// fixture always satisfies the same invariants real stories do.
func DraftGraph() (*story.Graph, error) {
	g := story.NewSeededGraph()

	ops := append(FoundationOps(), RealizedBeatOps("Catalyst", 1)...)
	return story.Apply(g, NewPatch("", ops...))
}
