// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package story

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// CanonicalBeatCount is the fixed number of canonical Beat nodes every
// graph must carry.
const CanonicalBeatCount = 15

// BeatIDPrefix prefixes every canonical beat node id (e.g. beat_Catalyst).
const BeatIDPrefix = "beat_"

//go:embed beats.yaml
var beatsYAML []byte

type beatCatalogDoc struct {
	Beats []struct {
		Slug        string `yaml:"slug"`
		Name        string `yaml:"name"`
		Act         int    `yaml:"act"`
		Position    int    `yaml:"position"`
		Description string `yaml:"description"`
	} `yaml:"beats"`
}

var beatCatalog = mustLoadBeatCatalog()

func mustLoadBeatCatalog() []Beat {
	var doc beatCatalogDoc
	if err := yaml.Unmarshal(beatsYAML, &doc); err != nil {
		panic(fmt.Sprintf("story: embedded beat catalog is malformed: %v", err))
	}
	if len(doc.Beats) != CanonicalBeatCount {
		panic(fmt.Sprintf("story: embedded beat catalog has %d beats, want %d", len(doc.Beats), CanonicalBeatCount))
	}
	beats := make([]Beat, 0, CanonicalBeatCount)
	for _, b := range doc.Beats {
		beats = append(beats, Beat{
			ID:          BeatIDPrefix + b.Slug,
			Slug:        b.Slug,
			Name:        b.Name,
			Act:         b.Act,
			Position:    b.Position,
			Description: b.Description,
		})
	}
	return beats
}

// BeatCatalog returns the canonical beats in template order. The returned
// slice is a copy; callers may modify it freely.
func BeatCatalog() []Beat {
	out := make([]Beat, len(beatCatalog))
	copy(out, beatCatalog)
	return out
}

// CanonicalBeat returns the catalog entry for the given slug.
func CanonicalBeat(slug string) (Beat, bool) {
	for _, b := range beatCatalog {
		if b.Slug == slug {
			return b, true
		}
	}
	return Beat{}, false
}

// CanonicalBeatIDs returns the set of canonical beat node ids.
func CanonicalBeatIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(beatCatalog))
	for _, b := range beatCatalog {
		ids[b.ID] = struct{}{}
	}
	return ids
}
