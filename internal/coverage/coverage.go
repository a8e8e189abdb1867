// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package coverage turns lint findings and narrative heuristics into one
// ranked "what's missing" view. Everything here is a pure function of the
// graph; recomputing on an unchanged graph yields the same gaps.
package coverage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/plotweave/plotweave/internal/rules"
	"github.com/plotweave/plotweave/internal/story"
)

// Tier buckets completeness into the five layers of a story, from premise
// down to written scenes.
type Tier string

const (
	TierPremise     Tier = "premise"
	TierFoundations Tier = "foundations"
	TierStructure   Tier = "structure"
	TierStoryBeats  Tier = "storyBeats"
	TierScenes      Tier = "scenes"
)

// Tiers lists every tier in rank order. Summaries always report all five.
var Tiers = []Tier{TierPremise, TierFoundations, TierStructure, TierStoryBeats, TierScenes}

var tierLabels = map[Tier]string{
	TierPremise:     "Premise",
	TierFoundations: "Foundations",
	TierStructure:   "Structure",
	TierStoryBeats:  "Story Beats",
	TierScenes:      "Scenes",
}

var tierRank = map[Tier]int{
	TierPremise:     0,
	TierFoundations: 1,
	TierStructure:   2,
	TierStoryBeats:  3,
	TierScenes:      4,
}

// Phase is the coarse authoring stage of a story. A story is in outline
// until its first scene exists.
type Phase string

const (
	PhaseOutline  Phase = "outline"
	PhaseDrafting Phase = "drafting"
)

// GapType separates rule-backed gaps from heuristic ones.
type GapType string

const (
	GapStructural GapType = "structural"
	GapNarrative  GapType = "narrative"
)

// GapStatus is open or resolved. Compute only ever emits open gaps; the
// resolved state exists for callers that track gap lifecycles across
// versions.
type GapStatus string

const (
	GapOpen     GapStatus = "open"
	GapResolved GapStatus = "resolved"
)

// Gap is one missing thing, structural or narrative, under a single shape.
type Gap struct {
	ID          string         `json:"id"`
	Type        GapType        `json:"type"`
	Tier        Tier           `json:"tier"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	ScopeRefs   []string       `json:"scope_refs,omitempty"`
	Severity    rules.Severity `json:"severity,omitempty"`
	Phase       Phase          `json:"phase,omitempty"`
	Domain      string         `json:"domain,omitempty"`
	GroupKey    string         `json:"group_key,omitempty"`
	Source      string         `json:"source"`
	Status      GapStatus      `json:"status"`
}

// TierSummary is the per-tier completeness rollup.
type TierSummary struct {
	Tier    Tier   `json:"tier"`
	Label   string `json:"label"`
	Covered int    `json:"covered"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
}

// Result is the full coverage output.
type Result struct {
	Summary []TierSummary `json:"summary"`
	Gaps    []Gap         `json:"gaps"`
}

// ruleTiers maps rule ids to tiers. Rules absent here fall back to the
// tier of the violating node's kind.
var ruleTiers = map[string]Tier{
	"beat-integrity":      TierStructure,
	"storybeat-alignment": TierStoryBeats,
	"scene-order":         TierScenes,
	"orphan-scene":        TierScenes,
	"conflict-intensity":  TierPremise,
	"floating-theme":      TierPremise,
}

var kindTiers = map[story.NodeKind]Tier{
	story.KindCharacter:    TierFoundations,
	story.KindLocation:     TierFoundations,
	story.KindObject:       TierFoundations,
	story.KindCharacterArc: TierFoundations,
	story.KindBeat:         TierStructure,
	story.KindStoryBeat:    TierStoryBeats,
	story.KindScene:        TierScenes,
	story.KindConflict:     TierPremise,
	story.KindTheme:        TierPremise,
	story.KindMotif:        TierPremise,
	story.KindPlotPoint:    TierStructure,
}

// StoryPhase reports the authoring stage of the graph.
func StoryPhase(g *story.Graph) Phase {
	if len(g.NodesByKind(story.KindScene)) > 0 {
		return PhaseDrafting
	}
	return PhaseOutline
}

// Compute runs a full lint through the engine, merges the violations with
// narrative heuristics, and rolls the graph up into the five tier
// summaries. The result depends on nothing but the graph and the
// registered rules.
func Compute(g *story.Graph, engine *rules.Engine) *Result {
	lint := engine.Lint(g, rules.FullScope())
	phase := StoryPhase(g)

	gaps := make([]Gap, 0, len(lint.Violations))
	for _, v := range lint.Violations {
		gaps = append(gaps, structuralGap(g, v))
	}
	gaps = append(gaps, narrativeGaps(g, phase)...)

	sort.SliceStable(gaps, func(i, j int) bool {
		if tierRank[gaps[i].Tier] != tierRank[gaps[j].Tier] {
			return tierRank[gaps[i].Tier] < tierRank[gaps[j].Tier]
		}
		if gaps[i].Severity != gaps[j].Severity {
			return gaps[i].Severity == rules.SeverityHard
		}
		return gaps[i].ID < gaps[j].ID
	})

	return &Result{Summary: summarize(g), Gaps: gaps}
}

// structuralGap adapts one rule violation 1:1 into a gap.
func structuralGap(g *story.Graph, v rules.Violation) Gap {
	tier, ok := ruleTiers[v.RuleID]
	if !ok {
		tier = TierFoundations
		if n, found := g.GetNode(v.NodeID); found {
			if t, mapped := kindTiers[n.Kind()]; mapped {
				tier = t
			}
		}
	}
	refs := []string{}
	if v.NodeID != "" {
		refs = append(refs, v.NodeID)
	}
	refs = append(refs, v.RelatedNodeIDs...)
	return Gap{
		ID:          v.ID,
		Type:        GapStructural,
		Tier:        tier,
		Title:       v.RuleID,
		Description: v.Message,
		ScopeRefs:   refs,
		Severity:    v.Severity,
		Domain:      v.Category,
		GroupKey:    v.RuleID,
		Source:      "rule:" + v.RuleID,
		Status:      GapOpen,
	}
}

func gapID(groupKey, ref string) string {
	sum := sha256.Sum256([]byte("gap\x00" + groupKey + "\x00" + ref))
	return hex.EncodeToString(sum[:8])
}

func narrativeGap(groupKey, ref string, tier Tier, title, description string) Gap {
	var refs []string
	if ref != "" {
		refs = []string{ref}
	}
	return Gap{
		ID:          gapID(groupKey, ref),
		Type:        GapNarrative,
		Tier:        tier,
		Title:       title,
		Description: description,
		ScopeRefs:   refs,
		GroupKey:    groupKey,
		Source:      "heuristic:" + groupKey,
		Status:      GapOpen,
	}
}

// narrativeGaps runs the heuristic checks. Checks that only make sense
// once drafting has begun are phase-gated.
func narrativeGaps(g *story.Graph, phase Phase) []Gap {
	var gaps []Gap

	// Premise level: a story needs a protagonist, a central conflict and a
	// theme before anything below can cohere.
	if !hasProtagonist(g) {
		gaps = append(gaps, narrativeGap("no-protagonist", "", TierPremise,
			"No Protagonist", "No character carries the protagonist role."))
	}
	if len(g.NodesByKind(story.KindConflict)) == 0 {
		gaps = append(gaps, narrativeGap("no-conflict", "", TierPremise,
			"No Central Conflict", "The story has no conflict driving it."))
	}
	if len(g.NodesByKind(story.KindTheme)) == 0 {
		gaps = append(gaps, narrativeGap("no-theme", "", TierPremise,
			"No Theme", "The story states no theme."))
	}

	// A canonical beat is realized only when a scene reaches it through an
	// aligned story beat.
	for _, b := range story.BeatCatalog() {
		if beatRealized(g, b.ID) {
			continue
		}
		gaps = append(gaps, narrativeGap("beat-unrealized", b.ID, TierStructure,
			"Beat Unrealized",
			fmt.Sprintf("No scene reaches the %q beat through an aligned story beat.", b.Name)))
	}

	if phase == PhaseDrafting {
		for _, n := range g.NodesByKind(story.KindStoryBeat) {
			sb := n.(story.StoryBeat)
			if len(satisfyingScenes(g, sb.ID)) == 0 {
				gap := narrativeGap("storybeat-unsatisfied", sb.ID, TierStoryBeats,
					"Story Beat Without Scenes",
					fmt.Sprintf("Story beat %q has no scene satisfying it.", sb.Title))
				gap.Phase = PhaseDrafting
				gaps = append(gaps, gap)
			}
		}
		for _, n := range g.NodesByKind(story.KindScene) {
			s := n.(story.Scene)
			if s.Content == "" && s.Summary == "" {
				gap := narrativeGap("scene-unwritten", s.ID, TierScenes,
					"Scene Unwritten",
					fmt.Sprintf("Scene %q has neither content nor a summary.", s.Title))
				gap.Phase = PhaseDrafting
				gaps = append(gaps, gap)
			}
		}
		for _, n := range g.NodesByKind(story.KindCharacter) {
			c := n.(story.Character)
			if c.Description != "" {
				continue
			}
			appearances := lo.CountBy(g.EdgesFrom(c.ID), func(e story.Edge) bool {
				return e.Type == story.EdgeAppearsIn
			})
			if appearances >= 2 {
				gap := narrativeGap("character-undescribed", c.ID, TierFoundations,
					"Recurring Character Undescribed",
					fmt.Sprintf("%q appears in %d scenes but has no description.", c.Name, appearances))
				gap.Phase = PhaseDrafting
				gaps = append(gaps, gap)
			}
		}
	}

	return gaps
}

// summarize computes the five tier rollups from graph content alone.
func summarize(g *story.Graph) []TierSummary {
	summaries := make([]TierSummary, 0, len(Tiers))

	premiseCovered := 0
	if hasProtagonist(g) {
		premiseCovered++
	}
	if len(g.NodesByKind(story.KindConflict)) > 0 {
		premiseCovered++
	}
	if len(g.NodesByKind(story.KindTheme)) > 0 {
		premiseCovered++
	}
	summaries = append(summaries, newSummary(TierPremise, premiseCovered, 3))

	described := 0
	foundationTotal := 0
	for _, n := range g.NodesByKind(story.KindCharacter) {
		foundationTotal++
		if n.(story.Character).Description != "" {
			described++
		}
	}
	for _, n := range g.NodesByKind(story.KindLocation) {
		foundationTotal++
		if n.(story.Location).Description != "" {
			described++
		}
	}
	summaries = append(summaries, newSummary(TierFoundations, described, foundationTotal))

	realized := lo.CountBy(story.BeatCatalog(), func(b story.Beat) bool {
		return beatRealized(g, b.ID)
	})
	summaries = append(summaries, newSummary(TierStructure, realized, story.CanonicalBeatCount))

	storyBeats := g.NodesByKind(story.KindStoryBeat)
	satisfied := lo.CountBy(storyBeats, func(n story.Node) bool {
		return len(satisfyingScenes(g, n.NodeID())) > 0
	})
	expected := story.CanonicalBeatCount
	if len(storyBeats) > expected {
		expected = len(storyBeats)
	}
	summaries = append(summaries, newSummary(TierStoryBeats, satisfied, expected))

	scenes := g.NodesByKind(story.KindScene)
	written := lo.CountBy(scenes, func(n story.Node) bool {
		s := n.(story.Scene)
		return s.Content != "" || s.Summary != ""
	})
	summaries = append(summaries, newSummary(TierScenes, written, len(scenes)))

	return summaries
}

func newSummary(tier Tier, covered, total int) TierSummary {
	percent := 0
	if total > 0 {
		percent = int(float64(covered)/float64(total)*100 + 0.5)
	}
	return TierSummary{Tier: tier, Label: tierLabels[tier], Covered: covered, Total: total, Percent: percent}
}

func hasProtagonist(g *story.Graph) bool {
	return lo.SomeBy(g.NodesByKind(story.KindCharacter), func(n story.Node) bool {
		return n.(story.Character).Role == "protagonist"
	})
}

// beatRealized reports whether some scene reaches the beat through an
// aligned story beat.
func beatRealized(g *story.Graph, beatID string) bool {
	for _, e := range g.EdgesTo(beatID) {
		if e.Type != story.EdgeAlignsTo {
			continue
		}
		if len(satisfyingScenes(g, e.From)) > 0 {
			return true
		}
	}
	return false
}

func satisfyingScenes(g *story.Graph, storyBeatID string) []story.Edge {
	return lo.Filter(g.EdgesTo(storyBeatID), func(e story.Edge, _ int) bool {
		return e.Type == story.EdgeSatisfies
	})
}
