// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/plotweave/plotweave/internal/story"
)

// DefaultRegistry returns a fresh registry holding the built-in rule set.
// Rule ids are compile-time constants, so registration cannot fail.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	builtins := []Rule{
		beatIntegrityRule{},
		danglingEdgeRule{},
		duplicateEdgeRule{},
		beatAlignmentRule{},
		sceneOrderRule{},
		conflictIntensityRule{},
		floatingThemeRule{},
		orphanSceneRule{},
		arcOwnerRule{},
	}
	for _, r := range builtins {
		if err := reg.Register(r); err != nil {
			panic(err)
		}
	}
	return reg
}

// newFix assembles a fix with a captured inverse. The inverse is built
// against the same snapshot the patch targets, so deletions are fully
// invertible.
func newFix(g *story.Graph, v Violation, description string, ops []story.PatchOp, affected ...string) (*Fix, error) {
	patch := &story.Patch{ID: uuid.New().String(), Ops: ops}
	inverse, err := story.Inverse(g, patch)
	if err != nil {
		return nil, fmt.Errorf("building inverse: %w", err)
	}
	return &Fix{
		ID:              uuid.New().String(),
		ViolationID:     v.ID,
		RuleID:          v.RuleID,
		Description:     description,
		Patch:           patch,
		InversePatch:    inverse,
		AffectedNodeIDs: affected,
	}, nil
}

// beatIntegrityRule guards the canonical 15-beat template. A missing beat
// gets a restore fix straight from the catalog; an invented beat node is
// reported without a fix (removal is an authorial decision).
type beatIntegrityRule struct{}

func (beatIntegrityRule) ID() string         { return "beat-integrity" }
func (beatIntegrityRule) Severity() Severity { return SeverityHard }
func (beatIntegrityRule) Category() string   { return "structure" }

func (r beatIntegrityRule) Evaluate(g *story.Graph, scope *Scope) []Violation {
	var out []Violation
	canonical := story.CanonicalBeatIDs()

	for _, b := range story.BeatCatalog() {
		n, ok := g.GetNode(b.ID)
		if ok && n.Kind() == story.KindBeat {
			continue
		}
		if !scope.Covers(b.ID) {
			continue
		}
		out = append(out, NewViolation(r, b.ID, "", "missing",
			fmt.Sprintf("canonical beat %q (%s) is missing from the template", b.ID, b.Name)))
	}
	for _, n := range g.NodesByKind(story.KindBeat) {
		if _, ok := canonical[n.NodeID()]; ok {
			continue
		}
		if !scope.Covers(n.NodeID()) {
			continue
		}
		out = append(out, NewViolation(r, n.NodeID(), "", "invented",
			fmt.Sprintf("beat %q is not part of the canonical template", n.NodeID())))
	}
	return out
}

func (r beatIntegrityRule) SuggestFix(g *story.Graph, v Violation) (*Fix, error) {
	if v.Context != "missing" {
		return nil, nil
	}
	for _, b := range story.BeatCatalog() {
		if b.ID == v.NodeID {
			return newFix(g, v,
				fmt.Sprintf("Restore canonical beat %q from the template", b.Name),
				[]story.PatchOp{story.AddNode{Node: b}}, b.ID)
		}
	}
	return nil, nil
}

// danglingEdgeRule finds edges whose endpoints no longer resolve and
// proposes deleting them. The inverse re-adds the captured edge.
type danglingEdgeRule struct{}

func (danglingEdgeRule) ID() string         { return "dangling-edge" }
func (danglingEdgeRule) Severity() Severity { return SeverityHard }
func (danglingEdgeRule) Category() string   { return "integrity" }

func (r danglingEdgeRule) Evaluate(g *story.Graph, scope *Scope) []Violation {
	var out []Violation
	for _, e := range g.Edges {
		if !scope.Covers(e.From) && !scope.Covers(e.To) {
			continue
		}
		_, fromOK := g.GetNode(e.From)
		_, toOK := g.GetNode(e.To)
		if fromOK && toOK {
			continue
		}
		v := NewViolation(r, e.From, "", e.Key().String(),
			fmt.Sprintf("edge %s references a node that no longer exists", e.Key()))
		v.RelatedNodeIDs = []string{e.To}
		out = append(out, v)
	}
	return out
}

func (r danglingEdgeRule) SuggestFix(g *story.Graph, v Violation) (*Fix, error) {
	for _, e := range g.Edges {
		if e.Key().String() != v.Context {
			continue
		}
		return newFix(g, v,
			fmt.Sprintf("Delete dangling edge %s", e.Key()),
			[]story.PatchOp{story.DeleteEdge{Match: story.EdgeMatcher{Type: e.Type, From: e.From, To: e.To}}},
			e.From, e.To)
	}
	return nil, nil
}

// duplicateEdgeRule finds repeated (type, from, to) identities. The fix
// collapses the duplicates back to a single edge.
type duplicateEdgeRule struct{}

func (duplicateEdgeRule) ID() string         { return "duplicate-edge" }
func (duplicateEdgeRule) Severity() Severity { return SeveritySoft }
func (duplicateEdgeRule) Category() string   { return "integrity" }

func (r duplicateEdgeRule) Evaluate(g *story.Graph, scope *Scope) []Violation {
	counts := lo.CountValuesBy(g.Edges, func(e story.Edge) story.EdgeKey { return e.Key() })
	keys := lo.Keys(counts)
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	var out []Violation
	for _, key := range keys {
		if counts[key] < 2 {
			continue
		}
		if !scope.Covers(key.From) && !scope.Covers(key.To) {
			continue
		}
		out = append(out, NewViolation(r, key.From, "", key.String(),
			fmt.Sprintf("edge %s appears %d times", key, counts[key])))
	}
	return out
}

func (r duplicateEdgeRule) SuggestFix(g *story.Graph, v Violation) (*Fix, error) {
	var first *story.Edge
	for i := range g.Edges {
		if g.Edges[i].Key().String() == v.Context {
			first = &g.Edges[i]
			break
		}
	}
	if first == nil {
		return nil, nil
	}
	// Delete every copy, then put one back.
	ops := []story.PatchOp{
		story.DeleteEdge{Match: story.EdgeMatcher{Type: first.Type, From: first.From, To: first.To}},
		story.AddEdge{Edge: *first},
	}
	return newFix(g, v, fmt.Sprintf("Collapse duplicates of edge %s", first.Key()), ops, first.From, first.To)
}

// beatAlignmentRule checks that every story beat names a canonical beat
// and carries the matching ALIGNS_TO edge. Only the missing-edge case is
// fixable mechanically.
type beatAlignmentRule struct{}

func (beatAlignmentRule) ID() string         { return "storybeat-alignment" }
func (beatAlignmentRule) Severity() Severity { return SeverityHard }
func (beatAlignmentRule) Category() string   { return "structure" }

func (r beatAlignmentRule) Evaluate(g *story.Graph, scope *Scope) []Violation {
	var out []Violation
	for _, n := range g.NodesByKind(story.KindStoryBeat) {
		sb := n.(story.StoryBeat)
		if !scope.Covers(sb.ID) {
			continue
		}
		if sb.BeatID == "" {
			out = append(out, NewViolation(r, sb.ID, "beat_id", "unaligned",
				fmt.Sprintf("story beat %q is not aligned to a canonical beat", sb.Title)))
			continue
		}
		target, ok := g.GetNode(sb.BeatID)
		if !ok || target.Kind() != story.KindBeat {
			out = append(out, NewViolation(r, sb.ID, "beat_id", "unresolved",
				fmt.Sprintf("story beat %q aligns to %q, which is not a canonical beat", sb.Title, sb.BeatID)))
			continue
		}
		if !g.HasEdge(story.EdgeKey{Type: story.EdgeAlignsTo, From: sb.ID, To: sb.BeatID}) {
			out = append(out, NewViolation(r, sb.ID, "", "edge-missing",
				fmt.Sprintf("story beat %q names %q but the ALIGNS_TO edge is missing", sb.Title, sb.BeatID)))
		}
	}
	return out
}

func (r beatAlignmentRule) SuggestFix(g *story.Graph, v Violation) (*Fix, error) {
	if v.Context != "edge-missing" {
		return nil, nil
	}
	n, ok := g.GetNode(v.NodeID)
	if !ok {
		return nil, nil
	}
	sb, ok := n.(story.StoryBeat)
	if !ok {
		return nil, nil
	}
	edge := story.Edge{
		ID:         uuid.New().String(),
		Type:       story.EdgeAlignsTo,
		From:       sb.ID,
		To:         sb.BeatID,
		Status:     story.EdgeActive,
		Properties: story.EdgeProperties{Provenance: "rule:" + r.ID()},
	}
	return newFix(g, v,
		fmt.Sprintf("Add the missing ALIGNS_TO edge from %q to %q", sb.ID, sb.BeatID),
		[]story.PatchOp{story.AddEdge{Edge: edge}}, sb.ID, sb.BeatID)
}

// sceneOrderRule flags colliding scene order keys and proposes a full
// renumbering. Every collision violation carries the same normalization
// patch, so applying one makes the rest stale.
type sceneOrderRule struct{}

func (sceneOrderRule) ID() string         { return "scene-order" }
func (sceneOrderRule) Severity() Severity { return SeveritySoft }
func (sceneOrderRule) Category() string   { return "continuity" }

func (r sceneOrderRule) Evaluate(g *story.Graph, scope *Scope) []Violation {
	scenes := orderedScenes(g)
	byOrder := lo.GroupBy(scenes, func(s story.Scene) int { return s.Order })

	var out []Violation
	for _, s := range scenes {
		if s.Order == 0 || len(byOrder[s.Order]) < 2 {
			continue
		}
		if !scope.Covers(s.ID) {
			continue
		}
		out = append(out, NewViolation(r, s.ID, "order", fmt.Sprintf("order=%d", s.Order),
			fmt.Sprintf("scene %q shares order %d with %d other scene(s)", s.Title, s.Order, len(byOrder[s.Order])-1)))
	}
	return out
}

func (r sceneOrderRule) SuggestFix(g *story.Graph, v Violation) (*Fix, error) {
	scenes := orderedScenes(g)
	var ops []story.PatchOp
	var affected []string
	for i, s := range scenes {
		want := i + 1
		if s.Order == want {
			continue
		}
		ops = append(ops, story.UpdateNode{ID: s.ID, Set: map[string]any{"order": want}})
		affected = append(affected, s.ID)
	}
	if len(ops) == 0 {
		return nil, nil
	}
	return newFix(g, v, "Renumber scene order keys sequentially", ops, affected...)
}

// orderedScenes returns scenes sorted by (order, id): the stable shape
// renumbering normalizes to.
func orderedScenes(g *story.Graph) []story.Scene {
	scenes := lo.Map(g.NodesByKind(story.KindScene), func(n story.Node, _ int) story.Scene {
		return n.(story.Scene)
	})
	sort.SliceStable(scenes, func(i, j int) bool {
		if scenes[i].Order != scenes[j].Order {
			return scenes[i].Order < scenes[j].Order
		}
		return scenes[i].ID < scenes[j].ID
	})
	return scenes
}

// conflictIntensityRule clamps out-of-range conflict intensity.
type conflictIntensityRule struct{}

func (conflictIntensityRule) ID() string         { return "conflict-intensity" }
func (conflictIntensityRule) Severity() Severity { return SeverityHard }
func (conflictIntensityRule) Category() string   { return "content" }

func (r conflictIntensityRule) Evaluate(g *story.Graph, scope *Scope) []Violation {
	var out []Violation
	for _, n := range g.NodesByKind(story.KindConflict) {
		c := n.(story.Conflict)
		if c.Intensity == 0 || (c.Intensity >= 1 && c.Intensity <= 5) {
			continue
		}
		if !scope.Covers(c.ID) {
			continue
		}
		out = append(out, NewViolation(r, c.ID, "intensity", fmt.Sprintf("intensity=%d", c.Intensity),
			fmt.Sprintf("conflict %q has intensity %d, outside 1..5", c.Name, c.Intensity)))
	}
	return out
}

func (r conflictIntensityRule) SuggestFix(g *story.Graph, v Violation) (*Fix, error) {
	n, ok := g.GetNode(v.NodeID)
	if !ok {
		return nil, nil
	}
	c, ok := n.(story.Conflict)
	if !ok {
		return nil, nil
	}
	clamped := c.Intensity
	if clamped < 1 {
		clamped = 1
	} else if clamped > 5 {
		clamped = 5
	}
	return newFix(g, v,
		fmt.Sprintf("Clamp intensity of %q to %d", c.Name, clamped),
		[]story.PatchOp{story.UpdateNode{ID: c.ID, Set: map[string]any{"intensity": clamped}}}, c.ID)
}

// floatingThemeRule reports themes no scene expresses. Purely advisory;
// connecting a theme is an authorial act, not a mechanical one.
type floatingThemeRule struct{}

func (floatingThemeRule) ID() string         { return "floating-theme" }
func (floatingThemeRule) Severity() Severity { return SeveritySoft }
func (floatingThemeRule) Category() string   { return "content" }

func (r floatingThemeRule) Evaluate(g *story.Graph, scope *Scope) []Violation {
	var out []Violation
	for _, n := range g.NodesByKind(story.KindTheme) {
		t := n.(story.Theme)
		if !scope.Covers(t.ID) {
			continue
		}
		expressed := lo.SomeBy(g.EdgesTo(t.ID), func(e story.Edge) bool {
			return e.Type == story.EdgeExpresses
		})
		if !expressed {
			out = append(out, NewViolation(r, t.ID, "", "floating",
				fmt.Sprintf("theme %q is never expressed in a scene", t.Name)))
		}
	}
	return out
}

// orphanSceneRule reports scenes that satisfy no story beat.
type orphanSceneRule struct{}

func (orphanSceneRule) ID() string         { return "orphan-scene" }
func (orphanSceneRule) Severity() Severity { return SeveritySoft }
func (orphanSceneRule) Category() string   { return "structure" }

func (r orphanSceneRule) Evaluate(g *story.Graph, scope *Scope) []Violation {
	var out []Violation
	for _, n := range g.NodesByKind(story.KindScene) {
		s := n.(story.Scene)
		if !scope.Covers(s.ID) {
			continue
		}
		satisfies := lo.SomeBy(g.EdgesFrom(s.ID), func(e story.Edge) bool {
			return e.Type == story.EdgeSatisfies
		})
		if !satisfies {
			out = append(out, NewViolation(r, s.ID, "", "orphan",
				fmt.Sprintf("scene %q does not satisfy any story beat", s.Title)))
		}
	}
	return out
}

// arcOwnerRule removes character arcs whose character is gone, together
// with their incident edges. Deletion is explicit — no hidden cascade —
// and the captured inverse restores everything.
type arcOwnerRule struct{}

func (arcOwnerRule) ID() string         { return "arc-owner" }
func (arcOwnerRule) Severity() Severity { return SeverityHard }
func (arcOwnerRule) Category() string   { return "integrity" }

func (r arcOwnerRule) Evaluate(g *story.Graph, scope *Scope) []Violation {
	var out []Violation
	for _, n := range g.NodesByKind(story.KindCharacterArc) {
		arc := n.(story.CharacterArc)
		if !scope.Covers(arc.ID) {
			continue
		}
		owner, ok := g.GetNode(arc.CharacterID)
		if ok && owner.Kind() == story.KindCharacter {
			continue
		}
		v := NewViolation(r, arc.ID, "character_id", "orphan-arc",
			fmt.Sprintf("character arc %q belongs to %q, which does not exist", arc.ID, arc.CharacterID))
		v.RelatedNodeIDs = []string{arc.CharacterID}
		out = append(out, v)
	}
	return out
}

func (r arcOwnerRule) SuggestFix(g *story.Graph, v Violation) (*Fix, error) {
	arc, ok := g.GetNode(v.NodeID)
	if !ok {
		return nil, nil
	}
	var ops []story.PatchOp
	for _, e := range g.EdgesFrom(arc.NodeID()) {
		ops = append(ops, story.DeleteEdge{Match: story.EdgeMatcher{Type: e.Type, From: e.From, To: e.To}})
	}
	for _, e := range g.EdgesTo(arc.NodeID()) {
		ops = append(ops, story.DeleteEdge{Match: story.EdgeMatcher{Type: e.Type, From: e.From, To: e.To}})
	}
	ops = append(ops, story.DeleteNode{ID: arc.NodeID()})
	return newFix(g, v,
		fmt.Sprintf("Delete orphaned character arc %q and its edges", arc.NodeID()),
		ops, arc.NodeID())
}
