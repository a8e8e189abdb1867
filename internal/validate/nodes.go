// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package validate

import (
	"fmt"
	"sort"

	"github.com/plotweave/plotweave/internal/story"
)

var (
	characterRoles  = map[string]bool{"protagonist": true, "antagonist": true, "supporting": true}
	conflictNatures = map[string]bool{"internal": true, "external": true, "interpersonal": true, "societal": true}
	arcTypes        = map[string]bool{"positive": true, "negative": true, "flat": true}
)

// checkNode runs the kind-specific content checks for one node. The
// switch is exhaustive over the closed node set.
func (v *Validator) checkNode(g *story.Graph, n story.Node, opIdx *int) Errors {
	var errs Errors
	id := n.NodeID()

	required := func(field, value string) {
		if value == "" {
			errs = append(errs, Error{Code: CodeMissingRequired, Message: fmt.Sprintf("%s %q requires %s", n.Kind(), id, field), NodeID: id, Field: field, OpIndex: opIdx})
		}
	}
	descriptive := func(field, value string) {
		if value != "" && len(value) < v.opts.MinDescriptionLen {
			errs = append(errs, Error{Code: CodeConstraint, Message: fmt.Sprintf("%s of %q must be at least %d characters", field, id, v.opts.MinDescriptionLen), NodeID: id, Field: field, OpIndex: opIdx})
		}
	}
	enum := func(field, value string, allowed map[string]bool) {
		if value != "" && !allowed[value] {
			errs = append(errs, Error{Code: CodeInvalidEnum, Message: fmt.Sprintf("%q is not a valid %s for %s", value, field, id), NodeID: id, Field: field, OpIndex: opIdx})
		}
	}
	intensity := func(value int) {
		if value != 0 && (value < 1 || value > 5) {
			errs = append(errs, Error{Code: CodeOutOfRange, Message: fmt.Sprintf("intensity of %q must be within 1..5", id), NodeID: id, Field: "intensity", OpIndex: opIdx})
		}
	}
	act := func(value int) {
		if value != 0 && (value < 1 || value > 5) {
			errs = append(errs, Error{Code: CodeOutOfRange, Message: fmt.Sprintf("act of %q must be within 1..5", id), NodeID: id, Field: "act", OpIndex: opIdx})
		}
	}
	// Zero means unset for ordering fields.
	order := func(field string, value int) {
		if value < 0 {
			errs = append(errs, Error{Code: CodeOutOfRange, Message: fmt.Sprintf("%s of %q must be >= 1 when set", field, id), NodeID: id, Field: field, OpIndex: opIdx})
		}
	}
	nodeRef := func(field, ref string, wantKind story.NodeKind) {
		if ref == "" {
			return
		}
		target, ok := g.Nodes[ref]
		if !ok {
			errs = append(errs, Error{Code: CodeFKIntegrity, Message: fmt.Sprintf("%s of %q references %q, which does not exist; create the referenced node first", field, id, ref), NodeID: id, Field: field, OpIndex: opIdx})
			return
		}
		if target.Kind() != wantKind {
			errs = append(errs, Error{Code: CodeFKIntegrity, Message: fmt.Sprintf("%s of %q must reference a %s node, got %s", field, id, wantKind, target.Kind()), NodeID: id, Field: field, OpIndex: opIdx})
		}
	}

	switch t := n.(type) {
	case story.Character:
		required("name", t.Name)
		descriptive("description", t.Description)
		enum("role", t.Role, characterRoles)
	case story.Scene:
		required("title", t.Title)
		descriptive("summary", t.Summary)
		order("order", t.Order)
	case story.Beat:
		required("slug", t.Slug)
		required("name", t.Name)
		act(t.Act)
		order("position", t.Position)
	case story.StoryBeat:
		required("title", t.Title)
		descriptive("synopsis", t.Synopsis)
		intensity(t.Intensity)
		order("order", t.Order)
		nodeRef("beat_id", t.BeatID, story.KindBeat)
	case story.Location:
		required("name", t.Name)
		descriptive("description", t.Description)
	case story.Object:
		required("name", t.Name)
		descriptive("description", t.Description)
	case story.Conflict:
		required("name", t.Name)
		descriptive("description", t.Description)
		enum("nature", t.Nature, conflictNatures)
		intensity(t.Intensity)
	case story.Theme:
		required("name", t.Name)
		descriptive("statement", t.Statement)
	case story.Motif:
		required("name", t.Name)
		descriptive("description", t.Description)
	case story.CharacterArc:
		required("character_id", t.CharacterID)
		descriptive("summary", t.Summary)
		enum("arc_type", t.ArcType, arcTypes)
		nodeRef("character_id", t.CharacterID, story.KindCharacter)
	case story.PlotPoint:
		required("title", t.Title)
		descriptive("description", t.Description)
		act(t.Act)
	default:
		errs = append(errs, Error{Code: CodeInvalidEnum, Message: fmt.Sprintf("unknown node kind %T", n), NodeID: id, OpIndex: opIdx})
	}
	return errs
}

// checkBeatInvariant guarantees the graph carries exactly the 15 canonical
// beats: none missing, none duplicated under a foreign id, none invented.
func (v *Validator) checkBeatInvariant(g *story.Graph, opIdx *int) Errors {
	var errs Errors
	canonical := story.CanonicalBeatIDs()

	present := make(map[string]bool, story.CanonicalBeatCount)
	for _, n := range g.NodesByKind(story.KindBeat) {
		id := n.NodeID()
		if _, ok := canonical[id]; !ok {
			errs = append(errs, Error{Code: CodeStructuralInvariant, Message: fmt.Sprintf("beat %q is not part of the canonical template", id), NodeID: id, OpIndex: opIdx})
			continue
		}
		present[id] = true
	}
	for _, b := range story.BeatCatalog() {
		if !present[b.ID] {
			errs = append(errs, Error{Code: CodeStructuralInvariant, Message: fmt.Sprintf("canonical beat %q (%s) is missing; the 15-beat template may never shrink", b.ID, b.Name), NodeID: b.ID, OpIndex: opIdx})
		}
	}
	return errs
}

func sortedNodeIDs(g *story.Graph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
