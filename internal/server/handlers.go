// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plotweave/plotweave/internal/coverage"
	"github.com/plotweave/plotweave/internal/diff"
	"github.com/plotweave/plotweave/internal/protocol"
	"github.com/plotweave/plotweave/internal/rules"
	"github.com/plotweave/plotweave/internal/story"
	"github.com/plotweave/plotweave/internal/validate"
	"github.com/plotweave/plotweave/internal/version"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	broadcaster *EventBroadcaster
	store       *version.Store
	engine      *rules.Engine
	validator   *validate.Validator

	// fixCache maps fix ids from the last lint responses to their fixes,
	// so apply requests can reference fixes by id. Staleness is re-checked
	// at apply time, so serving an old fix is safe.
	mu       sync.Mutex
	fixCache map[string]rules.Fix
}

// NewHandlers creates the handler set.
func NewHandlers(broadcaster *EventBroadcaster, store *version.Store, engine *rules.Engine, validator *validate.Validator) *Handlers {
	return &Handlers{
		broadcaster: broadcaster,
		store:       store,
		engine:      engine,
		validator:   validator,
		fixCache:    make(map[string]rules.Fix),
	}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		getLog().Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// versionSummary is the wire shape of one version without its graph.
type versionSummary struct {
	ID        string         `json:"id"`
	ParentID  string         `json:"parent_id,omitempty"`
	PatchID   string         `json:"patch_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func summarize(v *version.Version) versionSummary {
	return versionSummary{
		ID:        v.ID,
		ParentID:  v.ParentID,
		PatchID:   v.PatchID,
		CreatedAt: v.CreatedAt,
		Metadata:  v.Metadata,
	}
}

// graphResponse carries a version summary plus its encoded graph.
type graphResponse struct {
	versionSummary
	Graph json.RawMessage `json:"graph"`
}

func (h *Handlers) writeGraph(w http.ResponseWriter, v *version.Version) {
	data, err := story.EncodeGraph(v.Graph())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode graph")
		return
	}
	writeJSON(w, http.StatusOK, graphResponse{versionSummary: summarize(v), Graph: data})
}

// --- GET handlers ---

// GetGraph handles GET /api/v1/story/graph
func (h *Handlers) GetGraph(w http.ResponseWriter, r *http.Request) {
	h.writeGraph(w, h.store.Head())
}

// GetVersions handles GET /api/v1/story/versions
func (h *Handlers) GetVersions(w http.ResponseWriter, r *http.Request) {
	history := h.store.History()
	out := make([]versionSummary, 0, len(history))
	for _, v := range history {
		out = append(out, summarize(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"head":     h.store.Head().ID,
		"versions": out,
	})
}

// GetVersion handles GET /api/v1/story/versions/{id}
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	v, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeGraph(w, v)
}

// GetDiff handles GET /api/v1/story/diff?from={id}&to={id}
func (h *Handlers) GetDiff(w http.ResponseWriter, r *http.Request) {
	fromID := r.URL.Query().Get("from")
	toID := r.URL.Query().Get("to")
	if fromID == "" || toID == "" {
		writeError(w, http.StatusBadRequest, "from and to version ids are required")
		return
	}
	from, err := h.store.Get(fromID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	to, err := h.store.Get(toID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, diff.Compute(from.Graph(), to.Graph()))
}

// GetCoverage handles GET /api/v1/story/coverage
func (h *Handlers) GetCoverage(w http.ResponseWriter, r *http.Request) {
	head := h.store.Head()
	result := coverage.Compute(head.Graph(), h.engine)

	h.broadcaster.Publish(protocol.CoverageUpdatedEvent{
		Metadata:  protocol.Metadata{Version: protocol.CurrentProtocolVersion},
		VersionID: head.ID,
		Coverage:  result,
	})
	writeJSON(w, http.StatusOK, result)
}

// --- POST handlers ---

// SubmitPatch handles POST /api/v1/story/patches
func (h *Handlers) SubmitPatch(w http.ResponseWriter, r *http.Request) {
	var patch story.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid patch body: "+err.Error())
		return
	}
	if len(patch.Ops) == 0 {
		writeError(w, http.StatusBadRequest, "patch has no operations")
		return
	}

	base := h.store.Head()
	v, err := h.store.Commit(&patch)
	if err != nil {
		h.rejectPatch(w, &patch, err)
		return
	}

	d := diff.Compute(base.Graph(), v.Graph())
	h.broadcaster.Publish(protocol.VersionCommittedEvent{
		Metadata:  protocol.Metadata{Version: protocol.CurrentProtocolVersion},
		VersionID: v.ID,
		ParentID:  v.ParentID,
		PatchID:   patch.ID,
		Diff:      d,
		CreatedAt: v.CreatedAt,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"version": summarize(v),
		"diff":    d,
	})
}

func (h *Handlers) rejectPatch(w http.ResponseWriter, patch *story.Patch, err error) {
	event := protocol.PatchRejectedEvent{
		Metadata: protocol.Metadata{Version: protocol.CurrentProtocolVersion},
		PatchID:  patch.ID,
		Reason:   err.Error(),
		HeadID:   h.store.Head().ID,
		BaseID:   patch.BaseVersionID,
	}

	var verrs validate.Errors
	switch {
	case errors.Is(err, version.ErrVersionConflict):
		event.Conflict = true
		h.broadcaster.Publish(event)
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": err.Error(),
			"head":  event.HeadID,
		})
	case errors.As(err, &verrs):
		event.Errors = verrs
		h.broadcaster.Publish(event)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "patch validation failed",
			"errors": verrs,
		})
	default:
		h.broadcaster.Publish(event)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ValidatePatch handles POST /api/v1/story/patches/validate: a dry run
// that never commits.
func (h *Handlers) ValidatePatch(w http.ResponseWriter, r *http.Request) {
	var patch story.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid patch body: "+err.Error())
		return
	}

	errs := h.validator.Patch(h.store.Head().Graph(), &patch)
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  len(errs) == 0,
		"errors": errs,
	})
}

// lintRequest is the JSON body for lint runs. An empty body means a full
// pass.
type lintRequest struct {
	Mode           string   `json:"mode,omitempty"` // "full" (default) or "touched"
	TouchedNodeIDs []string `json:"touched_node_ids,omitempty"`
	TouchedEdgeIDs []string `json:"touched_edge_ids,omitempty"`
	Rules          []string `json:"rules,omitempty"`
}

// Lint handles POST /api/v1/story/lint
func (h *Handlers) Lint(w http.ResponseWriter, r *http.Request) {
	var body lintRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	scope := rules.FullScope()
	if body.Mode == string(rules.ScopeTouched) {
		scope = rules.TouchedScope(body.TouchedNodeIDs, body.TouchedEdgeIDs)
	}

	head := h.store.Head()
	result := h.engine.Lint(head.Graph(), scope, body.Rules...)

	h.mu.Lock()
	for _, fix := range result.Fixes {
		h.fixCache[fix.ID] = fix
	}
	h.mu.Unlock()

	h.broadcaster.Publish(protocol.LintCompletedEvent{
		Metadata:  protocol.Metadata{Version: protocol.CurrentProtocolVersion},
		VersionID: head.ID,
		Result:    result,
	})
	writeJSON(w, http.StatusOK, result)
}

// applyFixesRequest is the JSON body for fix application.
type applyFixesRequest struct {
	FixIDs []string `json:"fix_ids"`
}

// ApplyFixes handles POST /api/v1/story/fixes/apply. Fixes are looked up
// from prior lint responses, re-checked for staleness against the current
// head, applied in dependency order, and the combined result is committed
// as one new version.
func (h *Handlers) ApplyFixes(w http.ResponseWriter, r *http.Request) {
	var body applyFixesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.FixIDs) == 0 {
		writeError(w, http.StatusBadRequest, "fix_ids is required and must not be empty")
		return
	}

	h.mu.Lock()
	fixes := make([]rules.Fix, 0, len(body.FixIDs))
	unknown := []rules.FixOutcome{}
	for _, id := range body.FixIDs {
		if fix, ok := h.fixCache[id]; ok {
			fixes = append(fixes, fix)
		} else {
			unknown = append(unknown, rules.FixOutcome{FixID: id, Reason: "skipped: unknown fix id"})
		}
	}
	h.mu.Unlock()

	head := h.store.Head()
	_, result := h.engine.ApplyAllFixes(head.Graph(), fixes)
	result.Skipped = append(result.Skipped, unknown...)

	headID := head.ID
	if len(result.AppliedIDs) > 0 {
		byID := make(map[string]rules.Fix, len(fixes))
		for _, f := range fixes {
			byID[f.ID] = f
		}
		merged := &story.Patch{
			ID:            uuid.NewString(),
			BaseVersionID: head.ID,
			CreatedAt:     time.Now().UTC(),
			Metadata:      map[string]any{"source": "fixes", "fix_ids": result.AppliedIDs},
		}
		for _, id := range result.AppliedIDs {
			merged.Ops = append(merged.Ops, byID[id].Patch.Ops...)
		}

		v, err := h.store.Commit(merged)
		if err != nil {
			h.rejectPatch(w, merged, err)
			return
		}
		headID = v.ID

		h.mu.Lock()
		for _, id := range result.AppliedIDs {
			delete(h.fixCache, id)
		}
		h.mu.Unlock()
	}

	h.broadcaster.Publish(protocol.FixesAppliedEvent{
		Metadata:   protocol.Metadata{Version: protocol.CurrentProtocolVersion},
		VersionID:  headID,
		AppliedIDs: result.AppliedIDs,
		Skipped:    result.Skipped,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"version_id":  headID,
		"applied_ids": result.AppliedIDs,
		"skipped":     result.Skipped,
	})
}
