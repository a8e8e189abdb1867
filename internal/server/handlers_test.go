// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotweave/plotweave/internal/config"
	"github.com/plotweave/plotweave/internal/rules"
	"github.com/plotweave/plotweave/internal/story"
	"github.com/plotweave/plotweave/internal/validate"
	"github.com/plotweave/plotweave/internal/version"
)

type testEnv struct {
	ts    *httptest.Server
	store *version.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := version.NewStore(validate.Options{})
	engine := rules.NewEngine(rules.DefaultRegistry(), rules.Options{})
	validator := validate.New(validate.Options{})

	srv := New(&config.ServerConfig{Host: "127.0.0.1", Port: 0}, store, engine, validator)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: store}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(e.ts.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (e *testEnv) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func newPatch(base string, ops ...story.PatchOp) *story.Patch {
	return &story.Patch{
		ID:            uuid.NewString(),
		BaseVersionID: base,
		CreatedAt:     time.Now().UTC(),
		Ops:           ops,
	}
}

func TestGetGraphReturnsSeededHead(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/v1/story/graph")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, env.store.Head().ID, body["id"])
	require.Contains(t, body, "graph")

	graph := body["graph"].(map[string]any)
	nodes := graph["nodes"].([]any)
	assert.Len(t, nodes, 15, "seeded graph carries the canonical beats")
}

func TestSubmitPatchCreatesVersion(t *testing.T) {
	env := newTestEnv(t)
	base := env.store.Head()

	patch := newPatch(base.ID, story.AddNode{Node: story.Character{
		ID:   "char_mira",
		Name: "Mira",
		Role: "protagonist",
	}})
	resp, body := env.post(t, "/api/v1/story/patches", patch)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	v := body["version"].(map[string]any)
	assert.Equal(t, env.store.Head().ID, v["id"])
	assert.Equal(t, base.ID, v["parent_id"])

	d := body["diff"].(map[string]any)
	nodeDiff := d["nodes"].(map[string]any)
	assert.Equal(t, []any{"char_mira"}, nodeDiff["added"])

	resp, body = env.get(t, "/api/v1/story/versions")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["versions"].([]any), 2)
}

func TestSubmitPatchStaleBaseConflicts(t *testing.T) {
	env := newTestEnv(t)
	head := env.store.Head().ID

	patch := newPatch("no-such-version", story.AddNode{Node: story.Character{
		ID:   "char_mira",
		Name: "Mira",
	}})
	resp, body := env.post(t, "/api/v1/story/patches", patch)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, head, body["head"])
	assert.Equal(t, head, env.store.Head().ID, "head must not advance on conflict")
}

func TestSubmitPatchValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	head := env.store.Head().ID

	patch := newPatch(head, story.DeleteNode{ID: story.BeatIDPrefix + "Catalyst"})
	resp, body := env.post(t, "/api/v1/story/patches", patch)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	errs := body["errors"].([]any)
	require.NotEmpty(t, errs)
	first := errs[0].(map[string]any)
	assert.Equal(t, string(validate.CodeStructuralInvariant), first["code"])
	assert.Equal(t, head, env.store.Head().ID, "head must not advance on rejection")
}

func TestSubmitPatchRejectsEmptyAndMalformedBodies(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.post(t, "/api/v1/story/patches", newPatch(env.store.Head().ID))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw, err := http.Post(env.ts.URL+"/api/v1/story/patches", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestValidatePatchIsDryRun(t *testing.T) {
	env := newTestEnv(t)
	head := env.store.Head().ID

	patch := newPatch(head, story.DeleteNode{ID: story.BeatIDPrefix + "Finale"})
	resp, body := env.post(t, "/api/v1/story/patches/validate", patch)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["valid"])
	assert.NotEmpty(t, body["errors"])
	assert.Equal(t, head, env.store.Head().ID)
}

func TestDiffBetweenVersions(t *testing.T) {
	env := newTestEnv(t)
	base := env.store.Head()

	patch := newPatch(base.ID, story.AddNode{Node: story.Location{
		ID:   "loc_harbor",
		Name: "The Harbor",
	}})
	resp, _ := env.post(t, "/api/v1/story/patches", patch)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.get(t, "/api/v1/story/diff?from="+base.ID+"&to="+env.store.Head().ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	nodeDiff := body["nodes"].(map[string]any)
	assert.Equal(t, []any{"loc_harbor"}, nodeDiff["added"])

	resp, _ = env.get(t, "/api/v1/story/diff?from="+base.ID)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, "/api/v1/story/diff?from=bogus&to="+base.ID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLintThenApplyFixesCommitsOneVersion(t *testing.T) {
	env := newTestEnv(t)
	head := env.store.Head()

	// Two scenes colliding on order 1 trip the ordering rule, which offers
	// a renumbering fix.
	patch := newPatch(head.ID,
		story.AddNode{Node: story.Scene{ID: "scene_a", Title: "Landfall", Order: 1}},
		story.AddNode{Node: story.Scene{ID: "scene_b", Title: "The Chase", Order: 1}},
	)
	resp, _ := env.post(t, "/api/v1/story/patches", patch)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	lintedHead := env.store.Head().ID

	resp, body := env.post(t, "/api/v1/story/lint", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fixes := body["fixes"].([]any)
	require.NotEmpty(t, fixes)

	fixIDs := make([]string, 0, len(fixes))
	for _, f := range fixes {
		fix := f.(map[string]any)
		if fix["rule_id"] == "scene-order" {
			fixIDs = append(fixIDs, fix["id"].(string))
		}
	}
	require.Len(t, fixIDs, 2, "both collision findings offer the shared renumbering fix")

	resp, body = env.post(t, "/api/v1/story/fixes/apply", map[string]any{"fix_ids": fixIDs})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["applied_ids"].([]any), 1, "the second fix goes stale once the first renumbers")
	assert.Len(t, body["skipped"].([]any), 1)
	assert.NotEqual(t, lintedHead, body["version_id"], "applied fixes commit a new version")
	assert.Equal(t, body["version_id"], env.store.Head().ID)

	orders := map[int]bool{}
	for _, n := range env.store.Head().Graph().NodesByKind(story.KindScene) {
		orders[n.(story.Scene).Order] = true
	}
	assert.True(t, orders[1] && orders[2], "orders renumbered to a dense sequence")
}

func TestApplyFixesUnknownIDIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	head := env.store.Head().ID

	resp, body := env.post(t, "/api/v1/story/fixes/apply", map[string]any{"fix_ids": []string{"deadbeef"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["applied_ids"])

	skipped := body["skipped"].([]any)
	require.Len(t, skipped, 1)
	assert.Equal(t, "skipped: unknown fix id", skipped[0].(map[string]any)["reason"])
	assert.Equal(t, head, env.store.Head().ID, "nothing applied, nothing committed")
}

func TestCoverageEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/v1/story/coverage")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	summary := body["summary"].([]any)
	assert.Len(t, summary, 5)
	assert.NotEmpty(t, body["gaps"], "a bare seeded story has open gaps")
}

func TestGetVersionByID(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/v1/story/versions/"+env.store.Head().ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, env.store.Head().ID, body["id"])

	resp, _ = env.get(t, "/api/v1/story/versions/bogus")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
