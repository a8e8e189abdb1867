// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package version holds the append-only chain of graph snapshots. Each
// committed patch produces a new immutable version with a parent pointer;
// nothing here ever edits an existing snapshot.
package version

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plotweave/plotweave/internal/logger"
	"github.com/plotweave/plotweave/internal/story"
	"github.com/plotweave/plotweave/internal/validate"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetVersionLogger()
		log = &l
	})
	return log
}

var (
	// ErrVersionConflict is returned when a patch's base version is not the
	// current head. The writer must rebase and resubmit.
	ErrVersionConflict = errors.New("base version is not the current head")

	// ErrUnknownVersion is returned for lookups of version ids the store
	// has never seen.
	ErrUnknownVersion = errors.New("unknown version")
)

// Version is one immutable snapshot in the chain.
type Version struct {
	ID        string            `json:"id"`
	ParentID  string            `json:"parent_id,omitempty"`
	PatchID   string            `json:"patch_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]any    `json:"metadata,omitempty"`

	graph *story.Graph
}

// Graph returns the snapshot this version owns. Callers must treat it as
// read-only; mutating it would corrupt every reader of this version.
func (v *Version) Graph() *story.Graph {
	return v.graph
}

// Store is an in-memory version chain with a single head. Commit is the
// only mutation and enforces optimistic concurrency: a patch lands only
// when its base version id matches the head at commit time.
type Store struct {
	mu        sync.RWMutex
	versions  map[string]*Version
	order     []string
	head      string
	validator *validate.Validator
	now       func() time.Time
}

// NewStore creates a store seeded with an initial version holding the
// canonical beat template.
func NewStore(opts validate.Options) *Store {
	s := &Store{
		versions:  make(map[string]*Version),
		validator: validate.New(opts),
		now:       time.Now,
	}
	root := &Version{
		ID:        uuid.New().String(),
		CreatedAt: s.now().UTC(),
		graph:     story.NewSeededGraph(),
	}
	s.versions[root.ID] = root
	s.order = append(s.order, root.ID)
	s.head = root.ID
	return s
}

// Head returns the current head version.
func (s *Store) Head() *Version {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[s.head]
}

// Get returns a version by id.
func (s *Store) Get(id string) (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, id)
	}
	return v, nil
}

// History returns every version, oldest first.
func (s *Store) History() []*Version {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Version, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.versions[id])
	}
	return out
}

// Len returns the number of versions in the chain.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Commit validates and applies a patch against the head, producing a new
// head version. The check-validate-apply sequence runs under one lock, so
// two racing writers on the same base can never both land: the second
// gets ErrVersionConflict.
//
// Validation failures return the full validate.Errors list; the chain is
// unchanged on any error.
func (s *Store) Commit(p *story.Patch) (*Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.BaseVersionID != s.head {
		getLog().Warn().
			Str("patch_id", p.ID).
			Str("base_version_id", p.BaseVersionID).
			Str("head", s.head).
			Msg("Patch rejected: version conflict")
		return nil, fmt.Errorf("%w: patch base %s, head %s", ErrVersionConflict, p.BaseVersionID, s.head)
	}

	base := s.versions[s.head]
	if errs := s.validator.Patch(base.graph, p); len(errs) > 0 {
		getLog().Warn().
			Str("patch_id", p.ID).
			Int("error_count", len(errs)).
			Msg("Patch rejected: validation failed")
		return nil, errs
	}

	next, err := story.Apply(base.graph, p)
	if err != nil {
		return nil, fmt.Errorf("applying patch %s: %w", p.ID, err)
	}

	v := &Version{
		ID:        uuid.New().String(),
		ParentID:  base.ID,
		PatchID:   p.ID,
		CreatedAt: s.now().UTC(),
		graph:     next,
	}
	if len(p.Metadata) > 0 {
		v.Metadata = make(map[string]any, len(p.Metadata))
		for k, val := range p.Metadata {
			v.Metadata[k] = val
		}
	}
	s.versions[v.ID] = v
	s.order = append(s.order, v.ID)
	s.head = v.ID

	getLog().Info().
		Str("version_id", v.ID).
		Str("parent_id", v.ParentID).
		Str("patch_id", p.ID).
		Int("op_count", len(p.Ops)).
		Msg("Patch committed")
	return v, nil
}
