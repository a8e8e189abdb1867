// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package protocol defines the events the engine pushes to connected
// clients. Everything a client can receive over the event channel is
// named: Event. Events originate from commits, lint passes and fix
// application on the server side.
package protocol

import (
	"time"

	"github.com/plotweave/plotweave/internal/common"
	"github.com/plotweave/plotweave/internal/coverage"
	"github.com/plotweave/plotweave/internal/diff"
	"github.com/plotweave/plotweave/internal/rules"
	"github.com/plotweave/plotweave/internal/validate"
)

// Re-export common types so most packages only import protocol.
type Metadata = common.Metadata

// Event is re-exported from common.
type Event = common.Event

// CurrentProtocolVersion is re-exported from common.
const CurrentProtocolVersion = common.CurrentProtocolVersion

// GetIdempotencyKey extracts the idempotency key from any event.
func GetIdempotencyKey(event Event) string {
	return event.GetMetadata().IdempotencyKey
}

// VersionCommittedEvent is sent when a patch lands and a new head version
// exists.
type VersionCommittedEvent struct {
	Metadata
	VersionID string          `json:"version_id"`
	ParentID  string          `json:"parent_id,omitempty"`
	PatchID   string          `json:"patch_id"`
	Diff      *diff.GraphDiff `json:"diff,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (e VersionCommittedEvent) GetMetadata() Metadata {
	return e.Metadata
}

// PatchRejectedEvent is sent when a patch fails validation or targets a
// stale base version.
type PatchRejectedEvent struct {
	Metadata
	PatchID  string          `json:"patch_id"`
	Reason   string          `json:"reason"`
	Errors   validate.Errors `json:"errors,omitempty"`
	HeadID   string          `json:"head_id"`
	BaseID   string          `json:"base_id,omitempty"`
	Conflict bool            `json:"conflict,omitempty"`
}

func (e PatchRejectedEvent) GetMetadata() Metadata {
	return e.Metadata
}

// LintCompletedEvent is sent after a lint pass finishes.
type LintCompletedEvent struct {
	Metadata
	VersionID string            `json:"version_id"`
	Result    *rules.LintResult `json:"result"`
}

func (e LintCompletedEvent) GetMetadata() Metadata {
	return e.Metadata
}

// FixesAppliedEvent is sent after a batch of fixes has been applied.
type FixesAppliedEvent struct {
	Metadata
	VersionID  string             `json:"version_id"`
	AppliedIDs []string           `json:"applied_ids"`
	Skipped    []rules.FixOutcome `json:"skipped"`
}

func (e FixesAppliedEvent) GetMetadata() Metadata {
	return e.Metadata
}

// CoverageUpdatedEvent is sent when coverage has been recomputed for a
// version.
type CoverageUpdatedEvent struct {
	Metadata
	VersionID string           `json:"version_id"`
	Coverage  *coverage.Result `json:"coverage"`
}

func (e CoverageUpdatedEvent) GetMetadata() Metadata {
	return e.Metadata
}

// GetVersionID accessors let the API server's WebSocket filter match
// events without an exhaustive type switch.

func (e VersionCommittedEvent) GetVersionID() string { return e.VersionID }
func (e LintCompletedEvent) GetVersionID() string    { return e.VersionID }
func (e FixesAppliedEvent) GetVersionID() string     { return e.VersionID }
func (e CoverageUpdatedEvent) GetVersionID() string  { return e.VersionID }

// ErrorEvent carries a non-fatal server-side failure to clients.
type ErrorEvent struct {
	Metadata
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

func (e ErrorEvent) GetMetadata() Metadata {
	return e.Metadata
}
