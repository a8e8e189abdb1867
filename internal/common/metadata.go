// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package common provides shared types used across multiple packages.
package common

// Metadata contains common fields for all messages that cross the API
// boundary, both requests into the engine and events pushed back out.
type Metadata struct {
	// StoryID serves as the correlation id for story-scoped operations.
	// Optional - only present for story-scoped messages.
	StoryID string `json:"story_id,omitempty"`

	// IdempotencyKey is used for event deduplication on redelivery.
	// Optional - events without this key are always processed.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// Version indicates the protocol version for backward compatibility.
	// Format: "v{major}.{minor}.{patch}" (e.g., "v1.0.0")
	Version string `json:"version"`
}

// CurrentProtocolVersion defines the current version of the protocol.
// This should be updated when making breaking changes to the protocol.
const CurrentProtocolVersion = "v1.0.0"

// Event represents events pushed from the engine to connected clients.
// Any type implementing this interface can be sent through the event
// channel.
type Event interface {
	GetMetadata() Metadata
}
