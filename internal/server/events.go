// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the REST + WebSocket API over the story engine.
// Handlers call the version store and rule engine directly for mutations
// and broadcast the resulting events to connected WebSocket clients.
package server

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/plotweave/plotweave/internal/logger"
	"github.com/plotweave/plotweave/internal/protocol"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetAPILogger()
		log = &l
	})
	return log
}

// EventBroadcaster reads every event from the server's event channel and
// fans them out to all connected WebSocket clients.
type EventBroadcaster struct {
	eventChan chan protocol.Event
	clients   *ClientRegistry
}

// NewEventBroadcaster creates a broadcaster with its own buffered channel.
func NewEventBroadcaster(clients *ClientRegistry) *EventBroadcaster {
	return &EventBroadcaster{
		eventChan: make(chan protocol.Event, 256),
		clients:   clients,
	}
}

// Publish queues an event for broadcast. Events are dropped rather than
// blocking a request handler when the queue is full.
func (b *EventBroadcaster) Publish(event protocol.Event) {
	select {
	case b.eventChan <- event:
	default:
		getLog().Warn().Msg("Event queue full, dropping event")
	}
}

// Run reads events until the context is cancelled.
func (b *EventBroadcaster) Run(ctx context.Context) {
	for {
		select {
		case event := <-b.eventChan:
			if b.clients != nil {
				b.clients.Broadcast(event)
			}
		case <-ctx.Done():
			getLog().Info().Msg("Event broadcaster stopped (context cancelled)")
			return
		}
	}
}
