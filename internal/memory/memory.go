// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package memory implements the long-term recall interface:
// store a turn's utterance, recall the most relevant prior turns for the
// current one.
package memory

import (
	"context"
	"time"
)

// Entry is one stored memory item.
type Entry struct {
	SessionID string
	TurnID    uint64
	Role      string
	Text      string
	CreatedAt time.Time
	Score     float64 // set only on Recall results
}

// Store is the two-operation interface every backend satisfies.
type Store interface {
	Store(ctx context.Context, e Entry) error
	Recall(ctx context.Context, sessionID, query string, limit int) ([]Entry, error)
}

// NoopStore satisfies Store for deployments with memory.enabled=false; it
// never persists and always recalls nothing.
type NoopStore struct{}

func (NoopStore) Store(context.Context, Entry) error { return nil }
func (NoopStore) Recall(context.Context, string, string, int) ([]Entry, error) {
	return nil, nil
}
