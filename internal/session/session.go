// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package session owns the per-connection conversation state: turn
// numbering, the rolling conversation history, and the cancellation scope
// that every stage in one session's graph shares.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Role tags one entry in the conversation history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Message is one turn of conversation history kept for LLM context assembly.
type Message struct {
	Role      Role
	Content   string
	TurnID    uint64
	CreatedAt time.Time
}

// Session is the unit of conversation lifetime: one per connected peer. It
// owns turn numbering, history, and the context all of that peer's stage
// Runners are cancelled through.
type Session struct {
	ID string

	ctx    context.Context
	cancel context.CancelCauseFunc

	turnID atomic.Uint64

	mu      sync.RWMutex
	history []Message
}

// New creates a Session whose Context() is a child of parent, cancelled via
// End or automatically when parent is cancelled.
func New(parent context.Context, id string) *Session {
	ctx, cancel := context.WithCancelCause(parent)
	return &Session{ID: id, ctx: ctx, cancel: cancel}
}

// Context returns the cancellation scope shared by every stage in this
// session's graph.
func (s *Session) Context() context.Context { return s.ctx }

// End cancels the session's context with reason, tearing down every stage
// Runner selecting on it. Idempotent.
func (s *Session) End(reason error) { s.cancel(reason) }

// NextTurn allocates the next turn id. Turn ids are monotonically
// increasing for the lifetime of the session and never reused.
func (s *Session) NextTurn() uint64 { return s.turnID.Add(1) }

// CurrentTurn returns the most recently allocated turn id, or 0 if no turn
// has opened yet.
func (s *Session) CurrentTurn() uint64 { return s.turnID.Load() }

// AppendHistory records one conversation entry.
func (s *Session) AppendHistory(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
}

// History returns a snapshot of the conversation so far, oldest first.
func (s *Session) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}
