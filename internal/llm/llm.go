// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package llm defines the streaming completion adapter contract and the
// token-budgeted context manager that feeds it.
package llm

import (
	"context"

	"github.com/rapidaai/voicegraph/internal/session"
)

// Delta is one streamed fragment from an adapter: either text or a tool
// call request, never both.
type Delta struct {
	Text     string
	ToolName string
	ToolArgs map[string]interface{}
	ToolID   string
	Done     bool
}

// ToolSchema describes one callable tool for providers that support
// function calling.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Adapter streams a completion for a prepared message list, offering the
// tools described by ToolSchema; a tool-call request surfaces as a Delta
// with ToolName set, and the Stage dispatches it.
type Adapter interface {
	Stream(ctx context.Context, messages []session.Message, tools []ToolSchema) (<-chan Delta, error)
}

// BuildMessages assembles the provider-agnostic message list for one turn:
// the system prompt (when non-empty) followed by history as given. Token
// budgeting is left to ContextManager.Fit.
func BuildMessages(systemPrompt string, history []session.Message) []session.Message {
	out := make([]session.Message, 0, len(history)+1)
	if systemPrompt != "" {
		out = append(out, session.Message{Role: session.RoleSystem, Content: systemPrompt})
	}
	out = append(out, history...)
	return out
}
