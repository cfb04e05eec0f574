// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package llm

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/rapidaai/voicegraph/internal/session"
)

// ContextManager elides oldest history entries to keep the prompt under a
// token budget. Provider-specific tokenizers are
// approximated with cl100k_base, which SPEC_FULL.md notes is standard
// practice here and not a protocol requirement.
type ContextManager struct {
	enc        *tiktoken.Tiktoken
	tokenBudget int
}

func NewContextManager(tokenBudget int) (*ContextManager, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &ContextManager{enc: enc, tokenBudget: tokenBudget}, nil
}

// Fit drops the oldest non-system messages until the remaining set fits
// within the token budget. System messages are never elided.
func (c *ContextManager) Fit(messages []session.Message) []session.Message {
	total := c.countAll(messages)
	if total <= c.tokenBudget {
		return messages
	}

	sys := make([]session.Message, 0)
	rest := make([]session.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == session.RoleSystem {
			sys = append(sys, m)
		} else {
			rest = append(rest, m)
		}
	}

	budget := c.tokenBudget - c.countAll(sys)
	kept := make([]session.Message, 0, len(rest))
	used := 0
	for i := len(rest) - 1; i >= 0; i-- {
		n := c.count(rest[i].Content)
		if used+n > budget {
			break
		}
		kept = append([]session.Message{rest[i]}, kept...)
		used += n
	}
	return append(sys, kept...)
}

func (c *ContextManager) count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

func (c *ContextManager) countAll(messages []session.Message) int {
	total := 0
	for _, m := range messages {
		total += c.count(m.Content)
	}
	return total
}
