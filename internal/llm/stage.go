// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rapidaai/voicegraph/internal/frame"
	"github.com/rapidaai/voicegraph/internal/memory"
	"github.com/rapidaai/voicegraph/internal/session"
	"github.com/rapidaai/voicegraph/internal/tool"
)

// Config controls the LLM stage's prompt assembly and recall behavior.
type Config struct {
	SystemPrompt      string
	MemoryRecallLimit int
}

func DefaultConfig() Config {
	return Config{MemoryRecallLimit: 5}
}

// Stage drives one turn's completion: recall, prompt assembly, streaming,
// and any tool-call round trips, all inline rather than via a separate
// queue hop for tool results; each ToolCall resolves exactly one
// ToolResult. It consumes STTFinal and produces AssistantTextDelta,
// AssistantTextFinal, ToolCall and ToolResult frames for the turn.
type Stage struct {
	adapter     Adapter
	ctxMgr      *ContextManager
	memory      memory.Store
	dispatcher  *tool.Dispatcher
	toolSchemas []ToolSchema
	sess        *session.Session
	cfg         Config
}

func NewStage(adapter Adapter, ctxMgr *ContextManager, mem memory.Store, dispatcher *tool.Dispatcher, toolSchemas []ToolSchema, sess *session.Session, cfg Config) *Stage {
	if mem == nil {
		mem = memory.NoopStore{}
	}
	return &Stage{
		adapter:     adapter,
		ctxMgr:      ctxMgr,
		memory:      mem,
		dispatcher:  dispatcher,
		toolSchemas: toolSchemas,
		sess:        sess,
		cfg:         cfg,
	}
}

func (s *Stage) Name() string               { return "llm" }
func (s *Stage) Start(context.Context) error { return nil }
func (s *Stage) Stop(error) error            { return nil }
func (s *Stage) Classify(err error) frame.ErrorKind {
	return frame.ErrProviderUnavailable
}

func (s *Stage) Process(ctx context.Context, in frame.Frame) ([]frame.Frame, error) {
	final, ok := in.(*frame.STTFinal)
	if !ok {
		return nil, nil
	}
	turnID := final.TurnID()

	s.sess.AppendHistory(session.Message{Role: session.RoleUser, Content: final.Text, TurnID: turnID, CreatedAt: time.Now()})
	// The user utterance is stored fire-and-forget: a failed write never blocks the turn.
	_ = s.memory.Store(ctx, memory.Entry{SessionID: s.sess.ID, TurnID: turnID, Role: string(session.RoleUser), Text: final.Text, CreatedAt: time.Now()})

	out := []frame.Frame{frame.NewTranscription(turnID, final.Text, final.SpeakerID)}
	systemPrompt := s.cfg.SystemPrompt

	recallStart := time.Now()
	recalled, err := s.memory.Recall(ctx, s.sess.ID, final.Text, s.cfg.MemoryRecallLimit)
	if err == nil && len(recalled) > 0 {
		out = append(out, frame.NewMetric(turnID, s.Name(), frame.MetricMemoryTTFB, float64(time.Since(recallStart).Milliseconds())))
		systemPrompt = systemPrompt + "\n\nRelevant prior context:\n" + renderRecall(recalled)
	}

	messages := BuildMessages(systemPrompt, s.sess.History())
	messages = s.ctxMgr.Fit(messages)

	emitted := false
	turnOut, err := s.runTurn(ctx, turnID, messages, time.Now(), &emitted)
	if err != nil {
		return out, err
	}
	return append(out, turnOut...), nil
}

// runTurn streams one completion, recursing once per tool call so the tool
// result rejoins the same provider conversation without a separate hop
// through the pipeline graph.
func (s *Stage) runTurn(ctx context.Context, turnID uint64, messages []session.Message, t0 time.Time, ttfbEmitted *bool) ([]frame.Frame, error) {
	deltas, err := s.adapter.Stream(ctx, messages, s.toolSchemas)
	if err != nil {
		return nil, fmt.Errorf("llm: stream: %w", err)
	}

	var out []frame.Frame
	var text strings.Builder

	for d := range deltas {
		if !*ttfbEmitted {
			*ttfbEmitted = true
			out = append(out, frame.NewMetric(turnID, s.Name(), frame.MetricLLMTTFB, float64(time.Since(t0).Milliseconds())))
		}

		if d.ToolName != "" {
			call := frame.NewToolCall(turnID, d.ToolName, d.ToolID, d.ToolArgs)
			out = append(out, call)

			result := s.dispatcher.Dispatch(ctx, call)
			out = append(out, result)

			messages = append(messages,
				session.Message{Role: session.RoleAssistant, Content: fmt.Sprintf("called tool %s", d.ToolName), TurnID: turnID, CreatedAt: time.Now()},
				session.Message{Role: session.RoleTool, Content: toolResultText(result), TurnID: turnID, CreatedAt: time.Now()},
			)
			followUp, err := s.runTurn(ctx, turnID, messages, t0, ttfbEmitted)
			if err != nil {
				return out, err
			}
			return append(out, followUp...), nil
		}

		if d.Text != "" {
			text.WriteString(d.Text)
			out = append(out, frame.NewAssistantTextDelta(turnID, d.Text))
		}

		if d.Done {
			break
		}
	}

	if finalText := text.String(); finalText != "" {
		out = append(out, frame.NewAssistantTextFinal(turnID, finalText))
		s.sess.AppendHistory(session.Message{Role: session.RoleAssistant, Content: finalText, TurnID: turnID, CreatedAt: time.Now()})
		if err := s.memory.Store(ctx, memory.Entry{SessionID: s.sess.ID, TurnID: turnID, Role: string(session.RoleAssistant), Text: finalText, CreatedAt: time.Now()}); err != nil {
			return out, fmt.Errorf("llm: memory store: %w", err)
		}
	}

	return out, nil
}

func toolResultText(r *frame.ToolResult) string {
	if r.Err != "" {
		return "error: " + r.Err
	}
	return r.Value
}

func renderRecall(entries []memory.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "- (%s) %s\n", e.Role, e.Text)
	}
	return b.String()
}
