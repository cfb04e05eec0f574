// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package llm

import (
	"context"
	"testing"

	"github.com/rapidaai/voicegraph/internal/frame"
	"github.com/rapidaai/voicegraph/internal/memory"
	"github.com/rapidaai/voicegraph/internal/session"
	"github.com/rapidaai/voicegraph/internal/tool"
)

// scriptedAdapter replays one slice of deltas per call to Stream, in order.
type scriptedAdapter struct {
	calls  int
	script [][]Delta
}

func (a *scriptedAdapter) Stream(ctx context.Context, messages []session.Message, tools []ToolSchema) (<-chan Delta, error) {
	idx := a.calls
	a.calls++
	ch := make(chan Delta, len(a.script[idx]))
	for _, d := range a.script[idx] {
		ch <- d
	}
	close(ch)
	return ch, nil
}

func newTestContextManager(t *testing.T) *ContextManager {
	t.Helper()
	cm, err := NewContextManager(4096)
	if err != nil {
		t.Fatalf("NewContextManager: %v", err)
	}
	return cm
}

func TestStageProcessEmitsTextFinalAndTTFB(t *testing.T) {
	adapter := &scriptedAdapter{script: [][]Delta{
		{{Text: "Hello"}, {Text: ", there"}, {Done: true}},
	}}
	sess := session.New(context.Background(), "sess-1")
	st := NewStage(adapter, newTestContextManager(t), memory.NoopStore{}, &tool.Dispatcher{}, nil, sess, DefaultConfig())

	out, err := st.Process(context.Background(), frame.NewSTTFinal(1, "hi there", ""))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	var sawTTFB, sawFinal bool
	var finalText string
	for _, f := range out {
		switch v := f.(type) {
		case *frame.Metric:
			if v.Kind_ == frame.MetricLLMTTFB {
				sawTTFB = true
			}
		case *frame.AssistantTextFinal:
			sawFinal = true
			finalText = v.Text
		}
	}
	if !sawTTFB {
		t.Error("expected an llm_ttfb_ms metric frame")
	}
	if !sawFinal || finalText != "Hello, there" {
		t.Errorf("expected assembled final text %q, got %q (sawFinal=%v)", "Hello, there", finalText, sawFinal)
	}

	hist := sess.History()
	if len(hist) != 2 || hist[0].Role != session.RoleUser || hist[1].Role != session.RoleAssistant {
		t.Errorf("expected user then assistant history entries, got %+v", hist)
	}
}

// TestStageProcessEmitsTranscriptionFirst covers E1: a settled turn that
// clears the pipeline reaches the LLM stage and must produce, as its first
// output frame, a client-facing Transcription carrying the recognized text.
func TestStageProcessEmitsTranscriptionFirst(t *testing.T) {
	adapter := &scriptedAdapter{script: [][]Delta{
		{{Text: "sure"}, {Done: true}},
	}}
	sess := session.New(context.Background(), "sess-transcription")
	st := NewStage(adapter, newTestContextManager(t), memory.NoopStore{}, &tool.Dispatcher{}, nil, sess, DefaultConfig())

	out, err := st.Process(context.Background(), frame.NewSTTFinal(3, "turn the lights on", "spk-1"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected at least one output frame")
	}
	transcription, ok := out[0].(*frame.Transcription)
	if !ok {
		t.Fatalf("expected first frame to be *frame.Transcription, got %T", out[0])
	}
	if transcription.Text != "turn the lights on" || transcription.SpeakerID != "spk-1" {
		t.Errorf("unexpected transcription %+v", transcription)
	}
	if transcription.TurnID() != 3 {
		t.Errorf("expected turn id 3, got %d", transcription.TurnID())
	}
}

func TestStageProcessRunsToolCallLoop(t *testing.T) {
	adapter := &scriptedAdapter{script: [][]Delta{
		{{ToolName: "get_robot_status", ToolID: "call-1", ToolArgs: map[string]interface{}{}}},
		{{Text: "All systems nominal."}, {Done: true}},
	}}
	sess := session.New(context.Background(), "sess-2")
	dispatcher := &tool.Dispatcher{} // no hardware configured: resolves to an error ToolResult, never ends the session
	st := NewStage(adapter, newTestContextManager(t), memory.NoopStore{}, dispatcher, nil, sess, DefaultConfig())

	out, err := st.Process(context.Background(), frame.NewSTTFinal(1, "how are you doing", ""))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	var sawCall, sawResult, sawFinal bool
	for _, f := range out {
		switch f.(type) {
		case *frame.ToolCall:
			sawCall = true
		case *frame.ToolResult:
			sawResult = true
		case *frame.AssistantTextFinal:
			sawFinal = true
		}
	}
	if !sawCall || !sawResult {
		t.Errorf("expected both a ToolCall and a ToolResult frame, got call=%v result=%v", sawCall, sawResult)
	}
	if !sawFinal {
		t.Error("expected the follow-up completion to still produce an AssistantTextFinal")
	}
	if adapter.calls != 2 {
		t.Errorf("expected the adapter to be streamed twice (initial + tool follow-up), got %d", adapter.calls)
	}
}

func TestStageIgnoresNonSTTFinalFrames(t *testing.T) {
	adapter := &scriptedAdapter{script: [][]Delta{{{Text: "unused"}}}}
	sess := session.New(context.Background(), "sess-3")
	st := NewStage(adapter, newTestContextManager(t), memory.NoopStore{}, &tool.Dispatcher{}, nil, sess, DefaultConfig())

	out, err := st.Process(context.Background(), frame.NewUserSpeechStarted(1))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out != nil {
		t.Errorf("expected nil output for a non-STTFinal frame, got %v", out)
	}
	if adapter.calls != 0 {
		t.Error("expected the adapter to never be invoked for a non-STTFinal frame")
	}
}
