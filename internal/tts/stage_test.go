// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package tts

import (
	"context"
	"testing"

	"github.com/rapidaai/voicegraph/internal/frame"
)

type fakeAdapter struct{ calls []string }

func (f *fakeAdapter) Synthesize(ctx context.Context, text string, sampleRate int) ([]byte, error) {
	f.calls = append(f.calls, text)
	return make([]byte, bytesPerChunk+10), nil // spans two chunks
}

func TestStageSynthesizesCompleteSentencesEarly(t *testing.T) {
	adapter := &fakeAdapter{}
	st := NewStage(adapter, DefaultConfig())

	out, err := st.Process(context.Background(), frame.NewAssistantTextDelta(1, "Hello there. How"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(adapter.calls) != 1 || adapter.calls[0] != "Hello there." {
		t.Fatalf("expected the first complete sentence synthesized eagerly, got %v", adapter.calls)
	}

	var sawStarted, sawTTFB bool
	var audioChunks int
	for _, f := range out {
		switch f.(type) {
		case *frame.TTSStarted:
			sawStarted = true
		case *frame.AudioOutput:
			audioChunks++
		case *frame.Metric:
			sawTTFB = true
		}
	}
	if !sawStarted || !sawTTFB || audioChunks != 2 {
		t.Errorf("expected TTSStarted, a ttfb metric, and 2 audio chunks; got started=%v ttfb=%v chunks=%d", sawStarted, sawTTFB, audioChunks)
	}
}

func TestStageFlushesRemainderAndStopsOnFinal(t *testing.T) {
	adapter := &fakeAdapter{}
	st := NewStage(adapter, DefaultConfig())

	if _, err := st.Process(context.Background(), frame.NewAssistantTextDelta(1, "Hello there. How")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := st.Process(context.Background(), frame.NewAssistantTextDelta(1, " are you?")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	out, err := st.Process(context.Background(), frame.NewAssistantTextFinal(1, "Hello there. How are you?"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(adapter.calls) != 2 || adapter.calls[1] != "How are you?" {
		t.Fatalf("expected the remaining sentence synthesized on flush, got %v", adapter.calls)
	}

	var sawStopped bool
	for _, f := range out {
		if _, ok := f.(*frame.TTSStopped); ok {
			sawStopped = true
		}
	}
	if !sawStopped {
		t.Error("expected a TTSStopped frame after the turn flushes")
	}
}

func TestStageResetsOnInterrupt(t *testing.T) {
	adapter := &fakeAdapter{}
	st := NewStage(adapter, DefaultConfig())

	if _, err := st.Process(context.Background(), frame.NewAssistantTextDelta(1, "Partial")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := st.Process(context.Background(), frame.NewInterrupt(1, frame.InterruptBargeIn)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if st.pending.Len() != 0 || st.started {
		t.Error("expected interrupt to clear buffered text and started state")
	}
}
