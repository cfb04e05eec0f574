// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameKinds(t *testing.T) {
	cases := []struct {
		f    Frame
		kind Kind
	}{
		{NewAudioInput(1, []byte{1, 2}, 16000, 1), KindAudioInput},
		{NewAudioOutput(1, []byte{1, 2}, 48000, 1), KindAudioOutput},
		{NewUserSpeechStarted(1), KindUserSpeechStarted},
		{NewUserSpeechStopped(1), KindUserSpeechStopped},
		{NewSTTInterim(1, "hi", ""), KindSTTInterim},
		{NewSTTFinal(1, "hi", ""), KindSTTFinal},
		{NewAssistantTextDelta(1, "hi"), KindAssistantTextDelta},
		{NewAssistantTextFinal(1, "hi"), KindAssistantTextFinal},
		{NewTTSStarted(1), KindTTSStarted},
		{NewTTSStopped(1), KindTTSStopped},
		{NewToolCall(1, "t", "c1", nil), KindToolCall},
		{NewToolResult(1, "c1", "ok"), KindToolResult},
		{NewInterrupt(1, InterruptBargeIn), KindInterrupt},
		{NewMetric(1, "stt", MetricSTTTTFB, 12), KindMetric},
		{NewError(1, "stt", ErrTransientNetwork, "boom"), KindError},
		{NewEnd(1), KindEnd},
	}
	for _, c := range cases {
		require.Equal(t, c.kind, c.f.Kind())
		require.Equal(t, uint64(1), c.f.TurnID())
		require.False(t, c.f.At().IsZero())
	}
}

func TestToolResultMutualExclusion(t *testing.T) {
	ok := NewToolResult(1, "c1", "42")
	require.Equal(t, "42", ok.Value)
	require.Empty(t, ok.Err)

	failed := NewToolResultError(1, "c1", "timeout")
	require.Empty(t, failed.Value)
	require.Equal(t, "timeout", failed.Err)
}

func TestPipelineErrorClassification(t *testing.T) {
	transient := NewPipelineError("stt", ErrTransientNetwork, nil)
	require.True(t, transient.Transient())
	require.False(t, transient.Fatal())

	fatal := NewPipelineError("core", ErrInternalInvariant, nil)
	require.True(t, fatal.Fatal())
	require.False(t, fatal.Transient())
}
