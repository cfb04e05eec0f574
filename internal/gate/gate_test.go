// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package gate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicegraph/internal/frame"
)

func TestGatePromptAsksForSingleWordVerdict(t *testing.T) {
	p := gatePrompt("turn the volume up")
	require.Contains(t, p, "allow or suppress")
	require.Contains(t, p, "turn the volume up")
}

func TestDefaultConfigIsFailOpen(t *testing.T) {
	require.Equal(t, FailOpen, DefaultConfig().FailMode)
}

func TestBoolToFloat(t *testing.T) {
	require.Equal(t, 1.0, boolToFloat(true))
	require.Equal(t, 0.0, boolToFloat(false))
}

// TestSuppressedFramesEmitsExactlyOneSystemNote covers E2: suppressing a
// turn must produce exactly one gate_suppress metric and one system note,
// never a silent drop.
func TestSuppressedFramesEmitsExactlyOneSystemNote(t *testing.T) {
	final := frame.NewSTTFinal(7, "are you still there", "")
	metric := frame.NewMetric(final.TurnID(), "gate", frame.MetricGateSuppress, 1)

	out := suppressedFrames(final, metric, "suppressed: not directed at the assistant")
	require.Len(t, out, 2)

	gotMetric, ok := out[0].(*frame.Metric)
	require.True(t, ok)
	require.Equal(t, frame.MetricGateSuppress, gotMetric.Kind_)
	require.Equal(t, float64(1), gotMetric.Value)

	note, ok := out[1].(*frame.SystemNote)
	require.True(t, ok)
	require.Equal(t, uint64(7), note.TurnID())
	require.Equal(t, "suppressed: not directed at the assistant", note.Message)
}
