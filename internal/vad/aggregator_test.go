// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package vad

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicegraph/internal/frame"
	"github.com/rapidaai/voicegraph/internal/queue"
)

func TestAggregatorSettlesAfterStabilise(t *testing.T) {
	a := NewAggregator(AggregatorConfig{StabiliseMs: 20 * time.Millisecond, HardDeadlineMs: time.Second})
	in := queue.NewControlEdge()
	out := queue.NewControlEdge()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx, in, out)

	require.NoError(t, in.Send(ctx, frame.NewUserSpeechStopped(1)))
	require.NoError(t, in.Send(ctx, frame.NewSTTInterim(1, "hello there", "")))

	select {
	case f := <-out.Chan():
		final, ok := f.(*frame.STTFinal)
		require.True(t, ok)
		require.Equal(t, "hello there", final.Text)
	case <-time.After(time.Second):
		t.Fatal("aggregator did not settle")
	}
}

func TestAggregatorEmitsBargeInDuringTTS(t *testing.T) {
	a := NewAggregator(DefaultAggregatorConfig())
	outs, err := a.Process(context.Background(), frame.NewTTSStarted(1))
	require.NoError(t, err)
	require.Empty(t, outs)

	outs, err = a.Process(context.Background(), frame.NewUserSpeechStarted(1))
	require.NoError(t, err)
	require.Len(t, outs, 1)
	interrupt, ok := outs[0].(*frame.Interrupt)
	require.True(t, ok)
	require.Equal(t, frame.InterruptBargeIn, interrupt.Reason)
}
