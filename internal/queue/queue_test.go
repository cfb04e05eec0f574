// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicegraph/internal/frame"
)

func TestBlockPolicyBlocksOnFull(t *testing.T) {
	e := NewEdge(Config{Capacity: 1, Policy: Block})
	ctx := context.Background()
	require.NoError(t, e.Send(ctx, frame.NewEnd(0)))

	ctx2, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.Send(ctx2, frame.NewEnd(0))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDropOldestEvictsUnderPressure(t *testing.T) {
	var dropped []frame.Frame
	e := NewEdge(Config{Capacity: 1, Policy: DropOldest, OnDrop: func(f frame.Frame) { dropped = append(dropped, f) }})
	ctx := context.Background()

	first := frame.NewSTTInterim(1, "first", "")
	second := frame.NewSTTInterim(1, "second", "")
	require.NoError(t, e.Send(ctx, first))
	require.NoError(t, e.Send(ctx, second))

	require.Len(t, dropped, 1)
	require.Same(t, first, dropped[0])

	got, err := e.Recv(ctx)
	require.NoError(t, err)
	require.Same(t, second, got)
}

func TestRecvRespectsContextCancellation(t *testing.T) {
	e := NewEdge(Config{Capacity: 1, Policy: Block})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Recv(ctx)
	require.Error(t, err)
}

func TestFIFOOrdering(t *testing.T) {
	e := NewAudioEdge()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, e.Send(ctx, frame.NewAudioInput(uint64(i), nil, 16000, 1)))
	}
	for i := 0; i < 5; i++ {
		f, err := e.Recv(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(i), f.TurnID())
	}
}
