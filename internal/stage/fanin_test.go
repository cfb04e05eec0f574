// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package stage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicegraph/internal/frame"
	"github.com/rapidaai/voicegraph/internal/queue"
)

func TestFanInReceivesFromEitherEdge(t *testing.T) {
	a := queue.NewControlEdge()
	b := queue.NewControlEdge()
	fin := NewFanIn(a, b)

	ctx := context.Background()
	require.NoError(t, a.Send(ctx, frame.NewAudioInput(1, nil, 16000, 1)))

	got, err := fin.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, frame.KindAudioInput, got.Kind())

	require.NoError(t, b.Send(ctx, frame.NewAssistantTextFinal(2, "hi")))
	got, err = fin.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, frame.KindAssistantTextFinal, got.Kind())
}

func TestFanInDoesNotStarveEitherEdge(t *testing.T) {
	a := queue.NewEdge(queue.Config{Capacity: 50, Policy: queue.Block})
	b := queue.NewEdge(queue.Config{Capacity: 50, Policy: queue.Block})
	fin := NewFanIn(a, b)

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		require.NoError(t, a.Send(ctx, frame.NewAudioInput(1, nil, 16000, 1)))
		require.NoError(t, b.Send(ctx, frame.NewAssistantTextFinal(1, "x")))
	}

	var fromA, fromB int
	for i := 0; i < 40; i++ {
		got, err := fin.Recv(ctx)
		require.NoError(t, err)
		if got.Kind() == frame.KindAudioInput {
			fromA++
		} else {
			fromB++
		}
	}
	require.Equal(t, 20, fromA)
	require.Equal(t, 20, fromB)
}

func TestFanInReturnsContextErrorOnCancel(t *testing.T) {
	a := queue.NewControlEdge()
	fin := NewFanIn(a)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := fin.Recv(ctx)
	require.Error(t, err)
}
