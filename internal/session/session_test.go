// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextTurnMonotonic(t *testing.T) {
	s := New(context.Background(), "sess-1")
	require.Equal(t, uint64(0), s.CurrentTurn())
	require.Equal(t, uint64(1), s.NextTurn())
	require.Equal(t, uint64(2), s.NextTurn())
	require.Equal(t, uint64(2), s.CurrentTurn())
}

func TestEndCancelsContext(t *testing.T) {
	s := New(context.Background(), "sess-2")
	cause := errors.New("client disconnect")
	s.End(cause)
	<-s.Context().Done()
	require.ErrorIs(t, context.Cause(s.Context()), cause)
}

func TestHistorySnapshotIsCopy(t *testing.T) {
	s := New(context.Background(), "sess-3")
	s.AppendHistory(Message{Role: RoleUser, Content: "hi", TurnID: 1})
	h := s.History()
	h[0].Content = "mutated"
	require.Equal(t, "hi", s.History()[0].Content)
}
