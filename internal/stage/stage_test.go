// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package stage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicegraph/internal/frame"
	"github.com/rapidaai/voicegraph/internal/observer"
	"github.com/rapidaai/voicegraph/internal/queue"
)

// flakyStage fails with a transient error on its first N calls, then
// succeeds, modeling an STT provider returning 503 before recovering
// (E5 — provider outage).
type flakyStage struct {
	failures  int
	processed int
}

func (s *flakyStage) Name() string               { return "flaky" }
func (s *flakyStage) Start(context.Context) error { return nil }
func (s *flakyStage) Stop(error) error            { return nil }
func (s *flakyStage) Classify(err error) frame.ErrorKind {
	return frame.ErrTransientNetwork
}

func (s *flakyStage) Process(ctx context.Context, in frame.Frame) ([]frame.Frame, error) {
	s.processed++
	if s.processed <= s.failures {
		return nil, errors.New("provider unavailable")
	}
	return []frame.Frame{frame.NewAssistantTextFinal(in.TurnID(), "ok")}, nil
}

// alwaysFailStage exhausts the retry budget on every frame.
type alwaysFailStage struct{ failErr frame.ErrorKind }

func (s *alwaysFailStage) Name() string               { return "always-fail" }
func (s *alwaysFailStage) Start(context.Context) error { return nil }
func (s *alwaysFailStage) Stop(error) error            { return nil }
func (s *alwaysFailStage) Classify(err error) frame.ErrorKind {
	return s.failErr
}
func (s *alwaysFailStage) Process(ctx context.Context, in frame.Frame) ([]frame.Frame, error) {
	return nil, errors.New("boom")
}

func testRunner(t *testing.T, st Stage, in *queue.Edge, out ...*queue.Edge) *Runner {
	t.Helper()
	return &Runner{
		St:     st,
		In:     in,
		Out:    out,
		Bus:    observer.NewBus(),
		Budget: RetryBudget{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}
}

func TestRunnerRetriesTransientErrorsThenSucceeds(t *testing.T) {
	in := queue.NewControlEdge()
	out := queue.NewControlEdge()
	st := &flakyStage{failures: 2}
	r := testRunner(t, st, in, out)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.NoError(t, in.Send(ctx, frame.NewAudioInput(1, nil, 16000, 1)))

	select {
	case got := <-out.Chan():
		_, ok := got.(*frame.AssistantTextFinal)
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for recovered output")
	}
	require.Equal(t, 3, st.processed)

	cancel()
	<-done
}

func TestRunnerEmitsTransientErrorFrameAfterBudgetExhausted(t *testing.T) {
	in := queue.NewControlEdge()
	out := queue.NewControlEdge()
	st := &alwaysFailStage{failErr: frame.ErrTransientNetwork}
	r := testRunner(t, st, in, out)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.NoError(t, in.Send(ctx, frame.NewAudioInput(1, nil, 16000, 1)))

	select {
	case got := <-out.Chan():
		errFrame, ok := got.(*frame.Error)
		require.True(t, ok)
		require.Equal(t, frame.ErrTransientNetwork, errFrame.Kind_)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error frame")
	}

	// The session stays open: Run is still alive after a transient failure.
	select {
	case err := <-done:
		t.Fatalf("runner exited unexpectedly: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	cancel()
	<-done
}

func TestRunnerReturnsFatalOnInternalInvariant(t *testing.T) {
	in := queue.NewControlEdge()
	out := queue.NewControlEdge()
	st := &alwaysFailStage{failErr: frame.ErrInternalInvariant}
	r := testRunner(t, st, in, out)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.NoError(t, in.Send(ctx, frame.NewAudioInput(1, nil, 16000, 1)))

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("expected runner to return a fatal error")
	}
}

func TestRunnerFansOutToAllOutputEdges(t *testing.T) {
	in := queue.NewControlEdge()
	outA := queue.NewControlEdge()
	outB := queue.NewControlEdge()
	st := &flakyStage{failures: 0}
	r := testRunner(t, st, in, outA, outB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.NoError(t, in.Send(ctx, frame.NewAudioInput(1, nil, 16000, 1)))

	for _, out := range []*queue.Edge{outA, outB} {
		select {
		case <-out.Chan():
		case <-time.After(time.Second):
			t.Fatal("expected both fan-out edges to receive the produced frame")
		}
	}
	cancel()
	<-done
}

func TestGroupCancelsSiblingsOnFatalError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	g, gctx := NewGroup(ctx)

	fatalIn := queue.NewControlEdge()
	fatal := &alwaysFailStage{failErr: frame.ErrInternalInvariant}
	g.Go(testRunner(t, fatal, fatalIn, queue.NewControlEdge()))
	require.NoError(t, fatalIn.Send(gctx, frame.NewAudioInput(1, nil, 16000, 1)))

	survivorIn := queue.NewControlEdge()
	survivor := &flakyStage{failures: 1000}
	g.Go(testRunner(t, survivor, survivorIn, queue.NewControlEdge()))

	err := g.Wait()
	require.Error(t, err)
}
