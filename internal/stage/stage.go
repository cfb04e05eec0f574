// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package stage implements the stage runtime: lifecycle,
// cancellation, fan-out/fan-in, and observer dispatch for the pipeline graph.
package stage

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rapidaai/voicegraph/internal/frame"
	"github.com/rapidaai/voicegraph/internal/observer"
	"github.com/rapidaai/voicegraph/internal/queue"
	"github.com/rapidaai/voicegraph/pkg/logging"
)

// Stage is the unit contract every pipeline stage satisfies: consume, produce, observe.
type Stage interface {
	// Name identifies the stage for logging, metrics, and error reporting.
	Name() string
	// Start allocates resources (e.g. opens a provider connection). Called
	// once per session before Process is ever invoked.
	Start(ctx context.Context) error
	// Process consumes one upstream frame and returns zero or more produced
	// frames. Must respect ctx — never block arbitrarily long.
	Process(ctx context.Context, in frame.Frame) ([]frame.Frame, error)
	// Stop releases resources and flushes pending state. Guaranteed to run
	// on every exit path, including a panic recovered by the runtime.
	Stop(reason error) error
}

// Classifier lets a stage override the default transient/fatal error
// classification. Stages that don't
// implement it are treated as always-fatal on error.
type Classifier interface {
	Classify(err error) frame.ErrorKind
}

// RetryBudget bounds the exponential backoff retries applied to transient
// errors.
type RetryBudget struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryBudget() RetryBudget {
	return RetryBudget{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// Runner drives one Stage: reads from In, calls Process, fans results out to
// Out, retries transient errors, and reports fatal errors + lifecycle events
// to the observer Bus. One Runner per stage per session.
type Runner struct {
	St     Stage
	In     *queue.Edge
	Out    []*queue.Edge // fan-out: same frame ordering preserved per edge independently
	Bus    *observer.Bus
	Logger logging.Logger
	Budget RetryBudget

	firstByteSent bool
}

// Run executes the stage's lifecycle until ctx is cancelled, In is closed, or
// a fatal error occurs. The returned error is nil on graceful shutdown.
func (r *Runner) Run(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("stage %s: panic: %v", r.St.Name(), p)
			r.Bus.PublishLifecycle(observer.LifecycleEvent{Stage: r.St.Name(), Kind: observer.LifecycleError, Detail: err.Error()})
		}
		stopErr := r.St.Stop(err)
		if stopErr != nil && r.Logger != nil {
			r.Logger.Errorw("stage stop failed", "stage", r.St.Name(), "error", stopErr)
		}
		r.Bus.PublishLifecycle(observer.LifecycleEvent{Stage: r.St.Name(), Kind: observer.LifecycleFinished})
	}()

	if err := r.St.Start(ctx); err != nil {
		r.Bus.PublishLifecycle(observer.LifecycleEvent{Stage: r.St.Name(), Kind: observer.LifecycleError, Detail: err.Error()})
		return fmt.Errorf("stage %s: start: %w", r.St.Name(), err)
	}
	r.Bus.PublishLifecycle(observer.LifecycleEvent{Stage: r.St.Name(), Kind: observer.LifecycleStarted})

	for {
		in, recvErr := r.In.Recv(ctx)
		if recvErr != nil {
			return nil // context cancelled or edge closed: graceful shutdown
		}

		outs, procErr := r.processWithRetry(ctx, in)
		if procErr != nil {
			kind := r.classify(procErr)
			r.Bus.PublishLifecycle(observer.LifecycleEvent{
				Stage: r.St.Name(), Kind: observer.LifecycleError, TurnID: in.TurnID(), Detail: procErr.Error(),
			})
			errFrame := frame.NewError(in.TurnID(), r.St.Name(), kind, procErr.Error())
			r.fanOut(ctx, errFrame)
			if kind == frame.ErrInternalInvariant {
				return fmt.Errorf("stage %s: fatal: %w", r.St.Name(), procErr)
			}
			continue
		}

		if len(outs) > 0 && !r.firstByteSent {
			r.firstByteSent = true
			r.Bus.PublishLifecycle(observer.LifecycleEvent{Stage: r.St.Name(), Kind: observer.LifecycleFirstByte, TurnID: in.TurnID()})
		}
		for _, out := range outs {
			r.fanOut(ctx, out)
		}
	}
}

// fanOut broadcasts f to every output edge. Ordering is preserved
// independently per edge; no ordering is promised across sibling edges
// per edge.
func (r *Runner) fanOut(ctx context.Context, f frame.Frame) {
	for _, edge := range r.Out {
		if err := edge.Send(ctx, f); err != nil && r.Logger != nil {
			r.Logger.Debugw("fan-out send cancelled", "stage", r.St.Name(), "error", err)
		}
	}
	if m, ok := f.(*frame.Metric); ok {
		r.Bus.PublishMetric(m)
	}
}

func (r *Runner) classify(err error) frame.ErrorKind {
	if pe, ok := err.(*frame.PipelineError); ok {
		return pe.Kind
	}
	if c, ok := r.St.(Classifier); ok {
		return c.Classify(err)
	}
	return frame.ErrInternalInvariant
}

// processWithRetry retries transient errors with exponential backoff up to
// r.Budget.
func (r *Runner) processWithRetry(ctx context.Context, in frame.Frame) ([]frame.Frame, error) {
	budget := r.Budget
	if budget.MaxAttempts <= 0 {
		budget = DefaultRetryBudget()
	}

	delay := budget.BaseDelay
	var lastErr error
	for attempt := 0; attempt < budget.MaxAttempts; attempt++ {
		outs, err := r.St.Process(ctx, in)
		if err == nil {
			return outs, nil
		}
		lastErr = err
		if r.classify(err) != frame.ErrTransientNetwork {
			return nil, err
		}
		if attempt == budget.MaxAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
		if delay > budget.MaxDelay {
			delay = budget.MaxDelay
		}
	}
	return nil, lastErr
}

// Group supervises a set of Runners for one session: if any fails fatally
// the group cancels every other Runner; no part of the graph keeps running
// after a fatal error.
type Group struct {
	eg  *errgroup.Group
	ctx context.Context
}

func NewGroup(ctx context.Context) (*Group, context.Context) {
	eg, gctx := errgroup.WithContext(ctx)
	return &Group{eg: eg, ctx: gctx}, gctx
}

func (g *Group) Go(r *Runner) {
	g.eg.Go(func() error { return r.Run(g.ctx) })
}

func (g *Group) Wait() error { return g.eg.Wait() }
