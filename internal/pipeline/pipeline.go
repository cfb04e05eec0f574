// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package pipeline assembles the stage graph for one session: wiring
// queues between stages, registering observers, and driving the session's
// errgroup to completion.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rapidaai/voicegraph/internal/observer"
	"github.com/rapidaai/voicegraph/internal/queue"
	"github.com/rapidaai/voicegraph/internal/session"
	"github.com/rapidaai/voicegraph/internal/stage"
	"github.com/rapidaai/voicegraph/pkg/logging"
)

// Node names one stage in the graph plus the edges it reads and writes.
type Node struct {
	Stage stage.Stage
	In    *queue.Edge
	Out   []*queue.Edge
}

// Graph is the fully wired set of stages for one session, ready to run.
type Graph struct {
	Session *session.Session
	Bus     *observer.Bus
	Metrics *observer.MetricsStore
	Nodes   []Node

	logger logging.Logger
	budget stage.RetryBudget
}

// Option configures a Graph at assembly time.
type Option func(*Graph)

func WithLogger(l logging.Logger) Option { return func(g *Graph) { g.logger = l } }
func WithRetryBudget(b stage.RetryBudget) Option {
	return func(g *Graph) { g.budget = b }
}

// New builds an empty graph bound to sess, with a fresh observer bus and
// metrics store attached — one store per session.
func New(sess *session.Session, opts ...Option) *Graph {
	g := &Graph{
		Session: sess,
		Bus:     observer.NewBus(),
		Metrics: observer.NewMetricsStore(100, 20),
		budget:  stage.DefaultRetryBudget(),
	}
	g.Bus.Subscribe(g.Metrics)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Add wires st into the graph reading from in and fanning out to out.
func (g *Graph) Add(st stage.Stage, in *queue.Edge, out ...*queue.Edge) {
	g.Nodes = append(g.Nodes, Node{Stage: st, In: in, Out: out})
}

// Run starts every stage's Runner under one supervising Group. It returns
// once every stage exits, or once the first fatal error has cancelled all
// the others; it does not end the session itself.
func (g *Graph) Run(ctx context.Context) error {
	group, gctx := stage.NewGroup(ctx)
	for _, n := range g.Nodes {
		r := &stage.Runner{
			St:     n.Stage,
			In:     n.In,
			Out:    n.Out,
			Bus:    g.Bus,
			Logger: g.logger,
			Budget: g.budget,
		}
		group.Go(r)
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("pipeline: session %s: %w", g.Session.ID, err)
	}
	_ = gctx
	return nil
}
