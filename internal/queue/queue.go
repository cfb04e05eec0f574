// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package queue implements the bounded, backpressured channels that connect
// adjacent pipeline stages. Every edge carries a cancellation
// signal derived from the session scope.
package queue

import (
	"context"

	"github.com/rapidaai/voicegraph/internal/frame"
)

// Policy selects what happens when a queue is full.
type Policy int

const (
	// Block makes the producer wait for room — used for the audio path so
	// latency-sensitive frames are never silently dropped.
	Block Policy = iota
	// DropOldest discards the oldest queued frame to make room for the new
	// one, emitting a Metric{kind=drop} via the supplied onDrop hook.
	DropOldest
)

// Edge is one directed, bounded channel between two stages.
type Edge struct {
	ch     chan frame.Frame
	policy Policy
	onDrop func(frame.Frame)
}

// Config controls an Edge's capacity and overflow policy.
type Config struct {
	Capacity int
	Policy   Policy
	// OnDrop is invoked (non-blocking, synchronously) whenever a frame is
	// dropped under DropOldest. May be nil.
	OnDrop func(frame.Frame)
}

// NewEdge creates a bounded queue. Capacity must be >= 1.
func NewEdge(cfg Config) *Edge {
	cap := cfg.Capacity
	if cap < 1 {
		cap = 1
	}
	return &Edge{ch: make(chan frame.Frame, cap), policy: cfg.Policy, onDrop: cfg.OnDrop}
}

// Send enqueues f, honoring the edge's policy on overflow. Returns ctx.Err()
// if ctx is cancelled before the frame is accepted (Block policy only).
func (e *Edge) Send(ctx context.Context, f frame.Frame) error {
	switch e.policy {
	case DropOldest:
		for {
			select {
			case e.ch <- f:
				return nil
			default:
			}
			select {
			case old := <-e.ch:
				if e.onDrop != nil {
					e.onDrop(old)
				}
			default:
				// Someone else drained concurrently; retry the send.
			}
		}
	default: // Block
		select {
		case e.ch <- f:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Recv dequeues the next frame, or returns ctx.Err() if ctx is cancelled first.
func (e *Edge) Recv(ctx context.Context) (frame.Frame, error) {
	select {
	case f, ok := <-e.ch:
		if !ok {
			return nil, context.Canceled
		}
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Chan exposes the raw channel for use in select statements (fan-in).
func (e *Edge) Chan() <-chan frame.Frame { return e.ch }

// Close closes the underlying channel. Only the producer may call this.
func (e *Edge) Close() { close(e.ch) }

// Len reports the number of frames currently queued (diagnostics only).
func (e *Edge) Len() int { return len(e.ch) }

// Audio and control edge sizing: ~200ms of audio at 20ms
// chunks, single-frame capacity for control edges.
const (
	AudioChunkMs     = 20
	AudioEdgeFrames  = 200 / AudioChunkMs // 10 chunks ~= 200ms
	ControlEdgeDepth = 1
)

// NewAudioEdge builds the standard blocking audio-path edge.
func NewAudioEdge() *Edge {
	return NewEdge(Config{Capacity: AudioEdgeFrames, Policy: Block})
}

// NewControlEdge builds a single-slot blocking control edge (signalling,
// interrupts — frames that must never be dropped or reordered away).
func NewControlEdge() *Edge {
	return NewEdge(Config{Capacity: ControlEdgeDepth, Policy: Block})
}

// NewLossyEdge builds a drop-oldest edge for interim transcripts and metrics,
// under sustained backpressure.
func NewLossyEdge(capacity int, onDrop func(frame.Frame)) *Edge {
	return NewEdge(Config{Capacity: capacity, Policy: DropOldest, OnDrop: onDrop})
}
