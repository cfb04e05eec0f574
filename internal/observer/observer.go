// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package observer implements the passive observer bus and metrics store of
// Observers never send frames back into the graph — they only receive
// lifecycle events and
// Metric frames and publish to logs, the data channel, or an external store.
package observer

import (
	"sync"

	"github.com/rapidaai/voicegraph/internal/frame"
)

// LifecycleEvent is published by stage runtime on start/first-byte/finish/error.
type LifecycleEvent struct {
	Stage string
	Kind  LifecycleKind
	TurnID uint64
	Detail string
}

type LifecycleKind string

const (
	LifecycleStarted   LifecycleKind = "started"
	LifecycleFirstByte LifecycleKind = "first-byte"
	LifecycleFinished  LifecycleKind = "finished"
	LifecycleError     LifecycleKind = "error"
)

// Observer receives lifecycle events and metric frames. Implementations must
// not block the publisher for long; do slow work asynchronously.
type Observer interface {
	OnLifecycle(ev LifecycleEvent)
	OnMetric(m *frame.Metric)
}

// Bus fans lifecycle events and metrics out to all registered observers.
// Single-writer per event type is not required here: publish is safe for
// concurrent callers, subscribe/unsubscribe is safe for concurrent callers.
type Bus struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

func (b *Bus) PublishLifecycle(ev LifecycleEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.observers {
		o.OnLifecycle(ev)
	}
}

func (b *Bus) PublishMetric(m *frame.Metric) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.observers {
		o.OnMetric(m)
	}
}
