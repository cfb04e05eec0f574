// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package observer

import (
	"context"
	"sync"
	"time"

	"github.com/rapidaai/voicegraph/internal/frame"
)

// Snapshot is what gets published to the data channel: it is republished
// on change, at most once per debounce interval.
type Snapshot struct {
	Table     []TurnMetrics `json:"table"`
	STT       Aggregate     `json:"stt"`
	Memory    Aggregate     `json:"memory"`
	LLM       Aggregate     `json:"llm"`
	TTS       Aggregate     `json:"tts"`
	Total     Aggregate     `json:"total"`
	CreatedAt time.Time     `json:"created_at"`
}

// SnapshotPublisher is the sink a Snapshotter hands a debounced Snapshot to —
// typically the transport's data channel writer.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, s Snapshot) error
}

// Snapshotter coalesces store-change notifications into at most one publish
// per interval.
type Snapshotter struct {
	store    *MetricsStore
	pub      SnapshotPublisher
	interval time.Duration

	mu      sync.Mutex
	pending bool
	timer   *time.Timer
}

func NewSnapshotter(store *MetricsStore, pub SnapshotPublisher, interval time.Duration) *Snapshotter {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	s := &Snapshotter{store: store, pub: pub, interval: interval}
	store.OnChange(s.onChange)
	return s
}

func (s *Snapshotter) onChange() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return
	}
	s.pending = true
	s.timer = time.AfterFunc(s.interval, s.flush)
}

func (s *Snapshotter) flush() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()

	snap := Snapshot{
		Table:     s.store.Table(),
		STT:       s.store.Aggregate(frame.MetricSTTTTFB),
		Memory:    s.store.Aggregate(frame.MetricMemoryTTFB),
		LLM:       s.store.Aggregate(frame.MetricLLMTTFB),
		TTS:       s.store.Aggregate(frame.MetricTTSTTFB),
		Total:     s.store.Aggregate(frame.MetricTotal),
		CreatedAt: time.Now(),
	}
	_ = s.pub.PublishSnapshot(context.Background(), snap)
}

// multiPublisher fans a single snapshot out to every wrapped publisher,
// so a session can feed its live peer and an optional external cache from
// one Snapshotter without contending for MetricsStore.OnChange's single
// callback slot.
type multiPublisher struct {
	pubs []SnapshotPublisher
}

// NewMultiPublisher combines publishers into one SnapshotPublisher. Nil
// publishers are skipped. PublishSnapshot calls every publisher even if an
// earlier one fails, and returns the first error encountered, if any.
func NewMultiPublisher(pubs ...SnapshotPublisher) SnapshotPublisher {
	nonNil := make([]SnapshotPublisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			nonNil = append(nonNil, p)
		}
	}
	return &multiPublisher{pubs: nonNil}
}

func (m *multiPublisher) PublishSnapshot(ctx context.Context, s Snapshot) error {
	var firstErr error
	for _, p := range m.pubs {
		if err := p.PublishSnapshot(ctx, s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
