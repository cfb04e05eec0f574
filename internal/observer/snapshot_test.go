// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package observer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicegraph/internal/frame"
)

type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (p *recordingPublisher) PublishSnapshot(ctx context.Context, s Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, s)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

func TestSnapshotterDebouncesBurstsOfChanges(t *testing.T) {
	store := NewMetricsStore(100, 20)
	pub := &recordingPublisher{}
	NewSnapshotter(store, pub, 30*time.Millisecond)

	for i := 0; i < 10; i++ {
		store.OnMetric(frame.NewMetric(uint64(i), "stt", frame.MetricSTTTTFB, float64(i)))
	}

	require.Eventually(t, func() bool { return pub.count() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, pub.count(), "a burst of changes within one interval should publish exactly once")
}

func TestSnapshotterPublishesAgainAfterNextInterval(t *testing.T) {
	store := NewMetricsStore(100, 20)
	pub := &recordingPublisher{}
	NewSnapshotter(store, pub, 20*time.Millisecond)

	store.OnMetric(frame.NewMetric(1, "stt", frame.MetricSTTTTFB, 1))
	require.Eventually(t, func() bool { return pub.count() >= 1 }, time.Second, 5*time.Millisecond)

	store.OnMetric(frame.NewMetric(2, "stt", frame.MetricSTTTTFB, 2))
	require.Eventually(t, func() bool { return pub.count() >= 2 }, time.Second, 5*time.Millisecond)
}
