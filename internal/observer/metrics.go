// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package observer

import (
	"sort"
	"sync"
	"time"

	"github.com/rapidaai/voicegraph/internal/frame"
)

// TurnMetrics is the per-turn first-byte/duration table the store keeps:
// first-byte timestamps of STT, memory-recall, LLM, TTS, plus durations. A
// zero value for a field that was never measured is NEVER reported —
// callers must check the Has* flags.
type TurnMetrics struct {
	TurnID uint64

	HasSTTTTFB bool
	STTTTFBMs  float64

	HasMemoryTTFB bool
	MemoryTTFBMs  float64

	HasLLMTTFB bool
	LLMTTFBMs  float64

	HasTTSTTFB bool
	TTSTTFBMs  float64

	HasTotal bool
	TotalMs  float64

	GateSuppressed bool
}

// Aggregate summarizes one metric kind over the sliding window.
type Aggregate struct {
	Last, Avg, Min, Max float64
	Count               int
}

// MetricsStore is read-only externally; the only writer is the observer
// subscribed to the pipeline's Metric frames: single writer per metric
// kind, many readers.
type MetricsStore struct {
	mu          sync.RWMutex
	windowTurns int
	tableTurns  int
	order       []uint64 // turn ids in arrival order, bounded to windowTurns
	byTurn      map[uint64]*TurnMetrics

	onChange func()
}

// NewMetricsStore builds a store keeping the last windowTurns turns for
// aggregation and the last tableTurns for the per-turn table (defaults: 100 / 20).
func NewMetricsStore(windowTurns, tableTurns int) *MetricsStore {
	if windowTurns <= 0 {
		windowTurns = 100
	}
	if tableTurns <= 0 {
		tableTurns = 20
	}
	return &MetricsStore{
		windowTurns: windowTurns,
		tableTurns:  tableTurns,
		byTurn:      make(map[uint64]*TurnMetrics),
	}
}

// OnChange registers a callback fired (out-of-band) after an ingest. The
// publishing stage (see Snapshotter) debounces this to at most once per
// one debounce interval.
func (s *MetricsStore) OnChange(fn func()) { s.onChange = fn }

// OnLifecycle implements Observer; the store does not track lifecycle.
func (s *MetricsStore) OnLifecycle(LifecycleEvent) {}

// OnMetric implements Observer — ingests a Metric frame into the per-turn row.
func (s *MetricsStore) OnMetric(m *frame.Metric) {
	s.mu.Lock()
	row, ok := s.byTurn[m.TurnID()]
	if !ok {
		row = &TurnMetrics{TurnID: m.TurnID()}
		s.byTurn[m.TurnID()] = row
		s.order = append(s.order, m.TurnID())
		s.evictLocked()
	}

	switch m.Kind_ {
	case frame.MetricSTTTTFB:
		row.HasSTTTTFB, row.STTTTFBMs = true, m.Value
	case frame.MetricMemoryTTFB:
		row.HasMemoryTTFB, row.MemoryTTFBMs = true, m.Value
	case frame.MetricLLMTTFB:
		row.HasLLMTTFB, row.LLMTTFBMs = true, m.Value
	case frame.MetricTTSTTFB:
		row.HasTTSTTFB, row.TTSTTFBMs = true, m.Value
	case frame.MetricTotal:
		row.HasTotal, row.TotalMs = true, m.Value
	case frame.MetricGateSuppress:
		row.GateSuppressed = true
	}
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange()
	}
}

// evictLocked drops the oldest turn once the window is exceeded. Caller
// holds s.mu.
func (s *MetricsStore) evictLocked() {
	for len(s.order) > s.windowTurns {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.byTurn, oldest)
	}
}

// Turn returns the metrics row for turnID, or false if absent (never a
// fabricated zero row).
func (s *MetricsStore) Turn(turnID uint64) (TurnMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.byTurn[turnID]
	if !ok {
		return TurnMetrics{}, false
	}
	return *row, true
}

// Table returns up to tableTurns most recent rows, newest last.
func (s *MetricsStore) Table() []TurnMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.order)
	start := 0
	if n > s.tableTurns {
		start = n - s.tableTurns
	}
	out := make([]TurnMetrics, 0, n-start)
	for _, id := range s.order[start:] {
		out = append(out, *s.byTurn[id])
	}
	return out
}

// Aggregate computes last/avg/min/max over the sliding window for one
// metric kind. Turns missing that metric are skipped (never synthesized).
func (s *MetricsStore) Aggregate(kind frame.MetricKind) Aggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var values []float64
	var lastTurn uint64
	for _, id := range s.order {
		row := s.byTurn[id]
		v, ok := valueFor(row, kind)
		if !ok {
			continue
		}
		values = append(values, v)
		lastTurn = id
	}
	_ = lastTurn
	if len(values) == 0 {
		return Aggregate{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return Aggregate{
		Last:  values[len(values)-1],
		Avg:   sum / float64(len(values)),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(values),
	}
}

func valueFor(row *TurnMetrics, kind frame.MetricKind) (float64, bool) {
	switch kind {
	case frame.MetricSTTTTFB:
		return row.STTTTFBMs, row.HasSTTTTFB
	case frame.MetricMemoryTTFB:
		return row.MemoryTTFBMs, row.HasMemoryTTFB
	case frame.MetricLLMTTFB:
		return row.LLMTTFBMs, row.HasLLMTTFB
	case frame.MetricTTSTTFB:
		return row.TTSTTFBMs, row.HasTTSTTFB
	case frame.MetricTotal:
		return row.TotalMs, row.HasTotal
	default:
		return 0, false
	}
}

// Since is a convenience for computing a TTFB Metric value from a stage's
// trigger instant to now.
func Since(trigger time.Time) float64 {
	return float64(time.Since(trigger).Microseconds()) / 1000.0
}
