// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package observer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicegraph/internal/frame"
)

func TestMetricsStoreAbsenceIsNeverZero(t *testing.T) {
	store := NewMetricsStore(100, 20)
	_, ok := store.Turn(1)
	require.False(t, ok, "unknown turn must report absence, not a zero row")

	store.OnMetric(frame.NewMetric(1, "stt", frame.MetricSTTTTFB, 120))
	row, ok := store.Turn(1)
	require.True(t, ok)
	require.True(t, row.HasSTTTTFB)
	require.False(t, row.HasLLMTTFB, "llm metric never arrived, must not be reported")
}

func TestMetricsStoreWindowEviction(t *testing.T) {
	store := NewMetricsStore(2, 2)
	store.OnMetric(frame.NewMetric(1, "stt", frame.MetricSTTTTFB, 10))
	store.OnMetric(frame.NewMetric(2, "stt", frame.MetricSTTTTFB, 20))
	store.OnMetric(frame.NewMetric(3, "stt", frame.MetricSTTTTFB, 30))

	_, ok := store.Turn(1)
	require.False(t, ok, "turn 1 should have been evicted")
	_, ok = store.Turn(3)
	require.True(t, ok)
}

func TestAggregateSkipsAbsentTurns(t *testing.T) {
	store := NewMetricsStore(100, 20)
	store.OnMetric(frame.NewMetric(1, "stt", frame.MetricSTTTTFB, 100))
	store.OnMetric(frame.NewMetric(2, "llm", frame.MetricLLMTTFB, 200))

	agg := store.Aggregate(frame.MetricSTTTTFB)
	require.Equal(t, 1, agg.Count)
	require.Equal(t, 100.0, agg.Last)
}

func TestGateSuppressFlag(t *testing.T) {
	store := NewMetricsStore(100, 20)
	store.OnMetric(frame.NewMetric(5, "gate", frame.MetricGateSuppress, 0))
	row, ok := store.Turn(5)
	require.True(t, ok)
	require.True(t, row.GateSuppressed)
}
