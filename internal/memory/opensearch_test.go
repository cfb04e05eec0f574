// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildQueryDegradesToBM25WithoutEmbedding(t *testing.T) {
	s := &OpenSearchStore{index: "memories", alpha: 0.5}
	q := s.buildQuery("sess-1", "turn the lights on", nil, 5)
	require.Equal(t, 5, q["size"])
	_, hasScript := q["query"].(map[string]interface{})["script_score"]
	require.False(t, hasScript)
}

func TestBuildQueryUsesHybridScriptScoreWithEmbedding(t *testing.T) {
	s := &OpenSearchStore{index: "memories", alpha: 0.7}
	q := s.buildQuery("sess-1", "turn the lights on", []float32{0.1, 0.2}, 5)
	query := q["query"].(map[string]interface{})
	scriptScore, ok := query["script_score"].(map[string]interface{})
	require.True(t, ok)
	script := scriptScore["script"].(map[string]interface{})
	params := script["params"].(map[string]interface{})
	require.Equal(t, 0.7, params["alpha"])
}
