// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	opensearchapi "github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// OpenSearchStore is the hybrid BM25+vector backend: score = α·cosine +
// (1−α)·BM25.
type OpenSearchStore struct {
	client *opensearch.Client
	index  string
	alpha  float64
	embed  func(ctx context.Context, text string) ([]float32, error)
}

func NewOpenSearchStore(client *opensearch.Client, index string, alpha float64, embed func(context.Context, string) ([]float32, error)) *OpenSearchStore {
	return &OpenSearchStore{client: client, index: index, alpha: alpha, embed: embed}
}

type osDoc struct {
	SessionID string    `json:"session_id"`
	TurnID    uint64    `json:"turn_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Embedding []float32 `json:"embedding,omitempty"`
}

func (o *OpenSearchStore) Store(ctx context.Context, e Entry) error {
	doc := osDoc{SessionID: e.SessionID, TurnID: e.TurnID, Role: e.Role, Text: e.Text, CreatedAt: time.Now()}
	if o.embed != nil {
		vec, err := o.embed(ctx, e.Text)
		if err != nil {
			return fmt.Errorf("memory: embed: %w", err)
		}
		doc.Embedding = vec
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := opensearchapi.IndexRequest{Index: o.index, Body: bytes.NewReader(payload)}
	res, err := req.Do(ctx, o.client)
	if err != nil {
		return fmt.Errorf("memory: opensearch index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("memory: opensearch index: %s", res.String())
	}
	return nil
}

// Recall runs a hybrid query combining a BM25 match on text with a
// script_score cosine rerank against the query embedding, weighted by
// alpha. If embed is nil, this degrades to a pure-BM25 match.
func (o *OpenSearchStore) Recall(ctx context.Context, sessionID, query string, limit int) ([]Entry, error) {
	var vec []float32
	if o.embed != nil {
		v, err := o.embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("memory: embed query: %w", err)
		}
		vec = v
	}

	body := o.buildQuery(sessionID, query, vec, limit)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req := opensearchapi.SearchRequest{Index: []string{o.index}, Body: bytes.NewReader(payload)}
	res, err := req.Do(ctx, o.client)
	if err != nil {
		return nil, fmt.Errorf("memory: opensearch search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("memory: opensearch search: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source osDoc   `json:"_source"`
				Score  float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("memory: decode search response: %w", err)
	}

	out := make([]Entry, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, Entry{
			SessionID: h.Source.SessionID, TurnID: h.Source.TurnID, Role: h.Source.Role,
			Text: h.Source.Text, CreatedAt: h.Source.CreatedAt, Score: h.Score,
		})
	}
	return out, nil
}

func (o *OpenSearchStore) buildQuery(sessionID, query string, vec []float32, limit int) map[string]interface{} {
	bm25 := map[string]interface{}{
		"bool": map[string]interface{}{
			"must":   []map[string]interface{}{{"match": map[string]interface{}{"text": query}}},
			"filter": []map[string]interface{}{{"term": map[string]interface{}{"session_id": sessionID}}},
		},
	}
	if vec == nil {
		return map[string]interface{}{"size": limit, "query": bm25}
	}

	script := fmt.Sprintf(
		"params.alpha * (cosineSimilarity(params.query_vector, 'embedding') + 1.0) / 2.0 + (1 - params.alpha) * _score / (_score + 1.0)",
	)
	return map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"script_score": map[string]interface{}{
				"query": bm25,
				"script": map[string]interface{}{
					"source": strings.TrimSpace(script),
					"params": map[string]interface{}{"alpha": o.alpha, "query_vector": vec},
				},
			},
		},
	}
}
