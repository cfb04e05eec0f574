// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package observer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotCache publishes the debounced Snapshot into Redis so multiple
// external observer processes (e.g. a dashboard) can read the same sliding
// window without re-deriving it from the in-process MetricsStore, which
// remains the single writer.
type RedisSnapshotCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisSnapshotCache(client *redis.Client, sessionID string) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		client: client,
		key:    "voicegraph:metrics:" + sessionID,
		ttl:    2 * time.Minute,
	}
}

func (c *RedisSnapshotCache) PublishSnapshot(ctx context.Context, s Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, payload, c.ttl).Err()
}

// Read fetches the last published snapshot for a session, if any.
func (c *RedisSnapshotCache) Read(ctx context.Context) (Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err == redis.Nil {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, false, err
	}
	return s, true, nil
}
