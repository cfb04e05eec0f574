// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package observer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	redismock "github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisSnapshotCachePublishSetsKeyWithTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisSnapshotCache(client, "sess-1")

	snap := Snapshot{CreatedAt: time.Unix(0, 0)}
	payload, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectSet("voicegraph:metrics:sess-1", payload, 2*time.Minute).SetVal("OK")

	require.NoError(t, cache.PublishSnapshot(context.Background(), snap))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSnapshotCacheReadMissingKeyReturnsFalse(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisSnapshotCache(client, "sess-2")

	mock.ExpectGet("voicegraph:metrics:sess-2").RedisNil()

	_, ok, err := cache.Read(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSnapshotCacheReadFoundDecodesSnapshot(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisSnapshotCache(client, "sess-3")

	snap := Snapshot{CreatedAt: time.Unix(42, 0)}
	payload, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectGet("voicegraph:metrics:sess-3").SetVal(string(payload))

	got, ok, err := cache.Read(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.CreatedAt.Equal(snap.CreatedAt))
}
