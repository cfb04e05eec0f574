// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package memory

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockedStore(t *testing.T) (*RelationalStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"exists"}))

	dialector := postgres.New(postgres.Config{Conn: sqlDB, WithoutReturning: true})
	gdb, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	return &RelationalStore{db: gdb}, mock
}

func TestRelationalStoreRecallFiltersBySession(t *testing.T) {
	store, mock := newMockedStore(t)
	rows := sqlmock.NewRows([]string{"id", "session_id", "turn_id", "role", "text", "created_at"}).
		AddRow(1, "sess-1", 3, "user", "turn the lights on", nil)
	mock.ExpectQuery(`SELECT \* FROM "memory_entries"`).WillReturnRows(rows)

	entries, err := store.Recall(context.Background(), "sess-1", "lights", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "sess-1", entries[0].SessionID)
}
