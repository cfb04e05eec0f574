// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package memory

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// record is the GORM model backing RelationalStore, generalized from the
// teacher's call_contexts table (fixed tenant columns dropped — this
// store is keyed on session, not on a multi-tenant call).
type record struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"column:session_id;type:varchar(64);not null;index"`
	TurnID    uint64 `gorm:"column:turn_id;not null"`
	Role      string `gorm:"column:role;type:varchar(20);not null"`
	Text      string `gorm:"column:text;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (record) TableName() string { return "memory_entries" }

// RelationalStore is a GORM-backed Store for deployments without a search
// cluster: keyword LIKE plus recency ordering.
type RelationalStore struct {
	db *gorm.DB
}

func NewRelationalStore(db *gorm.DB) (*RelationalStore, error) {
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("memory: migrate: %w", err)
	}
	return &RelationalStore{db: db}, nil
}

func (r *RelationalStore) Store(ctx context.Context, e Entry) error {
	row := record{SessionID: e.SessionID, TurnID: e.TurnID, Role: e.Role, Text: e.Text, CreatedAt: time.Now()}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *RelationalStore) Recall(ctx context.Context, sessionID, query string, limit int) ([]Entry, error) {
	var rows []record
	tx := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID)
	if query != "" {
		tx = tx.Where("text LIKE ?", "%"+query+"%")
	}
	if err := tx.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("memory: recall: %w", err)
	}
	out := make([]Entry, len(rows))
	for i, row := range rows {
		out[i] = Entry{SessionID: row.SessionID, TurnID: row.TurnID, Role: row.Role, Text: row.Text, CreatedAt: row.CreatedAt}
	}
	return out, nil
}
