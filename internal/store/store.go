// Package store persists chat history. It is the collaborator the engine's
// persistence hand-off worker writes completed exchanges to; the HTTP layer
// reads it back to build history-aware prompts.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatd/pkg/types"
)

// ChatEntry is the persisted form of one conversation turn.
type ChatEntry struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	ConversationID string `gorm:"size:36;index"`
	Type           string `gorm:"size:16"`
	Content        string `gorm:"type:text"`
	CreatedAt      time.Time
}

// ChatStore is the narrow surface the rest of the daemon depends on.
type ChatStore interface {
	SaveEntry(ctx context.Context, conversationID string, typ types.ChatEntryType, content string) error
	History(ctx context.Context, conversationID string) ([]types.ChatEntry, error)
}

// Store is the gorm-backed ChatStore.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the sqlite database at path and runs migrations.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&ChatEntry{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) SaveEntry(ctx context.Context, conversationID string, typ types.ChatEntryType, content string) error {
	entry := ChatEntry{
		ConversationID: conversationID,
		Type:           string(typ),
		Content:        content,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("store: save %s entry for %s: %w", typ, conversationID, err)
	}
	return nil
}

// History returns the entries of a conversation in insertion order.
func (s *Store) History(ctx context.Context, conversationID string) ([]types.ChatEntry, error) {
	var rows []ChatEntry
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: history for %s: %w", conversationID, err)
	}
	out := make([]types.ChatEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.ChatEntry{
			ConversationID: r.ConversationID,
			Type:           types.ChatEntryType(r.Type),
			Content:        r.Content,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out, nil
}
