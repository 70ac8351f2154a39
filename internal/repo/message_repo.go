// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for ChatMessage.
//
// Timestamps are assigned here, at insert, never by callers, and never run
// backwards within a conversation even if the wall clock does. History reads
// are ordered (timestamp ASC, id ASC) so rows written within the same clock
// tick keep their insertion order.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/chatproxy/internal/domain"
)

// historyOrder is the deterministic conversation order.
const historyOrder = "timestamp ASC, id ASC"

// CreateMessage inserts a new message row owned by userID in sessionID. The
// timestamp is the current UTC time, clamped to the newest timestamp already
// stored for the conversation.
func CreateMessage(ctx context.Context, db *gorm.DB, userID uint, sessionID string, role domain.Role, content string) (*domain.ChatMessage, error) {
	uid := userID
	m := &domain.ChatMessage{
		UserID:    &uid,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last struct {
			Timestamp time.Time
		}
		if err := tx.Model(&domain.ChatMessage{}).
			Where("user_id = ? AND session_id = ?", userID, sessionID).
			Select("timestamp").Order("timestamp DESC").Limit(1).
			Scan(&last).Error; err != nil {
			return err
		}
		m.Timestamp = time.Now().UTC()
		if m.Timestamp.Before(last.Timestamp) {
			m.Timestamp = last.Timestamp.UTC()
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListSessionMessages returns the messages of one conversation owned by userID.
func ListSessionMessages(ctx context.Context, db *gorm.DB, userID uint, sessionID string) ([]domain.ChatMessage, error) {
	out := []domain.ChatMessage{}
	err := db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order(historyOrder).
		Find(&out).Error
	return out, err
}

// ListUserMessages returns every message owned by userID across all sessions.
func ListUserMessages(ctx context.Context, db *gorm.DB, userID uint) ([]domain.ChatMessage, error) {
	out := []domain.ChatMessage{}
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(historyOrder).
		Find(&out).Error
	return out, err
}

// DeleteSessionMessages removes the messages of sessionID owned by userID and
// returns how many rows were deleted.
func DeleteSessionMessages(ctx context.Context, db *gorm.DB, userID uint, sessionID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Delete(&domain.ChatMessage{})
	return res.RowsAffected, res.Error
}

// ClaimSessionMessages assigns userID to the ownerless messages of sessionID
// and returns how many rows changed. Rows owned by anyone are left untouched.
func ClaimSessionMessages(ctx context.Context, db *gorm.DB, sessionID string, userID uint) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("session_id = ? AND user_id IS NULL", sessionID).
		Update("user_id", userID)
	return res.RowsAffected, res.Error
}
