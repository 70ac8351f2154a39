// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (weak ETags) on history reads.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/chatproxy/internal/domain"
)

// HistoryStats returns the number of messages owned by userID and the newest
// message timestamp. An empty sessionID covers all of the user's sessions.
// When there are no rows, count is 0 and latest is nil.
func HistoryStats(ctx context.Context, db *gorm.DB, userID uint, sessionID string) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.ChatMessage{}).Where("user_id = ?", userID)
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest timestamp (avoid MAX() -> TEXT in SQLite)
	var row struct {
		Timestamp time.Time
	}
	if err = q.Select("timestamp").Order("timestamp DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.Timestamp, nil
}
