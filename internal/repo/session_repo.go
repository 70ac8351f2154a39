// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for AuthSession,
// the server-side record behind a login cookie.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/chatproxy/internal/domain"
)

// CreateAuthSession inserts a login session for userID valid for ttl.
func CreateAuthSession(ctx context.Context, db *gorm.DB, userID uint, ttl time.Duration) (*domain.AuthSession, error) {
	now := time.Now().UTC()
	s := &domain.AuthSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetAuthSession returns a session that has not expired at now, or ErrNotFound.
func GetAuthSession(ctx context.Context, db *gorm.DB, id string, now time.Time) (*domain.AuthSession, error) {
	var s domain.AuthSession
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	if s.Expired(now) {
		return nil, ErrNotFound
	}
	return &s, nil
}

// DeleteAuthSession removes a session. Deleting a missing session is not an error.
func DeleteAuthSession(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.AuthSession{}).Error
}

// PurgeExpiredSessions deletes every session that expired before now and
// returns how many rows were removed.
func PurgeExpiredSessions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.AuthSession{})
	return res.RowsAffected, res.Error
}
