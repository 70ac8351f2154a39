// Package services – HistoryService
//
// HistoryService is the conversation store: it appends chat messages and reads
// or deletes them per (user, session). Every read and delete is scoped to the
// requesting user. Writes run in a transaction so a failed statement leaves
// nothing behind.
package services

import (
	"context"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/chatproxy/internal/domain"
	"github.com/tbourn/chatproxy/internal/repo"
)

// HistoryService reads and writes conversation history.
type HistoryService struct {
	DB *gorm.DB
}

// NewHistoryService constructs a HistoryService.
func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{DB: db}
}

// ValidSessionID reports whether id is an acceptable conversation key.
func ValidSessionID(id string) bool {
	return id != "" && utf8.RuneCountInString(id) <= domain.MaxSessionIDLen
}

func startHistorySpan(ctx context.Context, op string, userID uint, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer("services/HistoryService").Start(ctx, op,
		trace.WithAttributes(
			attribute.Int64("user.id", int64(userID)),
			attribute.String("session.id", sessionID),
		),
	)
}

// AppendMessage stores one message. The timestamp is assigned by the store.
func (s *HistoryService) AppendMessage(ctx context.Context, userID uint, sessionID string, role domain.Role, content string) (*domain.ChatMessage, error) {
	ctx, span := startHistorySpan(ctx, "AppendMessage", userID, sessionID)
	defer span.End()

	if !ValidSessionID(sessionID) {
		return nil, ErrInvalidSession
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	var out *domain.ChatMessage
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(ctx, tx, userID, sessionID, role, content)
		out = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListHistory returns one conversation in stored order.
func (s *HistoryService) ListHistory(ctx context.Context, userID uint, sessionID string) ([]domain.ChatMessage, error) {
	ctx, span := startHistorySpan(ctx, "ListHistory", userID, sessionID)
	defer span.End()

	if !ValidSessionID(sessionID) {
		return nil, ErrInvalidSession
	}
	return repo.ListSessionMessages(ctx, s.DB, userID, sessionID)
}

// ListAllHistory returns every message of the user across sessions.
func (s *HistoryService) ListAllHistory(ctx context.Context, userID uint) ([]domain.ChatMessage, error) {
	ctx, span := startHistorySpan(ctx, "ListAllHistory", userID, "")
	defer span.End()
	return repo.ListUserMessages(ctx, s.DB, userID)
}

// DeleteSession removes the user's messages of one conversation and returns
// how many were deleted. Other users' rows with the same key are untouched.
func (s *HistoryService) DeleteSession(ctx context.Context, userID uint, sessionID string) (int64, error) {
	ctx, span := startHistorySpan(ctx, "DeleteSession", userID, sessionID)
	defer span.End()

	if !ValidSessionID(sessionID) {
		return 0, ErrInvalidSession
	}
	var n int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = repo.DeleteSessionMessages(ctx, tx, userID, sessionID)
		return err
	})
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("deleted", n))
	return n, nil
}

// ClaimSession gives userID ownership of the conversation's ownerless
// messages. Messages owned by anyone are never reassigned.
func (s *HistoryService) ClaimSession(ctx context.Context, sessionID string, userID uint) (int64, error) {
	ctx, span := startHistorySpan(ctx, "ClaimSession", userID, sessionID)
	defer span.End()

	if !ValidSessionID(sessionID) {
		return 0, ErrInvalidSession
	}
	var n int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = repo.ClaimSessionMessages(ctx, tx, sessionID, userID)
		return err
	})
	return n, err
}

// Stats returns the message count and newest timestamp for ETag generation.
// An empty sessionID covers all of the user's history.
func (s *HistoryService) Stats(ctx context.Context, userID uint, sessionID string) (int64, *time.Time, error) {
	return repo.HistoryStats(ctx, s.DB, userID, sessionID)
}
