package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/chatproxy/internal/domain"
)

func seedAccount(t *testing.T, s *AuthService, email string) *domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), email, "pw", "")
	if err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	return u
}

func TestAppendThenList_NonDecreasingAndIncludesNew(t *testing.T) {
	db := newSvcDB(t)
	h := NewHistoryService(db)
	u := seedAccount(t, newAuth(db), "a@x.com")
	ctx := context.Background()

	var last *domain.ChatMessage
	for i, role := range []domain.Role{domain.RoleHuman, domain.RoleAI, domain.RoleHuman, domain.RoleAI} {
		m, err := h.AppendMessage(ctx, u.ID, "s1", role, strings.Repeat("x", i+1))
		if err != nil {
			t.Fatalf("AppendMessage %d: %v", i, err)
		}
		last = m

		got, err := h.ListHistory(ctx, u.ID, "s1")
		if err != nil {
			t.Fatalf("ListHistory: %v", err)
		}
		if len(got) != i+1 || got[len(got)-1].ID != last.ID {
			t.Fatalf("history after %d appends: %+v", i+1, got)
		}
		for j := 1; j < len(got); j++ {
			if got[j].Timestamp.Before(got[j-1].Timestamp) {
				t.Fatalf("timestamps decrease at %d", j)
			}
		}
	}
}

func TestAppendMessage_Validation(t *testing.T) {
	h := NewHistoryService(newSvcDB(t))
	ctx := context.Background()

	if _, err := h.AppendMessage(ctx, 1, "", domain.RoleHuman, "x"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("empty session: %v", err)
	}
	if _, err := h.AppendMessage(ctx, 1, strings.Repeat("s", domain.MaxSessionIDLen+1), domain.RoleHuman, "x"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("long session: %v", err)
	}
	if _, err := h.AppendMessage(ctx, 1, "s1", "assistant", "x"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("bad role: %v", err)
	}
	if _, err := h.ListHistory(ctx, 1, ""); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("ListHistory empty session: %v", err)
	}
}

func TestListAllHistory_AcrossSessions(t *testing.T) {
	db := newSvcDB(t)
	h := NewHistoryService(db)
	auth := newAuth(db)
	u := seedAccount(t, auth, "a@x.com")
	other := seedAccount(t, auth, "b@x.com")
	ctx := context.Background()

	for _, sid := range []string{"s1", "s2", "s1"} {
		if _, err := h.AppendMessage(ctx, u.ID, sid, domain.RoleHuman, sid); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := h.AppendMessage(ctx, other.ID, "s1", domain.RoleHuman, "foreign"); err != nil {
		t.Fatalf("append other: %v", err)
	}

	all, err := h.ListAllHistory(ctx, u.ID)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListAllHistory = %d rows, %v", len(all), err)
	}
	count, latest, err := h.Stats(ctx, u.ID, "")
	if err != nil || count != 3 || latest == nil {
		t.Fatalf("Stats(all) = %d, %v, %v", count, latest, err)
	}
}

func TestDeleteSession_ThenListEmpty(t *testing.T) {
	db := newSvcDB(t)
	h := NewHistoryService(db)
	auth := newAuth(db)
	u := seedAccount(t, auth, "a@x.com")
	other := seedAccount(t, auth, "b@x.com")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := h.AppendMessage(ctx, u.ID, "s1", domain.RoleHuman, "m"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := h.AppendMessage(ctx, other.ID, "s1", domain.RoleHuman, "theirs"); err != nil {
		t.Fatalf("append other: %v", err)
	}

	n, err := h.DeleteSession(ctx, u.ID, "s1")
	if err != nil || n != 3 {
		t.Fatalf("DeleteSession = %d, %v", n, err)
	}
	got, err := h.ListHistory(ctx, u.ID, "s1")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty history, got %d rows, %v", len(got), err)
	}
	theirs, _ := h.ListHistory(ctx, other.ID, "s1")
	if len(theirs) != 1 {
		t.Fatalf("other user's history must survive, got %d", len(theirs))
	}

	// Deleting an empty session is fine.
	if n, err := h.DeleteSession(ctx, u.ID, "s1"); err != nil || n != 0 {
		t.Fatalf("second DeleteSession = %d, %v", n, err)
	}
}

func TestClaimSession_DoesNotStealOwnedRows(t *testing.T) {
	db := newSvcDB(t)
	h := NewHistoryService(db)
	auth := newAuth(db)
	u := seedAccount(t, auth, "a@x.com")
	other := seedAccount(t, auth, "b@x.com")
	ctx := context.Background()

	if _, err := h.AppendMessage(ctx, other.ID, "s1", domain.RoleHuman, "theirs"); err != nil {
		t.Fatalf("append: %v", err)
	}
	n, err := h.ClaimSession(ctx, "s1", u.ID)
	if err != nil || n != 0 {
		t.Fatalf("ClaimSession = %d, %v", n, err)
	}
	if _, err := h.ClaimSession(ctx, "", u.ID); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("ClaimSession(empty) = %v", err)
	}
}

func TestDeleteSession_PersistenceErrorRollsBack(t *testing.T) {
	db := newSvcDB(t)
	h := NewHistoryService(db)
	if err := db.Migrator().DropTable(&domain.ChatMessage{}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := h.DeleteSession(context.Background(), 1, "s1"); err == nil || IsValidation(err) {
		t.Fatalf("expected raw persistence error, got %v", err)
	}
}
