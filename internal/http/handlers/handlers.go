// Package handlers wires HTTP endpoints to the account, history and chat
// services.
//
// Handlers are transport-thin: they bind input, call a service and translate
// the result (or error) into an HTTP response. Identity comes from the
// Session middleware; handlers mounted behind RequireAuthenticated can rely
// on it being present.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/chatproxy/internal/domain"
	"github.com/tbourn/chatproxy/internal/http/middleware"
	"github.com/tbourn/chatproxy/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService manages accounts and login sessions.
type AuthService interface {
	CreateUser(ctx context.Context, email, password, name string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	StartSession(ctx context.Context, userID uint) (string, error)
	Logout(ctx context.Context, sessionID string) error
}

// HistoryService reads and deletes stored conversations.
type HistoryService interface {
	ListHistory(ctx context.Context, userID uint, sessionID string) ([]domain.ChatMessage, error)
	ListAllHistory(ctx context.Context, userID uint) ([]domain.ChatMessage, error)
	DeleteSession(ctx context.Context, userID uint, sessionID string) (int64, error)
	ClaimSession(ctx context.Context, sessionID string, userID uint) (int64, error)
	Stats(ctx context.Context, userID uint, sessionID string) (int64, *time.Time, error)
}

// ChatService runs one chat turn.
type ChatService interface {
	HandleTurn(ctx context.Context, userID uint, sessionID, model, text string) (*services.Turn, error)
}

//
// Handler wiring
//

// CookieOptions describes the session cookie.
type CookieOptions struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	auth    AuthService
	history HistoryService
	chat    ChatService
	cookie  CookieOptions
	webDir  string
}

// New constructs and returns a Handlers instance bound to the given services.
// webDir is the root of the static front-end.
func New(auth AuthService, history HistoryService, chat ChatService, cookie CookieOptions, webDir string) *Handlers {
	return &Handlers{auth: auth, history: history, chat: chat, cookie: cookie, webDir: webDir}
}

// userID returns the authenticated user's ID. Only valid behind
// RequireAuthenticated.
func userID(c *gin.Context) uint {
	id, _ := middleware.UserIDFrom(c)
	return id
}

func (h *Handlers) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *Handlers) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
