// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the login session carried by the session cookie.
// Session() runs on every request and never rejects one for lack of a login;
// RequireAuthenticated() is mounted on the routes that need a user.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/chatproxy/internal/domain"
	"github.com/tbourn/chatproxy/internal/services"
)

const (
	userIDKey        = "userID"
	userKey          = "user"
	authSessionIDKey = "authSessionID"
)

// Authenticator resolves a session token to an identity.
type Authenticator interface {
	CurrentUser(ctx context.Context, token string) (*services.Identity, error)
}

// Session reads the cookie named cookieName and, when it names a live login
// session, stores the user in the Gin context (keys "userID", "user" and
// "authSessionID") and adds user_id to the request-scoped logger.
//
// Missing, forged, expired or revoked tokens leave the request anonymous.
// Only store failures abort the request (500).
func Session(auth Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		id, err := auth.CurrentUser(c.Request.Context(), token)
		switch {
		case errors.Is(err, services.ErrUnauthenticated):
			c.Next()
			return
		case err != nil:
			LoggerFrom(c).Error().Err(err).Msg("session lookup failed")
			abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		c.Set(userIDKey, id.User.ID)
		c.Set(userKey, id.User)
		c.Set(authSessionIDKey, id.SessionID)
		setLogger(c, LoggerFrom(c).With().Uint("user_id", id.User.ID).Logger())
		c.Next()
	}
}

// RequireAuthenticated aborts with 401 unless Session resolved a user.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserFrom(c) == nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", services.ErrUnauthenticated.Error())
			return
		}
		c.Next()
	}
}

// UserFrom returns the authenticated user, or nil for anonymous requests.
func UserFrom(c *gin.Context) *domain.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// UserIDFrom returns the authenticated user's ID.
func UserIDFrom(c *gin.Context) (uint, bool) {
	id, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	uid, ok := id.(uint)
	return uid, ok
}

// AuthSessionIDFrom returns the login session ID behind the request cookie.
func AuthSessionIDFrom(c *gin.Context) string {
	return c.GetString(authSessionIDKey)
}
