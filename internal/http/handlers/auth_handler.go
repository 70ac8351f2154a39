// Auth HTTP handlers.
//
// This file exposes the account endpoints:
//   - GET  /auth/status   (who am I)
//   - POST /auth/login    (credentials -> session cookie)
//   - POST /auth/signup   (create account, then log in)
//   - POST /auth/logout   (revoke session, clear cookie)
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/chatproxy/internal/domain"
	"github.com/tbourn/chatproxy/internal/http/middleware"
	"github.com/tbourn/chatproxy/internal/services"
)

//
// DTOs
//

// LoginRequest is the JSON payload for logging in.
type LoginRequest struct {
	Email    string `json:"email" example:"a@x.com"`
	Password string `json:"password" example:"pw123"`
}

// SignupRequest is the JSON payload for creating an account.
type SignupRequest struct {
	Email    string `json:"email" example:"a@x.com"`
	Password string `json:"password" example:"pw123"`
	Name     string `json:"name" example:"A"`
}

// LogoutRequest optionally names the conversation open in the browser.
type LogoutRequest struct {
	CurrentSessionID string `json:"currentSessionId" example:"s1"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	Email string `json:"email" example:"a@x.com"`
	Name  string `json:"name" example:"A"`
}

// AuthStatusResponse reports whether the caller is logged in.
type AuthStatusResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user,omitempty"`
}

func authenticated(u *domain.User) AuthStatusResponse {
	return AuthStatusResponse{
		Authenticated: true,
		User:          &UserResponse{Email: u.Email, Name: u.Name},
	}
}

// AuthStatus godoc
// @ID          authStatus
// @Summary     Current login state
// @Tags        Auth
// @Produce     json
// @Success     200  {object}  handlers.AuthStatusResponse
// @Router      /auth/status [get]
func (h *Handlers) AuthStatus(c *gin.Context) {
	if u := middleware.UserFrom(c); u != nil {
		ok(c, http.StatusOK, authenticated(u))
		return
	}
	ok(c, http.StatusOK, AuthStatusResponse{Authenticated: false})
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Verifies credentials and sets the session cookie.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  handlers.AuthStatusResponse
// @Header      200   {string}  Set-Cookie  "Session cookie (HttpOnly)"
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401   {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		failErr(c, services.ErrMissingCredentials)
		return
	}

	u, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	h.setSessionCookie(c, token)
	ok(c, http.StatusOK, authenticated(u))
}

// Signup godoc
// @ID          signup
// @Summary     Create an account
// @Description Creates the account and logs it in (sets the session cookie).
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SignupRequest  true  "New account"
// @Success     200   {object}  handlers.AuthStatusResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Missing or malformed fields"
// @Failure     409   {object}  handlers.ErrorResponse  "Email already registered"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/signup [post]
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	u, err := h.auth.CreateUser(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		failErr(c, err)
		return
	}
	token, err := h.auth.StartSession(ctx, u.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Uint("user_id", u.ID).Msg("account created")
	h.setSessionCookie(c, token)
	ok(c, http.StatusOK, authenticated(u))
}

// Logout godoc
// @ID          logout
// @Summary     Log out
// @Description Revokes the login session and clears the cookie. When currentSessionId
// @Description is given, unowned messages of that conversation are claimed first.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LogoutRequest  false  "Open conversation"
// @Success     200   {object}  handlers.AuthStatusResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401   {object}  handlers.ErrorResponse  "Not logged in"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	uid := userID(c)
	if sid := req.CurrentSessionID; sid != "" && services.ValidSessionID(sid) {
		if n, err := h.history.ClaimSession(ctx, sid, uid); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("claim session on logout failed")
		} else if n > 0 {
			middleware.LoggerFrom(c).Info().Int64("claimed", n).Msg("claimed session messages")
		}
	}

	if err := h.auth.Logout(ctx, middleware.AuthSessionIDFrom(c)); err != nil {
		failErr(c, err)
		return
	}
	h.clearSessionCookie(c)
	ok(c, http.StatusOK, AuthStatusResponse{Authenticated: false})
}
