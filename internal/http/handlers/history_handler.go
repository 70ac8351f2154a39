// History HTTP handlers.
//
// This file exposes the conversation history endpoints:
//   - GET    /history/            (all of the user's messages, ETag support)
//   - GET    /history/{session_id} (one conversation, ETag support)
//   - DELETE /history/{session_id} (drop one conversation)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/chatproxy/internal/domain"
	"github.com/tbourn/chatproxy/internal/http/middleware"
	"github.com/tbourn/chatproxy/internal/services"
)

// DeleteHistoryResponse confirms a conversation delete.
type DeleteHistoryResponse struct {
	Message string `json:"message" example:"Chat history deleted successfully"`
	Deleted int64  `json:"deleted" example:"2"`
}

// notModified sets a weak ETag derived from the row count and newest
// timestamp of the listing and reports whether the client copy is current.
// Errors skip the ETag and fall through to a full response.
func (h *Handlers) notModified(c *gin.Context, uid uint, sessionID string) bool {
	count, latest, err := h.history.Stats(c.Request.Context(), uid, sessionID)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("history stats failed")
		return false
	}
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	etag := fmt.Sprintf(`W/"history:%d:%d:%d"`, uid, count, ts)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, no-cache")
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// GetHistory godoc
// @ID          getHistory
// @Summary     Conversation history
// @Description Returns the messages of one conversation in order. Supports weak ETag via If-None-Match.
// @Tags        History
// @Produce     json
// @Param       session_id     path    string  true   "Conversation key"  maxlength(50)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {array}   domain.ChatMessage
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad session id"
// @Failure     401  {object}  handlers.ErrorResponse  "Not logged in"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /history/{session_id} [get]
func (h *Handlers) GetHistory(c *gin.Context) {
	sid := c.Param("session_id")
	if !services.ValidSessionID(sid) {
		failErr(c, services.ErrInvalidSession)
		return
	}
	uid := userID(c)
	if h.notModified(c, uid, sid) {
		return
	}
	msgs, err := h.history.ListHistory(c.Request.Context(), uid, sid)
	if err != nil {
		failErr(c, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	ok(c, http.StatusOK, msgs)
}

// GetAllHistory godoc
// @ID          getAllHistory
// @Summary     All history
// @Description Returns every message of the user across conversations, oldest first.
// @Tags        History
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {array}   domain.ChatMessage
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Not logged in"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /history/ [get]
func (h *Handlers) GetAllHistory(c *gin.Context) {
	uid := userID(c)
	if h.notModified(c, uid, "") {
		return
	}
	msgs, err := h.history.ListAllHistory(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	ok(c, http.StatusOK, msgs)
}

// DeleteHistory godoc
// @ID          deleteHistory
// @Summary     Delete a conversation
// @Description Deletes the caller's messages of one conversation.
// @Tags        History
// @Produce     json
// @Param       session_id  path  string  true  "Conversation key"  maxlength(50)
// @Success     200  {object}  handlers.DeleteHistoryResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad session id"
// @Failure     401  {object}  handlers.ErrorResponse  "Not logged in"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /history/{session_id} [delete]
func (h *Handlers) DeleteHistory(c *gin.Context) {
	sid := c.Param("session_id")
	if !services.ValidSessionID(sid) {
		failErr(c, services.ErrInvalidSession)
		return
	}
	n, err := h.history.DeleteSession(c.Request.Context(), userID(c), sid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, DeleteHistoryResponse{
		Message: "Chat history deleted successfully",
		Deleted: n,
	})
}
