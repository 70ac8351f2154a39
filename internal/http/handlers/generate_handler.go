// Generate HTTP handler.
//
// POST /generate runs one chat turn and answers with an event stream:
//
//	data: {"text":"Hel"}
//
//	data: {"text":"lo"}
//
// one frame per model chunk, flushed as written, closed without a sentinel.
// The turn is fully persisted before the first frame is sent, so any
// failure is still reported as a JSON error.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/chatproxy/internal/http/middleware"
	"github.com/tbourn/chatproxy/internal/services"
)

// ContentPart is one piece of a generate request. Only the first is used.
type ContentPart struct {
	Text string `json:"text" example:"hi"`
}

// GenerateRequest is the JSON payload for a chat turn.
type GenerateRequest struct {
	Contents  []ContentPart `json:"contents"`
	SessionID string        `json:"session_id" example:"s1"`
	// Model overrides the configured default model.
	Model string `json:"model" example:"gemini-1.5-flash"`
}

// ChunkEvent is the payload of one event-stream frame.
type ChunkEvent struct {
	Text string `json:"text"`
}

// prepareSSE sets the event-stream response headers.
func prepareSSE(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Generate godoc
// @ID          generate
// @Summary     Chat turn
// @Description Stores the prompt, asks the model with the conversation so far, stores the
// @Description reply and streams it back as text/event-stream frames `data: {"text": "..."}`.
// @Tags        Chat
// @Accept      json
// @Produce     text/event-stream
// @Param       body  body      handlers.GenerateRequest  true  "Prompt"
// @Success     200   {object}  handlers.ChunkEvent  "One object per event frame"
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401   {object}  handlers.ErrorResponse  "Not logged in"
// @Failure     502   {object}  handlers.ErrorResponse  "Model error"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /generate [post]
func (h *Handlers) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if len(req.Contents) == 0 {
		failErr(c, services.ErrEmptyPrompt)
		return
	}

	turn, err := h.chat.HandleTurn(c.Request.Context(), userID(c), req.SessionID, req.Model, req.Contents[0].Text)
	if err != nil {
		failErr(c, err)
		return
	}

	prepareSSE(c)
	c.Status(http.StatusOK)
	for _, chunk := range turn.Chunks {
		b, err := json.Marshal(ChunkEvent{Text: chunk})
		if err != nil {
			middleware.LoggerFrom(c).Error().Err(err).Msg("encode chunk")
			return
		}
		if _, err := c.Writer.Write(append(append([]byte("data: "), b...), '\n', '\n')); err != nil {
			// Client went away; the reply is already stored.
			middleware.LoggerFrom(c).Debug().Err(err).Msg("event stream aborted")
			return
		}
		c.Writer.Flush()
	}
}
