// Package services – ChatService
//
// ChatService runs one chat turn: it stores the human message, replays the
// stored conversation to the language model, collects the streamed reply and
// stores it as the AI message. The human message is committed before the
// model is called, so a failed turn leaves a human row without a reply.
//
// The model call and the reply write are detached from request cancellation:
// a client that disconnects mid-turn still gets its reply persisted.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/chatproxy/internal/domain"
	"github.com/tbourn/chatproxy/internal/llm"
)

// ConversationStore is the history contract required by ChatService.
type ConversationStore interface {
	AppendMessage(ctx context.Context, userID uint, sessionID string, role domain.Role, content string) (*domain.ChatMessage, error)
	ListHistory(ctx context.Context, userID uint, sessionID string) ([]domain.ChatMessage, error)
}

// Turn is the outcome of a completed chat turn.
type Turn struct {
	Human *domain.ChatMessage
	AI    *domain.ChatMessage
	// Chunks is the reply as streamed by the model, in order.
	Chunks []string
}

// ChatService orchestrates chat turns.
type ChatService struct {
	Store ConversationStore
	Model llm.Streamer

	// DefaultModel is used when the caller names no model.
	DefaultModel string
	// MaxPromptRunes caps the human message (0 disables the check).
	MaxPromptRunes int
	// Timeout bounds one model call (0 disables the bound).
	Timeout time.Duration
}

// NewChatService constructs a ChatService.
func NewChatService(store ConversationStore, model llm.Streamer, defaultModel string, maxPromptRunes int, timeout time.Duration) *ChatService {
	return &ChatService{
		Store:          store,
		Model:          model,
		DefaultModel:   defaultModel,
		MaxPromptRunes: maxPromptRunes,
		Timeout:        timeout,
	}
}

// HandleTurn answers text in the conversation (userID, sessionID).
//
// On a model failure the returned error wraps ErrModel and the Turn still
// carries the stored human message. No AI message is stored in that case.
func (s *ChatService) HandleTurn(ctx context.Context, userID uint, sessionID, model, text string) (*Turn, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "HandleTurn",
		trace.WithAttributes(
			attribute.Int64("user.id", int64(userID)),
			attribute.String("session.id", sessionID),
		),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(text) > s.MaxPromptRunes {
		return nil, ErrPromptTooLong
	}
	if !ValidSessionID(sessionID) {
		return nil, ErrInvalidSession
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = s.DefaultModel
	}
	span.SetAttributes(attribute.String("llm.model", model))

	human, err := s.Store.AppendMessage(ctx, userID, sessionID, domain.RoleHuman, text)
	if err != nil {
		return nil, err
	}
	turn := &Turn{Human: human}

	history, err := s.Store.ListHistory(ctx, userID, sessionID)
	if err != nil {
		return turn, err
	}
	msgs := buildPrompt(history, human.ID, text)

	// Detach from the client; only Timeout may stop the model now.
	bg := context.WithoutCancel(ctx)
	mctx := bg
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		mctx, cancel = context.WithTimeout(bg, s.Timeout)
		defer cancel()
	}

	var reply strings.Builder
	err = s.Model.Stream(mctx, model, msgs, func(chunk string) error {
		turn.Chunks = append(turn.Chunks, chunk)
		reply.WriteString(chunk)
		return nil
	})
	if err == nil && reply.Len() == 0 {
		err = llm.ErrEmptyReply
	}
	span.SetAttributes(attribute.Int("llm.chunks", len(turn.Chunks)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		turn.Chunks = nil
		return turn, fmt.Errorf("%w: %w", ErrModel, err)
	}

	ai, err := s.Store.AppendMessage(bg, userID, sessionID, domain.RoleAI, reply.String())
	if err != nil {
		return turn, err
	}
	turn.AI = ai
	return turn, nil
}

// buildPrompt replays stored history except the message just appended and
// ends with the current text exactly once.
func buildPrompt(history []domain.ChatMessage, currentID uint, text string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		if m.ID == currentID {
			continue
		}
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return append(msgs, llm.Message{Role: domain.RoleHuman, Content: text})
}
