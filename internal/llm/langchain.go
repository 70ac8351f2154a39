package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/tbourn/chatproxy/internal/domain"
)

// LangChain adapts any langchaingo model to Streamer.
type LangChain struct {
	model llms.Model
}

var _ Streamer = (*LangChain)(nil)

// NewLangChain wraps an already constructed langchaingo model.
func NewLangChain(m llms.Model) *LangChain {
	return &LangChain{model: m}
}

// NewGoogle builds a Gemini-backed streamer.
func NewGoogle(ctx context.Context, apiKey, defaultModel string) (*LangChain, error) {
	m, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(defaultModel),
	)
	if err != nil {
		return nil, fmt.Errorf("googleai: %w", err)
	}
	return NewLangChain(m), nil
}

// NewOpenAI builds a streamer for the OpenAI API or a compatible gateway.
func NewOpenAI(apiKey, baseURL, defaultModel string) (*LangChain, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(defaultModel),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return NewLangChain(m), nil
}

// Stream implements Streamer. Models that ignore the streaming callback have
// their whole reply delivered as a single chunk.
func (l *LangChain) Stream(ctx context.Context, model string, msgs []Message, fn ChunkFunc) error {
	content := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	streamed := false
	opts := []llms.CallOption{
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			streamed = true
			return fn(string(chunk))
		}),
	}
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}

	resp, err := l.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return err
	}
	if streamed {
		return nil
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return ErrEmptyReply
	}
	return fn(resp.Choices[0].Content)
}

func messageType(r domain.Role) llms.ChatMessageType {
	if r == domain.RoleAI {
		return llms.ChatMessageTypeAI
	}
	return llms.ChatMessageTypeHuman
}
