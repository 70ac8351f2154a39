// Package llm abstracts the upstream language model behind a small streaming
// interface. Providers are backed by langchaingo; a scripted echo provider
// exists for local development and tests.
package llm

import (
	"context"
	"errors"

	"github.com/tbourn/chatproxy/internal/domain"
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role    domain.Role
	Content string
}

// ChunkFunc receives each incremental piece of the reply, in order. Returning
// an error aborts the stream.
type ChunkFunc func(chunk string) error

// Streamer produces a reply for msgs as a sequence of text chunks.
//
// An empty model selects the provider's default model. Stream returns after
// the last chunk has been delivered or on the first error.
type Streamer interface {
	Stream(ctx context.Context, model string, msgs []Message, fn ChunkFunc) error
}

// ErrEmptyReply is returned when a provider completes without producing text.
var ErrEmptyReply = errors.New("empty reply from model")
