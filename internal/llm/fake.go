package llm

import (
	"context"
	"strings"

	"github.com/tbourn/chatproxy/internal/domain"
)

// Echo is an offline Streamer that answers with the last human message,
// split into word-sized chunks. It is selected with MODEL_PROVIDER=fake.
type Echo struct{}

var _ Streamer = Echo{}

// Stream implements Streamer.
func (Echo) Stream(ctx context.Context, _ string, msgs []Message, fn ChunkFunc) error {
	last := ""
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleHuman {
			last = msgs[i].Content
			break
		}
	}
	return emit(ctx, splitWords("You said: "+last), fn)
}

// Scripted replays a fixed reply. When Err is set, it is returned after the
// chunks have been delivered, which simulates an upstream failure mid-stream.
type Scripted struct {
	Chunks []string
	Err    error

	// Calls records every conversation the streamer was asked to answer.
	Calls [][]Message
	// Models records the model argument of every call.
	Models []string
}

var _ Streamer = (*Scripted)(nil)

// Stream implements Streamer.
func (s *Scripted) Stream(ctx context.Context, model string, msgs []Message, fn ChunkFunc) error {
	s.Calls = append(s.Calls, append([]Message(nil), msgs...))
	s.Models = append(s.Models, model)
	if err := emit(ctx, s.Chunks, fn); err != nil {
		return err
	}
	return s.Err
}

func emit(ctx context.Context, chunks []string, fn ChunkFunc) error {
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// splitWords cuts s after each run of spaces so that joining the pieces
// yields s again.
func splitWords(s string) []string {
	var out []string
	for s != "" {
		i := strings.IndexByte(s, ' ')
		if i < 0 {
			out = append(out, s)
			break
		}
		j := i
		for j < len(s) && s[j] == ' ' {
			j++
		}
		out = append(out, s[:j])
		s = s[j:]
	}
	return out
}
