package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/chatproxy/internal/domain"
)

func TestEcho_RepliesToLastHumanMessage(t *testing.T) {
	msgs := []Message{
		{Role: domain.RoleHuman, Content: "old"},
		{Role: domain.RoleAI, Content: "ignored"},
		{Role: domain.RoleHuman, Content: "how are  you"},
	}
	got, err := collect(t, Echo{}, "any", msgs)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(got) < 2 {
		t.Fatalf("expected several chunks, got %q", got)
	}
	if strings.Join(got, "") != "You said: how are  you" {
		t.Fatalf("joined = %q", strings.Join(got, ""))
	}
}

func TestEcho_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Echo{}.Stream(ctx, "", []Message{{Role: domain.RoleHuman, Content: "hi"}}, func(string) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScripted_RecordsCallsAndFailsAfterChunks(t *testing.T) {
	boom := errors.New("upstream down")
	s := &Scripted{Chunks: []string{"a", "b"}, Err: boom}
	msgs := []Message{{Role: domain.RoleHuman, Content: "q"}}

	got, err := collect(t, s, "m1", msgs)
	if !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}
	if strings.Join(got, "") != "ab" {
		t.Fatalf("chunks = %q", got)
	}
	if len(s.Calls) != 1 || s.Calls[0][0].Content != "q" || s.Models[0] != "m1" {
		t.Fatalf("calls not recorded: %+v %v", s.Calls, s.Models)
	}
}

func TestSplitWords_RoundTrips(t *testing.T) {
	for _, in := range []string{"", "one", "a b", "lead  double space ", "  x"} {
		if got := strings.Join(splitWords(in), ""); got != in {
			t.Fatalf("splitWords(%q) joined = %q", in, got)
		}
	}
}
