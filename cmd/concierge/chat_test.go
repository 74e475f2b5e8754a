package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/concierge/internal/orchestrator"
)

type scriptTurns struct {
	seen []string
}

func (s *scriptTurns) HandleTurn(_ context.Context, actorID, sessionID, utterance string) (*orchestrator.TurnResult, error) {
	s.seen = append(s.seen, actorID+"/"+sessionID+":"+utterance)
	if utterance == "fail" {
		return nil, errors.New("provider exploded")
	}
	return &orchestrator.TurnResult{Response: "**" + utterance + "**"}, nil
}

func TestRunChat(t *testing.T) {
	turns := &scriptTurns{}
	in := strings.NewReader("hello\n\nfail\n/quit\nnever sent\n")
	var out bytes.Buffer

	err := runChat(context.Background(), in, &out, turns, plainText, "alice", "s1")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice/s1:hello", "alice/s1:fail"}, turns.seen)
	assert.Contains(t, out.String(), "**hello**")
	assert.Contains(t, out.String(), "error: provider exploded")
	assert.NotContains(t, out.String(), "never sent")
}

func TestRunChat_EndOfInput(t *testing.T) {
	turns := &scriptTurns{}
	var out bytes.Buffer

	require.NoError(t, runChat(context.Background(), strings.NewReader("hi"), &out, turns, plainText, "a", "s"))
	assert.Len(t, turns.seen, 1)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", "--actor", "alice"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(out.String()), ".")))
}
