package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/concierge/internal/auth"
	"github.com/aiox-platform/concierge/internal/conversation"
)

type recordingTurns struct {
	actor, session, prompt string
	err                    error
}

func (f *recordingTurns) HandleTurn(_ context.Context, actorID, sessionID, utterance string) (*TurnResult, error) {
	f.actor, f.session, f.prompt = actorID, sessionID, utterance
	if f.err != nil {
		return nil, f.err
	}
	return &TurnResult{
		Response: "NVDA is at 120.5",
		Episode:  &conversation.Episode{ID: "ep-1", Outcome: conversation.OutcomeGoalCompleted},
		State:    conversation.NewState(actorID, sessionID, utterance),
	}, nil
}

func postTurn(ctx context.Context, h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turns", strings.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Turn(t *testing.T) {
	t.Run("body actor without auth", func(t *testing.T) {
		turns := &recordingTurns{}
		h := http.HandlerFunc(NewHandler(turns, NewValidator()).Turn)

		rec := postTurn(context.Background(), h, `{"prompt":" NVDA? ","actor_id":"alice","session_id":"s1"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var out TurnResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, TurnResponse{
			Response: "NVDA is at 120.5", ActorID: "alice", SessionID: "s1",
			EpisodeID: "ep-1", Outcome: "goal_completed",
		}, out)
		assert.Equal(t, "NVDA?", turns.prompt)
	})

	t.Run("actor comes from the token", func(t *testing.T) {
		turns := &recordingTurns{}
		h := http.HandlerFunc(NewHandler(turns, NewValidator()).Turn)
		ctx := auth.WithClaims(context.Background(), &auth.AccessClaims{ActorID: "bob"})

		rec := postTurn(ctx, h, `{"prompt":"hi","session_id":"s1"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "bob", turns.actor)
	})

	t.Run("body actor must match the token", func(t *testing.T) {
		h := http.HandlerFunc(NewHandler(&recordingTurns{}, NewValidator()).Turn)
		ctx := auth.WithClaims(context.Background(), &auth.AccessClaims{ActorID: "bob"})

		rec := postTurn(ctx, h, `{"prompt":"hi","actor_id":"mallory","session_id":"s1"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("validation errors are 400", func(t *testing.T) {
		h := http.HandlerFunc(NewHandler(&recordingTurns{}, NewValidator()).Turn)

		rec := postTurn(context.Background(), h, `{"prompt":"","actor_id":"a","session_id":"s"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "prompt is required")

		rec = postTurn(context.Background(), h, `not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("engine timeout is 504", func(t *testing.T) {
		h := http.HandlerFunc(NewHandler(&recordingTurns{err: context.DeadlineExceeded}, NewValidator()).Turn)

		rec := postTurn(context.Background(), h, `{"prompt":"hi","actor_id":"a","session_id":"s"}`)
		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})
}
