package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/persona-chat/backend/internal/model/persona"
	"github.com/zhouzirui/persona-chat/backend/internal/registry"
	"github.com/zhouzirui/persona-chat/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/persona-chat/backend/internal/service/chat"
	personaservice "github.com/zhouzirui/persona-chat/backend/internal/service/persona"
)

type scriptedCompleter struct {
	chunks []string
	err    error
	last   ai.CompletionRequest
}

func (c *scriptedCompleter) StreamResponse(_ context.Context, req ai.CompletionRequest) (*schema.StreamReader[*schema.Message], error) {
	c.last = req
	if c.err != nil {
		return nil, c.err
	}
	msgs := make([]*schema.Message, 0, len(c.chunks))
	for _, chunk := range c.chunks {
		msgs = append(msgs, schema.AssistantMessage(chunk, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func (c *scriptedCompleter) DefaultTemperature() float64 { return 0.7 }

func setup(t *testing.T, completer *scriptedCompleter) (http.Handler, *chatservice.Service) {
	t.Helper()
	reg := registry.NewMemoryRegistry(model.Entry{
		ID:       "luna",
		Alias:    "persona-friendly",
		Project:  "memory-chatbot",
		Template: "You are Luna.\n{memory_context}\nUser says: {user_message}",
		Meta:     model.Meta{Model: "llama3.1"},
	})
	chatSvc := chatservice.NewService(personaservice.NewResolver(reg, "memory-chatbot", nil), completer, nil)

	r := chi.NewRouter()
	New(chatSvc, nil).RegisterRoutes(r)
	return r, chatSvc
}

func stream(t *testing.T, h http.Handler, sessionID string, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream/"+sessionID+"?"+params.Encode(), nil))
	return resp
}

func decodeFrames(t *testing.T, body string) []Frame {
	t.Helper()
	var frames []Frame
	for _, chunk := range strings.Split(strings.TrimSpace(body), "\n\n") {
		data, ok := strings.CutPrefix(chunk, "data: ")
		require.True(t, ok, "unexpected chunk %q", chunk)
		var f Frame
		require.NoError(t, json.Unmarshal([]byte(data), &f))
		frames = append(frames, f)
	}
	return frames
}

func events(frames []Frame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Event)
	}
	return out
}

func TestStreamRendersFragmentsAndCommits(t *testing.T) {
	completer := &scriptedCompleter{chunks: []string{"Hi", "", " **there**"}}
	h, chatSvc := setup(t, completer)
	session, err := chatSvc.CreateSession(context.Background())
	require.NoError(t, err)

	resp := stream(t, h, session.ID, url.Values{"message": {"Hello"}, "temperature": {"0.3"}})

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))

	frames := decodeFrames(t, resp.Body.String())
	require.Equal(t, []string{EventStart, EventRender, EventRender, EventCommit, EventEnd}, events(frames))
	assert.Equal(t, "Hi▌", frames[1].Content)
	assert.Equal(t, "Hi **there**▌", frames[2].Content)
	assert.Equal(t, "Hi **there**", frames[3].Content)
	assert.Contains(t, frames[3].HTML, "<strong>there</strong>")
	assert.True(t, frames[4].Finished)
	assert.False(t, frames[4].Failed)

	assert.Equal(t, "llama3.1", completer.last.Model)
	assert.InDelta(t, 0.3, completer.last.Temperature, 1e-9)

	turns, err := chatSvc.LoadTranscript(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "Hi **there**", turns[1].Content)
}

func TestStreamModelFailureCommitsApology(t *testing.T) {
	h, chatSvc := setup(t, &scriptedCompleter{err: errors.New("connection refused")})
	session, err := chatSvc.CreateSession(context.Background())
	require.NoError(t, err)

	resp := stream(t, h, session.ID, url.Values{"message": {"Hello"}})

	frames := decodeFrames(t, resp.Body.String())
	require.Equal(t, []string{EventStart, EventNotice, EventCommit, EventEnd}, events(frames))
	assert.Equal(t, chatservice.NoticeError, frames[1].Level)
	assert.Equal(t, chatservice.ApologyMessage, frames[2].Content)
	assert.True(t, frames[3].Failed)
}

func TestStreamUnknownPersonaWarns(t *testing.T) {
	h, chatSvc := setup(t, &scriptedCompleter{chunks: []string{"Arr"}})
	session, err := chatSvc.CreateSession(context.Background())
	require.NoError(t, err)

	resp := stream(t, h, session.ID, url.Values{"message": {"Hello"}, "persona": {"persona-pirate"}})

	frames := decodeFrames(t, resp.Body.String())
	require.Equal(t, []string{EventStart, EventNotice, EventRender, EventCommit, EventEnd}, events(frames))
	assert.Equal(t, chatservice.NoticeWarning, frames[1].Level)
	assert.Contains(t, frames[1].Content, "persona-pirate")
}

func TestStreamRejectsInvalidRequests(t *testing.T) {
	h, chatSvc := setup(t, &scriptedCompleter{})
	session, err := chatSvc.CreateSession(context.Background())
	require.NoError(t, err)

	cases := []struct {
		name      string
		sessionID string
		params    url.Values
		status    int
	}{
		{"missing message", session.ID, url.Values{}, http.StatusBadRequest},
		{"blank message", session.ID, url.Values{"message": {"   "}}, http.StatusBadRequest},
		{"temperature not a number", session.ID, url.Values{"message": {"Hi"}, "temperature": {"warm"}}, http.StatusBadRequest},
		{"temperature out of range", session.ID, url.Values{"message": {"Hi"}, "temperature": {"1.5"}}, http.StatusBadRequest},
		{"unknown session", "missing", url.Values{"message": {"Hi"}}, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := stream(t, h, tc.sessionID, tc.params)
			assert.Equal(t, tc.status, resp.Code)
		})
	}

	turns, err := chatSvc.LoadTranscript(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
