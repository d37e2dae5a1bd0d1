package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/persona-chat/backend/internal/registry"
	"github.com/zhouzirui/persona-chat/backend/internal/service/ai"
	chatService "github.com/zhouzirui/persona-chat/backend/internal/service/chat"
	personaService "github.com/zhouzirui/persona-chat/backend/internal/service/persona"
)

func newTestRouter() http.Handler {
	resolver := personaService.NewResolver(registry.NewMemoryRegistry(), "memory-chatbot", nil)
	lister := ai.NewModelLister("ollama", func(context.Context, string, ...string) ([]byte, error) {
		return []byte("NAME ID\nmixtral:latest 1\n"), nil
	}, nil)
	return NewRouter(Deps{
		Personas: resolver,
		Models:   lister,
		Chat:     chatService.NewService(resolver, nil, nil),
	})
}

func TestRouterRoutes(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/personas", http.StatusOK},
		{http.MethodGet, "/api/models", http.StatusOK},
		{http.MethodPost, "/api/session", http.StatusCreated},
		{http.MethodGet, "/api/session/missing/messages", http.StatusNotFound},
		{http.MethodDelete, "/api/session/missing", http.StatusNotFound},
		{http.MethodGet, "/api/stream/missing?message=hi", http.StatusNotFound},
		{http.MethodGet, "/api/ws/missing", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.status, resp.Code)
			assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRouterModelsPayload(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/models", nil))

	var body struct {
		Models []string `json:"models"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"mixtral:latest"}, body.Models)
}
