package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/persona-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/persona-chat/backend/internal/handler/models"
	"github.com/zhouzirui/persona-chat/backend/internal/handler/persona"
	"github.com/zhouzirui/persona-chat/backend/internal/handler/stream"
	"github.com/zhouzirui/persona-chat/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/persona-chat/backend/internal/middleware"
	chatService "github.com/zhouzirui/persona-chat/backend/internal/service/chat"
	"github.com/zhouzirui/persona-chat/backend/pkg/utils"
)

// Deps 路由所需的核心服务
type Deps struct {
	Personas persona.OptionLister
	Models   models.Lister
	Chat     *chatService.Service
	Logger   *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(deps.Personas).RegisterRoutes(api)
		models.New(deps.Models, logger).RegisterRoutes(api)
		chat.New(deps.Chat).RegisterRoutes(api)
		stream.New(deps.Chat, logger).RegisterRoutes(api)
		ws.New(deps.Chat, logger).RegisterRoutes(api)
	})

	return r
}
