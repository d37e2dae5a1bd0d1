package persona

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	personaService "github.com/zhouzirui/persona-chat/backend/internal/service/persona"
	"github.com/zhouzirui/persona-chat/backend/pkg/utils"
)

// OptionLister 提供可选 persona 列表
type OptionLister interface {
	Options(ctx context.Context) personaService.OptionSet
}

// Handler persona服务的HTTP处理器
type Handler struct {
	personas OptionLister
}

// New 创建persona处理器
func New(personas OptionLister) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
}

// handleListPersonas 列出 registry 中的 persona，registry 为空时返回内置选项及警告
func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.Options(r.Context()))
}
