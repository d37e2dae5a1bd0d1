package models

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/persona-chat/backend/pkg/utils"
)

// Lister 列出本地可用模型，失败时仍返回兜底列表
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// Handler 模型列表的HTTP处理器
type Handler struct {
	lister Lister
	logger *zap.Logger
}

// New 创建模型处理器
func New(lister Lister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{lister: lister, logger: logger}
}

// RegisterRoutes 注册模型相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/models", h.handleListModels)
}

type listResponse struct {
	Models []string `json:"models"`
	Error  string   `json:"error,omitempty"`
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	names, err := h.lister.List(r.Context())
	resp := listResponse{Models: names}
	if err != nil {
		h.logger.Warn("listing local models failed", zap.Error(err))
		resp.Error = err.Error()
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}
