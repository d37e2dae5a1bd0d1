package stream

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/persona-chat/backend/internal/service/chat"
	personaService "github.com/zhouzirui/persona-chat/backend/internal/service/persona"
	"github.com/zhouzirui/persona-chat/backend/pkg/utils"
)

// Handler manages streaming AI responses via Server-Sent Events
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
	}
}

// RegisterRoutes 注册流式对话路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// ParseTurnQuery 从查询参数构造 TurnRequest，persona 为空时使用默认 persona
func ParseTurnQuery(r *http.Request) (chatService.TurnRequest, error) {
	q := r.URL.Query()
	req := chatService.TurnRequest{
		Message:      q.Get("message"),
		PersonaAlias: q.Get("persona"),
		Model:        q.Get("model"),
	}
	if req.PersonaAlias == "" {
		req.PersonaAlias = personaService.DefaultAlias
	}
	if raw := q.Get("temperature"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, chatService.ErrInvalidTemperature
		}
		req.Temperature = &t
	}
	return req, chatService.ValidateTurn(req)
}

// handleStream 处理一次对话轮次并以 SSE 推送渲染过程
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	req, err := ParseTurnQuery(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	utils.SetupSSEHeaders(w)
	send := func(f Frame) { utils.SendSSEChunk(w, flusher, f) }

	send(Frame{Event: EventStart, SessionID: sessionID})

	result, err := h.chatSvc.HandleTurn(r.Context(), sessionID, req, NewFrameDisplay(sessionID, send, h.logger))
	if err != nil {
		// 会话可能在校验之后被并发结束
		message := "turn failed"
		if errors.Is(err, chatService.ErrSessionNotFound) {
			message = err.Error()
		}
		h.logger.Warn("stream turn rejected", zap.String("session_id", sessionID), zap.Error(err))
		send(Frame{Event: EventError, SessionID: sessionID, Error: message})
		return
	}

	send(Frame{
		Event:     EventEnd,
		SessionID: sessionID,
		Finished:  true,
		Failed:    result.Failed,
	})
}
