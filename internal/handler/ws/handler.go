package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/persona-chat/backend/internal/handler/stream"
	chatService "github.com/zhouzirui/persona-chat/backend/internal/service/chat"
	personaService "github.com/zhouzirui/persona-chat/backend/internal/service/persona"
	"github.com/zhouzirui/persona-chat/backend/pkg/utils"
)

const writeWait = 10 * time.Second

// Handler WebSocket对话处理器，每条入站消息对应一次对话轮次
type Handler struct {
	chatSvc  *chatService.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

// TurnMessage 客户端发送的一次对话请求
type TurnMessage struct {
	Message     string   `json:"message"`
	Persona     string   `json:"persona,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

func (m TurnMessage) request() chatService.TurnRequest {
	alias := m.Persona
	if alias == "" {
		alias = personaService.DefaultAlias
	}
	return chatService.TurnRequest{
		Message:      m.Message,
		PersonaAlias: alias,
		Model:        m.Model,
		Temperature:  m.Temperature,
	}
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("websocket connected", zap.String("session_id", sessionID))

	send := func(f stream.Frame) {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(f); err != nil {
			h.logger.Debug("websocket write failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	display := stream.NewFrameDisplay(sessionID, send, h.logger)

	for {
		var msg TurnMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed", zap.String("session_id", sessionID), zap.Error(err))
			}
			return
		}

		send(stream.Frame{Event: stream.EventStart, SessionID: sessionID})
		result, err := h.chatSvc.HandleTurn(r.Context(), sessionID, msg.request(), display)
		if err != nil {
			send(stream.Frame{Event: stream.EventError, SessionID: sessionID, Error: err.Error()})
			if errors.Is(err, chatService.ErrSessionNotFound) {
				return
			}
			continue
		}
		send(stream.Frame{Event: stream.EventEnd, SessionID: sessionID, Finished: true, Failed: result.Failed})
	}
}
