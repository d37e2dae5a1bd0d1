package stream

import (
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/persona-chat/backend/internal/service/chat"
	"github.com/zhouzirui/persona-chat/backend/pkg/utils"
)

// Event names carried by Frame.Event.
const (
	EventStart  = "start"
	EventRender = "render"
	EventNotice = "notice"
	EventCommit = "commit"
	EventEnd    = "end"
	EventError  = "error"
)

// Frame represents a streaming response chunk
type Frame struct {
	Event     string                  `json:"event"`
	Content   string                  `json:"content,omitempty"`
	HTML      string                  `json:"html,omitempty"`
	Level     chatService.NoticeLevel `json:"level,omitempty"`
	SessionID string                  `json:"sessionId,omitempty"`
	Finished  bool                    `json:"finished,omitempty"`
	Failed    bool                    `json:"failed,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// FrameDisplay 将回复渲染过程转换为 Frame 并交给 send 发送
type FrameDisplay struct {
	sessionID string
	send      func(Frame)
	logger    *zap.Logger
}

// NewFrameDisplay 创建面向某个会话的 Display
func NewFrameDisplay(sessionID string, send func(Frame), logger *zap.Logger) *FrameDisplay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrameDisplay{sessionID: sessionID, send: send, logger: logger}
}

var _ chatService.Display = (*FrameDisplay)(nil)

// Update 发送带光标的部分回复
func (d *FrameDisplay) Update(partial string) {
	d.send(Frame{Event: EventRender, SessionID: d.sessionID, Content: partial})
}

// Commit 发送最终回复及其 HTML 渲染结果
func (d *FrameDisplay) Commit(final string) {
	html, err := utils.RenderMarkdown(final)
	if err != nil {
		d.logger.Warn("markdown rendering failed", zap.String("session_id", d.sessionID), zap.Error(err))
	}
	d.send(Frame{Event: EventCommit, SessionID: d.sessionID, Content: final, HTML: html})
}

// Notify 发送警告或错误提示
func (d *FrameDisplay) Notify(n chatService.Notice) {
	d.send(Frame{Event: EventNotice, SessionID: d.sessionID, Level: n.Level, Content: n.Message})
}
