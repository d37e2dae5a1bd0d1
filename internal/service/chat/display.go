package chat

// CursorMarker trails the partial reply while tokens are still arriving.
const CursorMarker = "▌"

// ApologyMessage replaces the reply when the model call fails.
const ApologyMessage = "I apologize, but I encountered an error generating the response."

// NoticeLevel classifies user-visible notices.
type NoticeLevel string

const (
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a recoverable problem surfaced to the user during a turn.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Display receives the incremental rendering of one assistant reply.
type Display interface {
	// Update shows the partial reply, including the trailing CursorMarker.
	Update(partial string)
	// Commit replaces the partial reply with the final text.
	Commit(final string)
	Notify(n Notice)
}

// DiscardDisplay ignores every frame.
type DiscardDisplay struct{}

func (DiscardDisplay) Update(string) {}
func (DiscardDisplay) Commit(string) {}
func (DiscardDisplay) Notify(Notice) {}

// noticeRecorder forwards to a Display while keeping the notices of a turn.
type noticeRecorder struct {
	Display
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.notices = append(r.notices, n)
	r.Display.Notify(n)
}
