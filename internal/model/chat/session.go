package chat

import "time"

// Session is the per-client conversation state: one log and one identifier.
type Session struct {
	ID        string    `json:"id"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tail returns up to n of the most recent turns in chronological order.
func (s Session) Tail(n int) []Turn {
	if n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	start := 0
	if len(s.Turns) > n {
		start = len(s.Turns) - n
	}
	return append([]Turn(nil), s.Turns[start:]...)
}
