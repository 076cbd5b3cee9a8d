package domain

// ChatMessage is one entry of a client's append-only chat log.
// Never edited, never removed, not persisted past the session.
type ChatMessage struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
