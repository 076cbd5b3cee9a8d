package domain

type SessionID string

// LiveSession is the course-context meta a virtual classroom displays.
// CRUD over sessions lives elsewhere; the real-time layer only reads it.
type LiveSession struct {
	ID     SessionID `json:"id"`
	Title  string    `json:"title"`
	Course string    `json:"course"`
	Module string    `json:"module,omitempty"`
}
