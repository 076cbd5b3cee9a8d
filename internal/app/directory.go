package app

import (
	"sync"

	"github.com/helegran/liveclass/internal/domain"
)

// SessionDirectory answers "get live session by id" for display purposes.
// Session CRUD belongs to the LMS backend; this is the read model the
// classroom page needs.
type SessionDirectory struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]domain.LiveSession
}

func NewSessionDirectory() *SessionDirectory {
	return &SessionDirectory{sessions: make(map[domain.SessionID]domain.LiveSession)}
}

func (d *SessionDirectory) Put(s domain.LiveSession) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[s.ID] = s
}

func (d *SessionDirectory) Get(id domain.SessionID) (domain.LiveSession, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.sessions[id]
	return s, ok
}

func (d *SessionDirectory) List() []domain.LiveSession {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.LiveSession, 0, len(d.sessions))
	for _, s := range d.sessions {
		out = append(out, s)
	}
	return out
}
