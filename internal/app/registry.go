// Package app holds the small amount of server-side state outside the hub:
// who a client token maps to, and which live sessions exist. Both are plain
// in-memory stores; the real system of record is the LMS backend.
package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/helegran/liveclass/internal/domain"
)

// Identities maps opaque client tokens to the display identity the
// real-time layer reads. Nothing here is verified; envelopes carry
// client-asserted author fields regardless.
type Identities struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewIdentities() *Identities {
	return &Identities{users: make(map[string]*domain.User)}
}

func (r *Identities) GetOrCreate(token string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[token]; ok {
		return u
	}
	u := &domain.User{ID: domain.UserID(token), Username: "guest"}
	r.users[token] = u
	log.Info().Str("module", "app.identities").Str("token", token).Msg("created new identity")
	return u
}

func (r *Identities) UpdateUsername(token, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[token]
	if !ok {
		u = &domain.User{ID: domain.UserID(token)}
		r.users[token] = u
	}
	if err := u.SetUsername(name); err != nil {
		return err
	}
	log.Info().Str("module", "app.identities").Str("token", token).Str("username", name).Msg("updated username")
	return nil
}
