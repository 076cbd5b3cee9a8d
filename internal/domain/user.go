// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxDisplayNameLen = 64

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
)

type UserID string

// User is the externally-authenticated identity the real-time layer reads.
// It performs no authorization of its own; Username is what peers see as
// the chat author.
type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(username string) (*User, error) {
	if len(username) == 0 {
		return nil, ErrDisplayNameEmpty
	}
	if len(username) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	return &User{ID: UserID(uuid.NewString()), Username: username}, nil
}

func (u *User) SetUsername(username string) error {
	if len(username) == 0 {
		return ErrDisplayNameEmpty
	}
	if len(username) > MaxDisplayNameLen {
		return ErrDisplayNameTooLong
	}
	u.Username = username
	return nil
}
