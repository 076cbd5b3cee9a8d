// Package protocol defines the closed set of envelopes exchanged over the
// live-session channel. The protocol is intentionally flat: no version
// field, no negotiation. Both ends ship from this module, so the type
// strings and field names below are the compatibility contract.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Client-originated envelope types.
const (
	TypeJoinSession      = "join_session"
	TypeChatMessage      = "chat_message"
	TypeRaiseHand        = "raise_hand"
	TypeMediaStateChange = "media_state_change"
	TypeLeaveSession     = "leave_session"
)

// Server-originated envelope types.
const (
	TypeSessionJoined          = "session_joined"
	TypeHandRaised             = "hand_raised"
	TypeParticipantJoined      = "participant_joined"
	TypeParticipantLeft        = "participant_left"
	TypeParticipantMediaChange = "participant_media_change"
)

// Media types carried by media_state_change envelopes.
const (
	MediaAudio     = "audio"
	MediaVideo     = "video"
	MediaScreen    = "screen"
	MediaRecording = "recording"
)

var (
	ErrBadJSON     = errors.New("malformed envelope json")
	ErrMissingType = errors.New("envelope has no type")
)

type JoinSession struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId" validate:"required"`
	UserID    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
}

type ChatMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Author    string `json:"author" validate:"required"`
	Message   string `json:"message" validate:"required"`
	Timestamp string `json:"timestamp,omitempty"`
}

type RaiseHand struct {
	Type       string `json:"type"`
	UserID     string `json:"userId" validate:"required"`
	Username   string `json:"username,omitempty"`
	HandRaised bool   `json:"handRaised"`
}

type MediaStateChange struct {
	Type      string `json:"type"`
	UserID    string `json:"userId" validate:"required"`
	MediaType string `json:"mediaType" validate:"required,oneof=audio video screen recording"`
	Enabled   bool   `json:"enabled"`
}

type LeaveSession struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId" validate:"required"`
	UserID    string `json:"userId,omitempty"`
}

type SessionJoined struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type HandRaised struct {
	Type       string `json:"type"`
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	HandRaised bool   `json:"handRaised"`
}

type ParticipantJoined struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type ParticipantLeft struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type ParticipantMediaChange struct {
	Type      string `json:"type"`
	UserID    string `json:"userId"`
	MediaType string `json:"mediaType"`
	Enabled   bool   `json:"enabled"`
}

// validate is the same validator gin binds request bodies with.
var validate = validator.New()

// Kind extracts the discriminant without decoding the payload, so a
// dispatcher can switch on type before committing to a shape.
func Kind(data []byte) (string, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if probe.Type == "" {
		return "", ErrMissingType
	}
	return probe.Type, nil
}

// Decode unmarshals one envelope and enforces its required-field contract.
func Decode[T any](data []byte) (T, error) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if err := validate.Struct(&p); err != nil {
		var zero T
		return zero, fmt.Errorf("invalid envelope: %w", err)
	}
	return p, nil
}
