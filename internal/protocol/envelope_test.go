package protocol

import (
	"errors"
	"testing"
)

// TestKindExtractsDiscriminant ensures the probe reads only the type field.
func TestKindExtractsDiscriminant(t *testing.T) {
	kind, err := Kind([]byte(`{"type":"chat_message","message":"hi","author":"Alice"}`))
	if err != nil {
		t.Fatalf("Kind returned error: %v", err)
	}
	if kind != TypeChatMessage {
		t.Fatalf("expected %q, got %q", TypeChatMessage, kind)
	}
}

// TestKindRejectsMalformedJSON ensures garbage frames surface ErrBadJSON.
func TestKindRejectsMalformedJSON(t *testing.T) {
	_, err := Kind([]byte(`{not json`))
	if !errors.Is(err, ErrBadJSON) {
		t.Fatalf("Kind error = %v, want %v", err, ErrBadJSON)
	}
}

// TestKindRejectsMissingType ensures untyped envelopes are flagged.
func TestKindRejectsMissingType(t *testing.T) {
	_, err := Kind([]byte(`{"message":"hi"}`))
	if !errors.Is(err, ErrMissingType) {
		t.Fatalf("Kind error = %v, want %v", err, ErrMissingType)
	}
}

// TestDecodeChatMessage ensures a valid chat envelope round-trips.
func TestDecodeChatMessage(t *testing.T) {
	p, err := Decode[ChatMessage]([]byte(`{"type":"chat_message","author":"Alice","message":"hi","sessionId":"s1"}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if p.Author != "Alice" || p.Message != "hi" || p.SessionID != "s1" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

// TestDecodeEnforcesRequiredFields ensures missing fields fail validation.
func TestDecodeEnforcesRequiredFields(t *testing.T) {
	if _, err := Decode[ChatMessage]([]byte(`{"type":"chat_message","author":"Alice"}`)); err == nil {
		t.Fatal("expected error for chat_message without message")
	}
	if _, err := Decode[JoinSession]([]byte(`{"type":"join_session"}`)); err == nil {
		t.Fatal("expected error for join_session without sessionId")
	}
	if _, err := Decode[RaiseHand]([]byte(`{"type":"raise_hand","handRaised":true}`)); err == nil {
		t.Fatal("expected error for raise_hand without userId")
	}
}

// TestDecodeRejectsUnknownMediaType ensures mediaType stays in the closed set.
func TestDecodeRejectsUnknownMediaType(t *testing.T) {
	_, err := Decode[MediaStateChange]([]byte(`{"type":"media_state_change","userId":"u1","mediaType":"hologram","enabled":true}`))
	if err == nil {
		t.Fatal("expected error for unknown mediaType")
	}
	p, err := Decode[MediaStateChange]([]byte(`{"type":"media_state_change","userId":"u1","mediaType":"audio","enabled":false}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if p.MediaType != MediaAudio || p.Enabled {
		t.Fatalf("unexpected payload: %+v", p)
	}
}
