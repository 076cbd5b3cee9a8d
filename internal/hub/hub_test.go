package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/helegran/liveclass/internal/protocol"
)

type fakeConn struct {
	id     ConnID
	mu     sync.Mutex
	frames []Frame
	broken bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: ConnID(id)}
}

func (c *fakeConn) ID() ConnID { return c.id }

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return errors.New("connection closed")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broken = true
}

func (c *fakeConn) received() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func decodeOne[T any](t *testing.T, f Frame) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(f, &v); err != nil {
		t.Fatalf("unmarshal broadcast frame: %v", err)
	}
	return v
}

// TestJoinRepliesOnlyToSender ensures join_session is acknowledged to the
// sending connection and nobody else.
func TestJoinRepliesOnlyToSender(t *testing.T) {
	h := New()
	a := newFakeConn("a")
	b := newFakeConn("b")
	h.Add(a)
	h.Add(b)

	h.HandleFrame(a, Frame(`{"type":"join_session","sessionId":"s1"}`))

	got := a.received()
	if len(got) != 1 {
		t.Fatalf("sender expected 1 frame, got %d", len(got))
	}
	ack := decodeOne[protocol.SessionJoined](t, got[0])
	if ack.Type != protocol.TypeSessionJoined || ack.SessionID != "s1" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if n := len(b.received()); n != 0 {
		t.Fatalf("bystander expected 0 frames, got %d", n)
	}
}

// TestChatBroadcastReachesAllOpenConnections ensures chat fans out to every
// open connection including the sender, with a server-assigned timestamp.
func TestChatBroadcastReachesAllOpenConnections(t *testing.T) {
	h := New()
	conns := []*fakeConn{newFakeConn("a"), newFakeConn("b"), newFakeConn("c")}
	for _, c := range conns {
		h.Add(c)
	}

	h.HandleFrame(conns[0], Frame(`{"type":"chat_message","author":"Alice","message":"hi","sessionId":"s1"}`))

	for _, c := range conns {
		got := c.received()
		if len(got) != 1 {
			t.Fatalf("conn %s expected 1 frame, got %d", c.id, len(got))
		}
		msg := decodeOne[protocol.ChatMessage](t, got[0])
		if msg.Author != "Alice" || msg.Message != "hi" {
			t.Fatalf("conn %s got unexpected chat: %+v", c.id, msg)
		}
		if msg.Timestamp == "" {
			t.Fatalf("conn %s got chat without server timestamp", c.id)
		}
	}
}

// TestChatPreservesPerSenderOrder ensures messages from one connection are
// delivered to a recipient in send order.
func TestChatPreservesPerSenderOrder(t *testing.T) {
	h := New()
	a := newFakeConn("a")
	b := newFakeConn("b")
	h.Add(a)
	h.Add(b)

	for i := 0; i < 10; i++ {
		frame := fmt.Sprintf(`{"type":"chat_message","author":"Alice","message":"m%d"}`, i)
		h.HandleFrame(a, Frame(frame))
	}

	got := b.received()
	if len(got) != 10 {
		t.Fatalf("expected 10 frames, got %d", len(got))
	}
	for i, f := range got {
		msg := decodeOne[protocol.ChatMessage](t, f)
		if want := fmt.Sprintf("m%d", i); msg.Message != want {
			t.Fatalf("frame %d: expected %q, got %q", i, want, msg.Message)
		}
	}
}

// TestNoReplayForLateJoiners ensures a connection added after a broadcast
// receives nothing from before it joined.
func TestNoReplayForLateJoiners(t *testing.T) {
	h := New()
	a := newFakeConn("a")
	h.Add(a)

	h.HandleFrame(a, Frame(`{"type":"chat_message","author":"Alice","message":"early"}`))

	late := newFakeConn("late")
	h.Add(late)
	if n := len(late.received()); n != 0 {
		t.Fatalf("late joiner expected 0 frames, got %d", n)
	}

	h.HandleFrame(a, Frame(`{"type":"chat_message","author":"Alice","message":"after"}`))
	got := late.received()
	if len(got) != 1 {
		t.Fatalf("late joiner expected 1 frame, got %d", len(got))
	}
	if msg := decodeOne[protocol.ChatMessage](t, got[0]); msg.Message != "after" {
		t.Fatalf("late joiner got %q, want %q", msg.Message, "after")
	}
}

// TestRaiseHandBroadcast ensures hand_raised reaches every connection in
// arrival order, one notification per sender.
func TestRaiseHandBroadcast(t *testing.T) {
	h := New()
	a := newFakeConn("a")
	b := newFakeConn("b")
	third := newFakeConn("c")
	h.Add(a)
	h.Add(b)
	h.Add(third)

	h.HandleFrame(a, Frame(`{"type":"raise_hand","userId":"u1","username":"Alice","handRaised":true}`))
	h.HandleFrame(b, Frame(`{"type":"raise_hand","userId":"u2","username":"Bob","handRaised":true}`))

	got := third.received()
	if len(got) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got))
	}
	first := decodeOne[protocol.HandRaised](t, got[0])
	second := decodeOne[protocol.HandRaised](t, got[1])
	if first.UserID != "u1" || second.UserID != "u2" {
		t.Fatalf("unexpected order: %+v then %+v", first, second)
	}
	if !first.HandRaised || first.Username != "Alice" {
		t.Fatalf("unexpected hand_raised payload: %+v", first)
	}
}

// TestMalformedFrameDoesNotAffectOthers ensures one connection's garbage
// never blocks delivery of subsequent valid messages.
func TestMalformedFrameDoesNotAffectOthers(t *testing.T) {
	h := New()
	a := newFakeConn("a")
	b := newFakeConn("b")
	h.Add(a)
	h.Add(b)

	h.HandleFrame(a, Frame(`{{{not json`))
	h.HandleFrame(a, Frame(`{"message":"untyped"}`))
	h.HandleFrame(b, Frame(`{"type":"chat_message","author":"Bob","message":"still works"}`))

	got := a.received()
	if len(got) != 1 {
		t.Fatalf("expected 1 frame after malformed input, got %d", len(got))
	}
	if msg := decodeOne[protocol.ChatMessage](t, got[0]); msg.Message != "still works" {
		t.Fatalf("unexpected chat: %+v", msg)
	}
}

// TestBrokenConnectionSkipped ensures a failed send is skipped without
// disturbing delivery to the remaining connections.
func TestBrokenConnectionSkipped(t *testing.T) {
	h := New()
	a := newFakeConn("a")
	dead := newFakeConn("dead")
	dead.Close()
	h.Add(a)
	h.Add(dead)

	h.HandleFrame(a, Frame(`{"type":"chat_message","author":"Alice","message":"hi"}`))

	if n := len(a.received()); n != 1 {
		t.Fatalf("live conn expected 1 frame, got %d", n)
	}
	if n := len(dead.received()); n != 0 {
		t.Fatalf("dead conn expected 0 frames, got %d", n)
	}
}

// TestUnhandledTypesIgnored ensures types outside the hub's dispatch set
// produce no fan-out.
func TestUnhandledTypesIgnored(t *testing.T) {
	h := New()
	a := newFakeConn("a")
	b := newFakeConn("b")
	h.Add(a)
	h.Add(b)

	h.HandleFrame(a, Frame(`{"type":"media_state_change","userId":"u1","mediaType":"audio","enabled":false}`))
	h.HandleFrame(a, Frame(`{"type":"leave_session","sessionId":"s1"}`))
	h.HandleFrame(a, Frame(`{"type":"totally_unknown"}`))

	if n := len(b.received()); n != 0 {
		t.Fatalf("expected 0 frames, got %d", n)
	}
}

// TestRemoveStopsDelivery ensures removed connections drop out of the
// broadcast set.
func TestRemoveStopsDelivery(t *testing.T) {
	h := New()
	a := newFakeConn("a")
	b := newFakeConn("b")
	h.Add(a)
	h.Add(b)
	h.Remove(b.ID())

	h.HandleFrame(a, Frame(`{"type":"chat_message","author":"Alice","message":"hi"}`))

	if n := len(b.received()); n != 0 {
		t.Fatalf("removed conn expected 0 frames, got %d", n)
	}
	if h.Count() != 1 {
		t.Fatalf("expected 1 registered conn, got %d", h.Count())
	}
}
