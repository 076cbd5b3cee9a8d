package signal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/helegran/liveclass/internal/hub"
	"github.com/helegran/liveclass/internal/protocol"
)

func startEndpoint(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := hub.New()
	ctl := NewController(h, 32768, 54*time.Second)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ctl.HandleSignal(context.Background(), c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return data
}

// join performs the handshake that proves a connection is registered with
// the hub: the session_joined ack can only arrive after registration.
func join(t *testing.T, conn *websocket.Conn, sessionID string) {
	t.Helper()
	msg := `{"type":"join_session","sessionId":"` + sessionID + `"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write join: %v", err)
	}
	var ack protocol.SessionJoined
	if err := json.Unmarshal(readFrame(t, conn), &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ack.Type != protocol.TypeSessionJoined || ack.SessionID != sessionID {
		t.Fatalf("unexpected ack: %+v", ack)
	}
}

// TestJoinAckOverWire ensures the endpoint upgrades, registers and
// acknowledges a join end to end.
func TestJoinAckOverWire(t *testing.T) {
	url := startEndpoint(t)
	conn := dial(t, url)
	join(t, conn, "s1")
}

// TestChatFansOutOverWire ensures a chat frame reaches both the sender and
// a second connected client with a server timestamp.
func TestChatFansOutOverWire(t *testing.T) {
	url := startEndpoint(t)
	a := dial(t, url)
	b := dial(t, url)
	join(t, a, "s1")
	join(t, b, "s1")

	chat := `{"type":"chat_message","author":"Alice","message":"hi","sessionId":"s1"}`
	if err := a.WriteMessage(websocket.TextMessage, []byte(chat)); err != nil {
		t.Fatalf("write chat: %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		var msg protocol.ChatMessage
		if err := json.Unmarshal(readFrame(t, conn), &msg); err != nil {
			t.Fatalf("unmarshal chat: %v", err)
		}
		if msg.Author != "Alice" || msg.Message != "hi" {
			t.Fatalf("unexpected chat: %+v", msg)
		}
		if msg.Timestamp == "" {
			t.Fatal("chat missing server timestamp")
		}
	}
}

// TestMalformedFrameKeepsConnectionOpen ensures garbage from one client
// neither kills its connection nor blocks later valid traffic.
func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	url := startEndpoint(t)
	a := dial(t, url)
	b := dial(t, url)
	join(t, a, "s1")
	join(t, b, "s1")

	if err := a.WriteMessage(websocket.TextMessage, []byte(`{{{not json`)); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	chat := `{"type":"chat_message","author":"Alice","message":"still here"}`
	if err := a.WriteMessage(websocket.TextMessage, []byte(chat)); err != nil {
		t.Fatalf("write chat: %v", err)
	}

	var msg protocol.ChatMessage
	if err := json.Unmarshal(readFrame(t, b), &msg); err != nil {
		t.Fatalf("unmarshal chat: %v", err)
	}
	if msg.Message != "still here" {
		t.Fatalf("unexpected chat: %+v", msg)
	}
}

// TestRaiseHandOverWire replays the two-hands scenario: a third client
// sees one hand_raised per sender, in arrival order.
func TestRaiseHandOverWire(t *testing.T) {
	url := startEndpoint(t)
	a := dial(t, url)
	b := dial(t, url)
	c := dial(t, url)
	join(t, a, "s1")
	join(t, b, "s1")
	join(t, c, "s1")

	if err := a.WriteMessage(websocket.TextMessage, []byte(`{"type":"raise_hand","userId":"u1","username":"Alice","handRaised":true}`)); err != nil {
		t.Fatalf("write raise_hand: %v", err)
	}
	if err := b.WriteMessage(websocket.TextMessage, []byte(`{"type":"raise_hand","userId":"u2","username":"Bob","handRaised":true}`)); err != nil {
		t.Fatalf("write raise_hand: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		var hand protocol.HandRaised
		if err := json.Unmarshal(readFrame(t, c), &hand); err != nil {
			t.Fatalf("unmarshal hand_raised: %v", err)
		}
		if hand.Type != protocol.TypeHandRaised || !hand.HandRaised {
			t.Fatalf("unexpected hand_raised: %+v", hand)
		}
		seen[hand.UserID] = true
	}
	if !seen["u1"] || !seen["u2"] {
		t.Fatalf("expected hands from u1 and u2, got %v", seen)
	}
}
