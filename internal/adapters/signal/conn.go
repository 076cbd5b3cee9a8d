package signal

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/helegran/liveclass/internal/hub"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// wsConn adapts one gorilla connection to the hub's Conn. Frames queue on
// a buffered channel drained by the write pump; a full buffer drops the
// frame rather than blocking the broadcaster.
type wsConn struct {
	id   hub.ConnID
	conn *websocket.Conn
	send chan hub.Frame

	mu     sync.RWMutex
	closed bool
}

func newWSConn(id hub.ConnID, ws *websocket.Conn) *wsConn {
	return &wsConn{
		id:   id,
		conn: ws,
		send: make(chan hub.Frame, 32),
	}
}

func (c *wsConn) ID() hub.ConnID { return c.id }

func (c *wsConn) TrySend(f hub.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
