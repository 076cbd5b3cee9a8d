// Package client implements the participant end of the live-session
// channel: one websocket at a time, observable connection state, and a
// bounded automatic reconnect policy. Messages sent while the channel is
// not open are dropped, never queued.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// State is the channel's lifecycle position.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	StateDisconnected // caller-initiated, terminal
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

var ErrDisconnected = errors.New("channel manually disconnected")

const (
	DefaultMaxAttempts = 5
	DefaultInterval    = 3 * time.Second
)

type Options struct {
	URL string

	// ReconnectDisabled turns off the automatic reconnect policy.
	ReconnectDisabled bool
	// MaxAttempts bounds consecutive failed reconnects (default 5).
	MaxAttempts int
	// Interval is the fixed delay before each reconnect (default 3s).
	Interval time.Duration
	// OnMessage observes every inbound frame in transport arrival order.
	OnMessage func([]byte)
}

// Channel owns exactly one transport connection at a time.
type Channel struct {
	opts Options

	mu        sync.Mutex
	ctx       context.Context
	state     State
	conn      *websocket.Conn
	attempts  int
	retry     *time.Timer
	lastMsg   []byte
	manual    bool
	onMessage func([]byte)

	writeMu sync.Mutex
}

func New(opts Options) *Channel {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Channel{opts: opts, state: StateClosed, onMessage: opts.OnMessage}
}

// OnMessage replaces the inbound frame observer. Frames received before an
// observer is set are reflected only in LastMessage.
func (ch *Channel) OnMessage(fn func([]byte)) {
	ch.mu.Lock()
	ch.onMessage = fn
	ch.mu.Unlock()
}

// Connect performs the initial dial. A failed dial still arms the
// reconnect policy, so the returned error is informational.
func (ch *Channel) Connect(ctx context.Context) error {
	ch.mu.Lock()
	ch.ctx = ctx
	ch.mu.Unlock()
	return ch.connect()
}

func (ch *Channel) connect() error {
	ch.mu.Lock()
	if ch.manual {
		ch.mu.Unlock()
		return ErrDisconnected
	}
	ch.state = StateConnecting
	ctx := ch.ctx
	ch.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, ch.opts.URL, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "client").Str("url", ch.opts.URL).Msg("dial failed")
		ch.mu.Lock()
		ch.state = StateClosed
		ch.mu.Unlock()
		ch.maybeReconnect()
		return err
	}

	ch.mu.Lock()
	if ch.manual {
		ch.mu.Unlock()
		_ = conn.Close()
		return ErrDisconnected
	}
	ch.conn = conn
	ch.state = StateOpen
	ch.attempts = 0
	ch.mu.Unlock()

	log.Info().Str("module", "client").Str("url", ch.opts.URL).Msg("channel open")
	go ch.readLoop(conn)
	return nil
}

func (ch *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			ch.onClose(conn, err)
			return
		}
		ch.mu.Lock()
		ch.lastMsg = data
		observer := ch.onMessage
		ch.mu.Unlock()
		if observer != nil {
			observer(data)
		}
	}
}

func (ch *Channel) onClose(conn *websocket.Conn, err error) {
	ch.mu.Lock()
	if ch.conn != conn {
		// Stale reader from a connection already replaced or torn down.
		ch.mu.Unlock()
		return
	}
	ch.conn = nil
	if ch.manual {
		ch.mu.Unlock()
		return
	}
	ch.state = StateClosed
	ch.mu.Unlock()

	log.Warn().Err(err).Str("module", "client").Msg("channel closed")
	ch.maybeReconnect()
}

// maybeReconnect schedules one reconnect if the policy allows it: enabled,
// not manually disconnected, and retry budget remaining.
func (ch *Channel) maybeReconnect() {
	if ch.opts.ReconnectDisabled {
		return
	}
	ch.mu.Lock()
	if ch.manual || ch.retry != nil {
		ch.mu.Unlock()
		return
	}
	if ch.attempts >= ch.opts.MaxAttempts {
		ch.mu.Unlock()
		log.Warn().Int("attempts", ch.opts.MaxAttempts).Str("module", "client").Msg("reconnect budget exhausted")
		return
	}
	ch.attempts++
	attempt := ch.attempts
	ch.retry = time.AfterFunc(ch.opts.Interval, ch.redial)
	ch.mu.Unlock()

	log.Info().Int("attempt", attempt).Dur("in", ch.opts.Interval).Str("module", "client").Msg("reconnect scheduled")
}

func (ch *Channel) redial() {
	ch.mu.Lock()
	ch.retry = nil
	if ch.manual {
		ch.mu.Unlock()
		return
	}
	ch.mu.Unlock()
	_ = ch.connect()
}

// Disconnect closes the transport and suppresses all future automatic
// reconnection, including any already scheduled.
func (ch *Channel) Disconnect() {
	ch.mu.Lock()
	ch.manual = true
	ch.state = StateDisconnected
	if ch.retry != nil {
		ch.retry.Stop()
		ch.retry = nil
	}
	conn := ch.conn
	ch.conn = nil
	ch.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	log.Info().Str("module", "client").Msg("channel disconnected")
}

// Send marshals v and writes it as one text frame. Returns false without
// writing when the channel is not open.
func (ch *Channel) Send(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "client").Msg("send marshal")
		return false
	}
	return ch.SendRaw(string(data))
}

// SendRaw writes one preserialized text frame, same open-state contract as
// Send.
func (ch *Channel) SendRaw(s string) bool {
	ch.mu.Lock()
	conn := ch.conn
	open := ch.state == StateOpen
	ch.mu.Unlock()
	if !open || conn == nil {
		log.Debug().Str("module", "client").Msg("send while not open, dropped")
		return false
	}

	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(s)); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("send write error")
		return false
	}
	return true
}

func (ch *Channel) IsConnected() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state == StateOpen
}

func (ch *Channel) State() State {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// Attempts reports the consecutive reconnects scheduled since the last
// successful open.
func (ch *Channel) Attempts() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.attempts
}

// LastMessage returns the most recently received frame, if any.
func (ch *Channel) LastMessage() []byte {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.lastMsg
}
