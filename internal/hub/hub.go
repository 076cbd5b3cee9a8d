// Package hub is the server-side fan-out relay for live sessions. It keeps
// no room membership and no durable state: every open connection is a
// broadcast target, and a connection that closes simply disappears.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/helegran/liveclass/internal/protocol"
)

type Hub struct {
	mu    sync.RWMutex
	conns map[ConnID]Conn
}

func New() *Hub {
	return &Hub{conns: make(map[ConnID]Conn)}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID()] = c
	log.Info().Str("module", "hub").Str("conn", string(c.ID())).Int("total", len(h.conns)).Msg("connection registered")
}

func (h *Hub) Remove(id ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
	log.Info().Str("module", "hub").Str("conn", string(id)).Int("total", len(h.conns)).Msg("connection removed")
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// HandleFrame interprets one inbound frame from conn. Unrecognized types
// are ignored; malformed payloads are logged and dropped without touching
// the connection.
func (h *Hub) HandleFrame(c Conn, data Frame) {
	kind, err := protocol.Kind(data)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Str("conn", string(c.ID())).Msg("bad frame")
		return
	}

	switch kind {
	case protocol.TypeJoinSession:
		h.handleJoin(c, data)
	case protocol.TypeChatMessage:
		h.handleChat(c, data)
	case protocol.TypeRaiseHand:
		h.handleRaiseHand(c, data)
	default:
		log.Warn().Str("module", "hub").Str("type", kind).Msg("unhandled envelope type")
	}
}

// handleJoin acknowledges the sender only. No membership is recorded.
func (h *Hub) handleJoin(c Conn, data Frame) {
	p, err := protocol.Decode[protocol.JoinSession](data)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("bad join payload")
		return
	}
	log.Info().Str("module", "hub").Str("conn", string(c.ID())).Str("session", p.SessionID).Msg("join")
	h.sendJSON(c, protocol.SessionJoined{
		Type:      protocol.TypeSessionJoined,
		SessionID: p.SessionID,
	})
}

// handleChat stamps the message with the server clock and rebroadcasts it
// to every open connection, the sender included. Clients deduplicate their
// own echo by author.
func (h *Hub) handleChat(c Conn, data Frame) {
	p, err := protocol.Decode[protocol.ChatMessage](data)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("bad chat payload")
		return
	}
	out := protocol.ChatMessage{
		Type:      protocol.TypeChatMessage,
		SessionID: p.SessionID,
		Author:    p.Author,
		Message:   p.Message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	sent := h.Broadcast(out)
	log.Debug().Str("module", "hub").Str("author", p.Author).Int("sent_to", sent).Msg("chat broadcast")
}

func (h *Hub) handleRaiseHand(c Conn, data Frame) {
	p, err := protocol.Decode[protocol.RaiseHand](data)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("bad raise_hand payload")
		return
	}
	sent := h.Broadcast(protocol.HandRaised{
		Type:       protocol.TypeHandRaised,
		UserID:     p.UserID,
		Username:   p.Username,
		HandRaised: p.HandRaised,
	})
	log.Debug().Str("module", "hub").Str("user", p.UserID).Int("sent_to", sent).Msg("hand_raised broadcast")
}

// Broadcast fans v out to every currently-open connection. Delivery is
// best-effort: a closed or saturated connection is skipped, never retried.
// Returns the number of connections the frame was queued for.
func (h *Hub) Broadcast(v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("broadcast marshal")
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for id, c := range h.conns {
		if err := c.TrySend(data); err != nil {
			log.Debug().Err(err).Str("module", "hub").Str("conn", string(id)).Msg("broadcast skip")
			continue
		}
		sent++
	}
	return sent
}

func (h *Hub) sendJSON(c Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "hub").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(data); err != nil {
		log.Debug().Err(err).Str("module", "hub").Str("conn", string(c.ID())).Msg("send skip")
	}
}
