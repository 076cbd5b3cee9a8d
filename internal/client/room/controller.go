// Package room maintains a participant's local view of a live session:
// chat log, participant count, hand-raise and media toggles. It turns UI
// intents into outbound envelopes and inbound envelopes into state plus
// transient notifications. The server keeps none of this; every client
// derives its own room from the envelope stream.
package room

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/helegran/liveclass/internal/domain"
	"github.com/helegran/liveclass/internal/media"
	"github.com/helegran/liveclass/internal/protocol"
)

// Phase is the client-perceived session lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseJoining
	PhaseJoined
	PhaseLeaving
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseJoining:
		return "joining"
	case PhaseJoined:
		return "joined"
	case PhaseLeaving:
		return "leaving"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Sender is the slice of the channel manager the controller needs.
type Sender interface {
	Send(v any) bool
}

// Notifier receives transient, toast-style notices. Implementations must
// not block.
type Notifier interface {
	Notify(title, message string)
}

type Controller struct {
	self      domain.User
	sessionID domain.SessionID
	ch        Sender
	notifier  Notifier
	stream    *media.Stream

	mu           sync.Mutex
	phase        Phase
	participants int
	chatLog      []domain.ChatMessage
	handRaised   bool
	localMedia   map[string]bool
	remoteMedia  map[string]map[string]bool
}

func NewController(self domain.User, sessionID domain.SessionID, ch Sender, notifier Notifier, stream *media.Stream) *Controller {
	if stream == nil {
		stream = media.NewStream()
	}
	return &Controller{
		self:         self,
		sessionID:    sessionID,
		ch:           ch,
		notifier:     notifier,
		stream:       stream,
		phase:        PhaseIdle,
		participants: 1,
		localMedia: map[string]bool{
			protocol.MediaAudio:     stream.Enabled(media.Microphone),
			protocol.MediaVideo:     stream.Enabled(media.Camera),
			protocol.MediaScreen:    stream.Enabled(media.Screen),
			protocol.MediaRecording: false,
		},
		remoteMedia: make(map[string]map[string]bool),
	}
}

// Join announces this participant to the hub. The controller proceeds
// optimistically; it never blocks on the session_joined acknowledgement.
func (c *Controller) Join() bool {
	c.mu.Lock()
	switch c.phase {
	case PhaseIdle, PhaseJoining:
		c.phase = PhaseJoining
	default:
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	return c.ch.Send(protocol.JoinSession{
		Type:      protocol.TypeJoinSession,
		SessionID: string(c.sessionID),
		UserID:    string(c.self.ID),
		Username:  c.self.Username,
	})
}

// Leave ends the call: device handles are released first so capture
// indicators turn off, then the hub is told, then the session is terminal.
func (c *Controller) Leave() {
	c.mu.Lock()
	if c.phase == PhaseLeaving || c.phase == PhaseEnded {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseLeaving
	c.mu.Unlock()

	c.stream.StopAll()
	c.ch.Send(protocol.LeaveSession{
		Type:      protocol.TypeLeaveSession,
		SessionID: string(c.sessionID),
		UserID:    string(c.self.ID),
	})

	c.mu.Lock()
	c.phase = PhaseEnded
	c.mu.Unlock()
}

// SendChat appends the message to the local log immediately (optimistic)
// and then transmits it. A failed transmit leaves the local entry in
// place; the hub's echo is deduplicated by author on receipt.
func (c *Controller) SendChat(text string) domain.ChatMessage {
	msg := domain.ChatMessage{
		ID:        strconv.FormatInt(time.Now().UnixNano(), 10),
		Author:    c.self.Username,
		Message:   text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.mu.Lock()
	c.chatLog = append(c.chatLog, msg)
	c.mu.Unlock()

	c.ch.Send(protocol.ChatMessage{
		Type:      protocol.TypeChatMessage,
		SessionID: string(c.sessionID),
		Author:    msg.Author,
		Message:   msg.Message,
	})
	return msg
}

// RaiseHand flips the local hand state and broadcasts it. No roster of
// raised hands exists anywhere; peers only see the transient event.
func (c *Controller) RaiseHand() bool {
	c.mu.Lock()
	c.handRaised = !c.handRaised
	raised := c.handRaised
	c.mu.Unlock()

	c.ch.Send(protocol.RaiseHand{
		Type:       protocol.TypeRaiseHand,
		UserID:     string(c.self.ID),
		Username:   c.self.Username,
		HandRaised: raised,
	})
	return raised
}

// ToggleMute flips the local microphone track and notifies peers. The two
// effects are independent: a missing track does not stop the broadcast.
func (c *Controller) ToggleMute() bool {
	return c.toggleMedia(media.Microphone, protocol.MediaAudio)
}

// ToggleVideo flips the local camera track and notifies peers.
func (c *Controller) ToggleVideo() bool {
	return c.toggleMedia(media.Camera, protocol.MediaVideo)
}

// ToggleRecording flips the client-local recording flag and notifies
// peers. Nothing is verified or stored server-side.
func (c *Controller) ToggleRecording() bool {
	return c.toggleMedia(0, protocol.MediaRecording)
}

func (c *Controller) toggleMedia(source media.Source, mediaType string) bool {
	c.mu.Lock()
	next := !c.localMedia[mediaType]
	c.localMedia[mediaType] = next
	c.mu.Unlock()

	if source != 0 {
		if err := c.stream.SetEnabled(source, next); err != nil {
			log.Warn().Err(err).Str("module", "room").Str("media", mediaType).Msg("local track toggle failed")
			c.notify("Media", "could not switch "+mediaType)
		}
	}

	c.ch.Send(protocol.MediaStateChange{
		Type:      protocol.TypeMediaStateChange,
		UserID:    string(c.self.ID),
		MediaType: mediaType,
		Enabled:   next,
	})
	return next
}

// StartScreenShare acquires a screen track, replacing (and stopping) any
// previous one, then notifies peers. Permission denial leaves the session
// running in degraded mode.
func (c *Controller) StartScreenShare(ctx context.Context, dev media.Device) error {
	track, err := dev.AcquireScreen(ctx)
	if err != nil {
		log.Warn().Err(err).Str("module", "room").Msg("screen acquisition failed")
		c.notify("Screen share", "screen capture unavailable")
		return err
	}
	c.stream.Attach(track)

	c.mu.Lock()
	c.localMedia[protocol.MediaScreen] = true
	c.mu.Unlock()

	c.ch.Send(protocol.MediaStateChange{
		Type:      protocol.TypeMediaStateChange,
		UserID:    string(c.self.ID),
		MediaType: protocol.MediaScreen,
		Enabled:   true,
	})
	return nil
}

// StopScreenShare releases the screen track and notifies peers.
func (c *Controller) StopScreenShare() {
	c.stream.Detach(media.Screen)

	c.mu.Lock()
	c.localMedia[protocol.MediaScreen] = false
	c.mu.Unlock()

	c.ch.Send(protocol.MediaStateChange{
		Type:      protocol.TypeMediaStateChange,
		UserID:    string(c.self.ID),
		MediaType: protocol.MediaScreen,
		Enabled:   false,
	})
}

// HandleMessage consumes one inbound frame from the channel manager.
// Malformed frames are logged and dropped; the session continues.
func (c *Controller) HandleMessage(data []byte) {
	kind, err := protocol.Kind(data)
	if err != nil {
		log.Error().Err(err).Str("module", "room").Msg("bad inbound frame")
		return
	}

	switch kind {
	case protocol.TypeChatMessage:
		c.onChat(data)
	case protocol.TypeSessionJoined:
		c.onSessionJoined(data)
	case protocol.TypeHandRaised:
		c.onHandRaised(data)
	case protocol.TypeParticipantJoined:
		c.onParticipantJoined(data)
	case protocol.TypeParticipantLeft:
		c.onParticipantLeft(data)
	case protocol.TypeParticipantMediaChange:
		c.onParticipantMediaChange(data)
	default:
		log.Debug().Str("module", "room").Str("type", kind).Msg("ignored envelope")
	}
}

// onChat deduplicates this client's own echo by author display name (the
// optimistic append already happened on send) before appending.
func (c *Controller) onChat(data []byte) {
	p, err := protocol.Decode[protocol.ChatMessage](data)
	if err != nil {
		log.Error().Err(err).Str("module", "room").Msg("bad chat payload")
		return
	}
	if p.Author == c.self.Username {
		return
	}
	ts := p.Timestamp
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}
	c.mu.Lock()
	c.chatLog = append(c.chatLog, domain.ChatMessage{
		ID:        strconv.FormatInt(time.Now().UnixNano(), 10),
		Author:    p.Author,
		Message:   p.Message,
		Timestamp: ts,
	})
	c.mu.Unlock()
}

func (c *Controller) onSessionJoined(data []byte) {
	p, err := protocol.Decode[protocol.SessionJoined](data)
	if err != nil {
		log.Error().Err(err).Str("module", "room").Msg("bad session_joined payload")
		return
	}
	c.mu.Lock()
	joining := c.phase == PhaseJoining || c.phase == PhaseIdle
	if joining {
		c.phase = PhaseJoined
	}
	c.mu.Unlock()
	if joining {
		log.Info().Str("module", "room").Str("session", p.SessionID).Msg("session joined")
	}
}

func (c *Controller) onHandRaised(data []byte) {
	p, err := protocol.Decode[protocol.HandRaised](data)
	if err != nil {
		log.Error().Err(err).Str("module", "room").Msg("bad hand_raised payload")
		return
	}
	if p.UserID == string(c.self.ID) {
		return
	}
	if p.HandRaised {
		c.notify("Hand raised", p.Username+" raised their hand")
	}
}

func (c *Controller) onParticipantJoined(data []byte) {
	p, err := protocol.Decode[protocol.ParticipantJoined](data)
	if err != nil {
		log.Error().Err(err).Str("module", "room").Msg("bad participant_joined payload")
		return
	}
	c.mu.Lock()
	c.participants++
	c.mu.Unlock()
	c.notify("Participant joined", p.Username+" joined the session")
}

func (c *Controller) onParticipantLeft(data []byte) {
	p, err := protocol.Decode[protocol.ParticipantLeft](data)
	if err != nil {
		log.Error().Err(err).Str("module", "room").Msg("bad participant_left payload")
		return
	}
	c.mu.Lock()
	if c.participants > 1 {
		c.participants--
	}
	c.mu.Unlock()
	c.notify("Participant left", p.Username+" left the session")
}

func (c *Controller) onParticipantMediaChange(data []byte) {
	p, err := protocol.Decode[protocol.ParticipantMediaChange](data)
	if err != nil {
		log.Error().Err(err).Str("module", "room").Msg("bad participant_media_change payload")
		return
	}
	c.mu.Lock()
	if _, ok := c.remoteMedia[p.UserID]; !ok {
		c.remoteMedia[p.UserID] = make(map[string]bool)
	}
	c.remoteMedia[p.UserID][p.MediaType] = p.Enabled
	c.mu.Unlock()
}

func (c *Controller) notify(title, message string) {
	if c.notifier != nil {
		c.notifier.Notify(title, message)
	}
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Participants() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participants
}

func (c *Controller) HandRaised() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handRaised
}

// ChatLog returns a copy of the append-only chat log in arrival order.
func (c *Controller) ChatLog() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatMessage, len(c.chatLog))
	copy(out, c.chatLog)
	return out
}

func (c *Controller) MediaEnabled(mediaType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localMedia[mediaType]
}

// RemoteMedia reports the last broadcast media state for a peer.
func (c *Controller) RemoteMedia(userID string) map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]bool, len(c.remoteMedia[userID]))
	for k, v := range c.remoteMedia[userID] {
		out[k] = v
	}
	return out
}
