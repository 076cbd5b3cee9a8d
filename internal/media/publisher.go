package media

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

func DefaultRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// Publisher attaches local tracks to a peer connection so the peer
// transport can carry them. Signaling and the media bytes themselves are
// outside this layer.
type Publisher struct {
	pc *webrtc.PeerConnection

	mu     sync.Mutex
	closed bool
}

func NewPublisher(cfg webrtc.Configuration) (*Publisher, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "media").Str("ice_state", s.String()).Msg("ICE state")
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "media").Str("peer_state", s.String()).Msg("peer state")
	})
	return &Publisher{pc: pc}, nil
}

// Publish adds every track of the stream to the peer connection.
func (p *Publisher) Publish(s *Stream) error {
	for _, t := range s.Tracks() {
		if _, err := p.pc.AddTrack(t.Local()); err != nil {
			return err
		}
		log.Debug().Str("module", "media").Str("track", t.ID()).Str("source", t.Source().String()).Msg("track published")
	}
	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	if err := p.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "media").Msg("peer connection close")
	}
}
