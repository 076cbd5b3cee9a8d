package media

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Stream is the session's exclusive owner of the local track set, at most
// one track per source. Replacing a track stops the old one first so no
// device handle leaks.
type Stream struct {
	mu     sync.Mutex
	tracks map[Source]Track
}

func NewStream() *Stream {
	return &Stream{tracks: make(map[Source]Track)}
}

// Attach adopts t, stopping any previous track of the same source.
func (s *Stream) Attach(t Track) {
	s.mu.Lock()
	prev := s.tracks[t.Source()]
	s.tracks[t.Source()] = t
	s.mu.Unlock()

	if prev != nil {
		prev.Stop()
		log.Debug().Str("module", "media").Str("source", t.Source().String()).Msg("replaced track stopped")
	}
}

func (s *Stream) Track(source Source) (Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tracks[source]
	return t, ok
}

// SetEnabled toggles the capture track for source without releasing it.
func (s *Stream) SetEnabled(source Source, on bool) error {
	s.mu.Lock()
	t, ok := s.tracks[source]
	s.mu.Unlock()
	if !ok {
		return ErrNoTrack
	}
	if t.Stopped() {
		return ErrTrackStopped
	}
	t.SetEnabled(on)
	return nil
}

func (s *Stream) Enabled(source Source) bool {
	s.mu.Lock()
	t, ok := s.tracks[source]
	s.mu.Unlock()
	return ok && t.Enabled()
}

// Detach stops and removes the track for source, if any.
func (s *Stream) Detach(source Source) {
	s.mu.Lock()
	t, ok := s.tracks[source]
	delete(s.tracks, source)
	s.mu.Unlock()
	if ok {
		t.Stop()
	}
}

// StopAll releases every device handle. Called when the participant ends
// the call.
func (s *Stream) StopAll() {
	s.mu.Lock()
	tracks := make([]Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		tracks = append(tracks, t)
	}
	s.tracks = make(map[Source]Track)
	s.mu.Unlock()

	for _, t := range tracks {
		t.Stop()
	}
	log.Info().Str("module", "media").Int("stopped", len(tracks)).Msg("all tracks stopped")
}

func (s *Stream) Tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t)
	}
	return out
}
