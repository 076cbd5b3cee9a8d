// Package media models the participant's local capture state: which
// tracks exist, whether they are enabled, and when their device handles
// are released. Actual media bytes travel over the browser/peer transport,
// not through this layer.
package media

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// Source identifies where a local track's samples come from.
type Source int

const (
	Microphone Source = iota + 1
	Camera
	Screen
)

func (s Source) String() string {
	switch s {
	case Microphone:
		return "microphone"
	case Camera:
		return "camera"
	case Screen:
		return "screen"
	default:
		return "unknown"
	}
}

var (
	ErrPermissionDenied = errors.New("media: permission denied")
	ErrNoTrack          = errors.New("media: no such track")
	ErrTrackStopped     = errors.New("media: track stopped")
)

// Track is one local capture track. Disabling keeps the device handle;
// Stop releases it for good (camera/mic indicators must turn off).
type Track interface {
	ID() string
	Kind() webrtc.RTPCodecType
	Source() Source
	Enabled() bool
	SetEnabled(bool)
	Stopped() bool
	Stop()
	// Local exposes the underlying pion track for publishing.
	Local() webrtc.TrackLocal
}

type sampleTrack struct {
	local  *webrtc.TrackLocalStaticSample
	source Source

	mu      sync.Mutex
	enabled bool
	stopped bool
}

func codecFor(source Source) webrtc.RTPCodecCapability {
	if source == Microphone {
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}
	}
	return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}
}

// NewSampleTrack creates an enabled local track backed by a pion static
// sample track.
func NewSampleTrack(source Source) (Track, error) {
	local, err := webrtc.NewTrackLocalStaticSample(codecFor(source), uuid.NewString(), source.String())
	if err != nil {
		return nil, err
	}
	return &sampleTrack{local: local, source: source, enabled: true}, nil
}

func (t *sampleTrack) ID() string                { return t.local.ID() }
func (t *sampleTrack) Kind() webrtc.RTPCodecType { return t.local.Kind() }
func (t *sampleTrack) Source() Source            { return t.source }
func (t *sampleTrack) Local() webrtc.TrackLocal  { return t.local }

func (t *sampleTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && !t.stopped
}

func (t *sampleTrack) SetEnabled(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.enabled = on
}

func (t *sampleTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *sampleTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.enabled = false
}
