// Package rms implements [vad.Engine] with a plain root-mean-square loudness
// gate: a frame is speech when its RMS meets or exceeds the threshold.
//
// No frequency-domain analysis or learned model is involved. The session only
// tracks whether the previous frame was speech so it can report start and end
// transitions.
package rms

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/voxa/pkg/audio"
	"github.com/MrWong99/voxa/pkg/provider/vad"
	"github.com/MrWong99/voxa/pkg/types"
)

// ErrSessionClosed is returned by ProcessFrame after Close.
var ErrSessionClosed = errors.New("rms: session closed")

// Engine creates RMS gate sessions. The zero value is ready to use.
type Engine struct{}

var _ vad.Engine = Engine{}

// New returns an RMS engine.
func New() Engine { return Engine{} }

// NewSession implements [vad.Engine].
func (Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("rms: sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.SpeechThreshold < 0 {
		return nil, fmt.Errorf("rms: threshold must be non-negative, got %v", cfg.SpeechThreshold)
	}
	return &Session{threshold: cfg.SpeechThreshold}, nil
}

// Session is a single RMS gate. It is not safe for concurrent ProcessFrame
// calls; Close may be called from any goroutine.
type Session struct {
	threshold float64

	inSpeech bool

	mu     sync.Mutex
	closed bool
}

var _ vad.SessionHandle = (*Session)(nil)

// ProcessFrame implements [vad.SessionHandle].
func (s *Session) ProcessFrame(samples []int16) (types.VADEvent, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return types.VADEvent{}, ErrSessionClosed
	}

	level := audio.RMS(samples)
	loud := level >= s.threshold

	ev := types.VADEvent{Level: level}
	switch {
	case loud && !s.inSpeech:
		ev.Type = types.VADSpeechStart
	case loud:
		ev.Type = types.VADSpeechContinue
	case s.inSpeech:
		ev.Type = types.VADSpeechEnd
	default:
		ev.Type = types.VADSilence
	}
	s.inSpeech = loud
	return ev, nil
}

// Reset implements [vad.SessionHandle].
func (s *Session) Reset() { s.inSpeech = false }

// Close implements [vad.SessionHandle].
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
