// Package vad defines the Engine interface for voice activity detection.
//
// A VAD engine classifies each audio frame as speech or silence and surfaces
// that as a stateful, per-stream session. The recorder consumes sessions to
// decide when to keep frames and when the silence timer runs; the timer
// itself lives in the recorder, not in the engine.
//
// VAD is synchronous: ProcessFrame returns immediately with a result. A single
// SessionHandle is owned by one goroutine.
package vad

import "github.com/MrWong99/voxa/pkg/types"

// Config holds the parameters for a VAD session.
type Config struct {
	// SampleRate is the audio sample rate in Hz of the frames passed to
	// ProcessFrame.
	SampleRate int

	// FrameSizeMs is the nominal duration of each frame in milliseconds.
	// Engines may use it to size internal buffers; the rms engine accepts
	// frames of any length.
	FrameSizeMs int

	// SpeechThreshold is the level at or above which a frame is speech, in the
	// engine's native scale. For the rms engine this is the RMS of int16
	// samples (300 is a typical quiet-room value).
	SpeechThreshold float64
}

// SessionHandle is an active VAD session for a single audio stream.
type SessionHandle interface {
	// ProcessFrame classifies one frame of mono samples.
	ProcessFrame(samples []int16) (types.VADEvent, error)

	// Reset clears detection state without closing the session.
	Reset()

	// Close releases the session. Calling Close more than once is safe.
	Close() error
}

// Engine is the factory for VAD sessions. Implementations must be safe for
// concurrent calls to NewSession.
type Engine interface {
	NewSession(cfg Config) (SessionHandle, error)
}
