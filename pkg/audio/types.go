// Package audio defines the frame type, device interfaces and PCM helpers
// shared by the recorder, the providers and the exporters.
//
// Audio is always signed 16-bit PCM. Capture is mono; decoded playback audio
// may be stereo and is down-mixed with [StereoToMono] before it reaches a
// [Sink].
package audio

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDeviceOpen is returned when an input or output device cannot be opened
	// (missing device, permission denied, unsupported format).
	ErrDeviceOpen = errors.New("audio: cannot open device")

	// ErrEmptyAudio is returned when asked to encode or play zero samples.
	ErrEmptyAudio = errors.New("audio: no samples")
)

// Frame is one fixed-duration block of mono samples read from a [Source].
type Frame struct {
	// Samples holds the signed 16-bit mono samples of this frame.
	Samples []int16

	// SampleRate in Hz (16000 for speech capture).
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the playback length of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// Source delivers frames from an input device.
//
// ReadFrame blocks until a full frame is available, the context is cancelled,
// or the device fails. A Source is owned by a single caller and is not safe
// for concurrent use.
type Source interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Close() error
}

// Sink plays mono PCM on an output device. Play blocks until playback has
// finished or ctx is cancelled.
type Sink interface {
	Play(ctx context.Context, samples []int16, sampleRate int) error
	Close() error
}

// FrameSamples returns the number of samples in a frame of duration d at
// sampleRate.
func FrameSamples(sampleRate int, d time.Duration) int {
	return int(int64(sampleRate) * int64(d) / int64(time.Second))
}
