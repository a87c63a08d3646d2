// Package mock provides in-memory implementations of [audio.Source] and
// [audio.Sink] for use in unit tests.
//
// Both mocks are safe for concurrent use. They record every call so that
// tests can assert on call counts and arguments, and they expose exported
// fields that the test can set to control behaviour.
//
// Typical usage:
//
//	src := &mock.Source{Frames: frames}
//	res, err := rec.Record(ctx, src)
//	if src.Reads != 20 { ... }
package mock

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/MrWong99/voxa/pkg/audio"
)

// Source is a scripted [audio.Source].
//
// Frames are delivered in order. When Generate is set it is consulted once
// Frames is exhausted, which lets a test drive an unbounded stream. When both
// are exhausted ReadFrame returns EndErr (io.EOF when nil).
type Source struct {
	mu sync.Mutex

	// Frames are returned one per ReadFrame call.
	Frames []audio.Frame

	// Generate produces frame number i (counting from 0 across all reads)
	// once Frames is exhausted. Returning false ends the stream.
	Generate func(i int) (audio.Frame, bool)

	// ReadErr, when set, is returned by the ReadErrAt-th read (0-based).
	ReadErr   error
	ReadErrAt int

	// EndErr is returned after the last frame. Defaults to io.EOF.
	EndErr error

	// Reads counts ReadFrame calls that returned a frame.
	Reads int

	// Closed records whether Close was called.
	Closed bool
}

var _ audio.Source = (*Source)(nil)

// ReadFrame implements [audio.Source].
func (s *Source) ReadFrame(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.Reads
	if s.ReadErr != nil && i == s.ReadErrAt {
		return audio.Frame{}, s.ReadErr
	}
	if i < len(s.Frames) {
		s.Reads++
		return s.Frames[i], nil
	}
	if s.Generate != nil {
		if f, ok := s.Generate(i); ok {
			s.Reads++
			return f, nil
		}
	}
	if s.EndErr != nil {
		return audio.Frame{}, s.EndErr
	}
	return audio.Frame{}, io.EOF
}

// Close implements [audio.Source].
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// PlayCall records the arguments of a single [Sink.Play] invocation.
type PlayCall struct {
	Samples    []int16
	SampleRate int
}

// Sink is a recording [audio.Sink].
type Sink struct {
	mu sync.Mutex

	// PlayErr is returned by Play.
	PlayErr error

	// PlayCalls records every Play invocation.
	PlayCalls []PlayCall

	// Closed records whether Close was called.
	Closed bool
}

var _ audio.Sink = (*Sink)(nil)

// Play implements [audio.Sink].
func (s *Sink) Play(_ context.Context, samples []int16, sampleRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PlayCalls = append(s.PlayCalls, PlayCall{Samples: samples, SampleRate: sampleRate})
	return s.PlayErr
}

// Close implements [audio.Sink].
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// ToneFrame returns a frame of n samples with constant amplitude amp, whose
// RMS is therefore |amp|. Timestamp is index x frame duration.
func ToneFrame(sampleRate, n int, amp int16, index int) audio.Frame {
	samples := make([]int16, n)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = amp
		} else {
			samples[i] = -amp
		}
	}
	d := time.Duration(n) * time.Second / time.Duration(sampleRate)
	return audio.Frame{Samples: samples, SampleRate: sampleRate, Timestamp: time.Duration(index) * d}
}
