// Package portaudio implements [audio.Source] and [audio.Sink] on the system's
// default input and output devices through PortAudio.
//
// Both devices use blocking stream I/O with one channel of int16 samples.
// Each device initialises PortAudio on open and terminates it on Close;
// PortAudio reference-counts these calls so capture and playback may be open
// at the same time.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pa "github.com/gordonklaus/portaudio"

	"github.com/MrWong99/voxa/pkg/audio"
)

// Capture reads fixed-size frames from the default input device.
type Capture struct {
	stream     *pa.Stream
	buf        []int16
	sampleRate int
	read       int64

	closeOnce sync.Once
	closeErr  error
}

var _ audio.Source = (*Capture)(nil)

// OpenCapture opens the default microphone at sampleRate and starts a stream
// that delivers frameDuration-sized frames. Failures wrap [audio.ErrDeviceOpen].
func OpenCapture(sampleRate int, frameDuration time.Duration) (*Capture, error) {
	n := audio.FrameSamples(sampleRate, frameDuration)
	if n <= 0 {
		return nil, fmt.Errorf("portaudio: frame of %v at %d Hz holds no samples", frameDuration, sampleRate)
	}
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", audio.ErrDeviceOpen, err)
	}

	buf := make([]int16, n)
	stream, err := pa.OpenDefaultStream(1, 0, float64(sampleRate), n, buf)
	if err != nil {
		_ = pa.Terminate()
		return nil, fmt.Errorf("%w: open input stream: %v", audio.ErrDeviceOpen, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = pa.Terminate()
		return nil, fmt.Errorf("%w: start input stream: %v", audio.ErrDeviceOpen, err)
	}

	slog.Debug("portaudio: capture started", "sample_rate", sampleRate, "frame_samples", n)
	return &Capture{stream: stream, buf: buf, sampleRate: sampleRate}, nil
}

// ReadFrame implements [audio.Source]. It blocks for one frame duration.
// Input overflows are logged and the (partially stale) frame is delivered.
func (c *Capture) ReadFrame(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	if err := c.stream.Read(); err != nil {
		if !errors.Is(err, pa.InputOverflowed) {
			return audio.Frame{}, fmt.Errorf("portaudio: read: %w", err)
		}
		slog.Warn("portaudio: input overflowed")
	}

	samples := make([]int16, len(c.buf))
	copy(samples, c.buf)
	ts := time.Duration(c.read) * time.Second / time.Duration(c.sampleRate)
	c.read += int64(len(samples))

	return audio.Frame{Samples: samples, SampleRate: c.sampleRate, Timestamp: ts}, nil
}

// Close stops the stream and releases PortAudio. Safe to call more than once.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = errors.Join(c.stream.Stop(), c.stream.Close(), pa.Terminate())
	})
	return c.closeErr
}

// Playback writes mono samples to the default output device.
type Playback struct {
	mu         sync.Mutex
	stream     *pa.Stream
	buf        []int16
	sampleRate int

	closeOnce sync.Once
	closeErr  error
}

var _ audio.Sink = (*Playback)(nil)

// OpenPlayback opens the default speaker at sampleRate. Audio at other rates
// is resampled before it is written. Failures wrap [audio.ErrDeviceOpen].
func OpenPlayback(sampleRate int) (*Playback, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("portaudio: sample rate must be positive, got %d", sampleRate)
	}
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", audio.ErrDeviceOpen, err)
	}

	buf := make([]int16, sampleRate/50) // 20 ms
	stream, err := pa.OpenDefaultStream(0, 1, float64(sampleRate), len(buf), buf)
	if err != nil {
		_ = pa.Terminate()
		return nil, fmt.Errorf("%w: open output stream: %v", audio.ErrDeviceOpen, err)
	}
	return &Playback{stream: stream, buf: buf, sampleRate: sampleRate}, nil
}

// Play implements [audio.Sink]. It blocks until every sample has been handed
// to the device or ctx is cancelled.
func (p *Playback) Play(ctx context.Context, samples []int16, sampleRate int) error {
	if len(samples) == 0 {
		return audio.ErrEmptyAudio
	}
	samples = audio.ResampleMono16(samples, sampleRate, p.sampleRate)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start output stream: %w", err)
	}
	defer func() {
		if err := p.stream.Stop(); err != nil {
			slog.Warn("portaudio: stop output stream", "error", err)
		}
	}()

	for off := 0; off < len(samples); off += len(p.buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(p.buf, samples[off:])
		clear(p.buf[n:])
		if err := p.stream.Write(); err != nil && !errors.Is(err, pa.OutputUnderflowed) {
			return fmt.Errorf("portaudio: write: %w", err)
		}
	}
	return nil
}

// Close releases the output stream and PortAudio. Safe to call more than once.
func (p *Playback) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = errors.Join(p.stream.Close(), pa.Terminate())
	})
	return p.closeErr
}
