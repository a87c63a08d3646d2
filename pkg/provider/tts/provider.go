// Package tts defines the Provider interface for text-to-speech backends.
//
// A provider turns one piece of text into one encoded audio file. Playback
// asks for WAV so the samples can go straight to the speaker; exports ask for
// MP3 and write the bytes unchanged.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/voxa/pkg/audio"
)

// Audio container formats.
const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"
)

var (
	// ErrEmptyText is returned when a request has no text to speak.
	ErrEmptyText = errors.New("tts: empty text")

	// ErrUnsupportedFormat is returned when a provider cannot produce the
	// requested container format.
	ErrUnsupportedFormat = errors.New("tts: unsupported format")
)

// Request is one synthesis job.
type Request struct {
	// Text is the content to speak.
	Text string

	// Voice is the provider-specific voice identifier. Empty selects the
	// provider default.
	Voice string

	// Format is FormatMP3 or FormatWAV. Empty selects FormatMP3.
	Format string

	// Speed scales the speaking rate (1.0 = normal). Zero leaves the default.
	Speed float64
}

// FormatOrDefault returns r.Format, or FormatMP3 when unset.
func (r Request) FormatOrDefault() string {
	if r.Format == "" {
		return FormatMP3
	}
	return r.Format
}

// Audio is synthesized speech.
type Audio struct {
	// Data is the encoded file content.
	Data []byte

	// Format is the container of Data.
	Format string

	// SampleRate is the PCM rate for WAV output. Zero when unknown.
	SampleRate int
}

// Samples decodes WAV audio to mono samples for playback.
func (a *Audio) Samples() ([]int16, int, error) {
	if a.Format != FormatWAV {
		return nil, 0, fmt.Errorf("%w: cannot decode %q for playback", ErrUnsupportedFormat, a.Format)
	}
	samples, info, err := audio.DecodeWAV(a.Data)
	if err != nil {
		return nil, 0, fmt.Errorf("tts: %w", err)
	}
	return samples, info.SampleRate, nil
}

// Voice describes one voice offered by a provider.
type Voice struct {
	ID       string
	Name     string
	Provider string

	// Metadata holds provider-specific attributes (gender, accent, ...).
	Metadata map[string]string
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts req.Text to audio in the requested format.
	Synthesize(ctx context.Context, req Request) (*Audio, error)
}

// VoiceLister is implemented by providers that can enumerate their voices.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}
