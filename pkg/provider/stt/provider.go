// Package stt defines the Provider interface for speech-to-text backends.
//
// The recorder produces one finished utterance at a time, so the interface is
// batch oriented: a complete WAV file goes in and a single [types.Transcript]
// comes out. Backends include the OpenAI transcription API, a whisper.cpp
// server and an in-process whisper.cpp model.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"

	"github.com/MrWong99/voxa/pkg/types"
)

// DefaultLanguage is the recognition language used when a request leaves
// Language empty.
const DefaultLanguage = "ko"

// ErrNoAudio is returned when a request carries no audio bytes.
var ErrNoAudio = errors.New("stt: no audio")

// Request is one transcription job.
type Request struct {
	// Audio is a complete WAV file (16-bit PCM).
	Audio []byte

	// Language is the ISO-639-1 code of the spoken language. Empty selects
	// the provider default.
	Language string

	// Prompt optionally biases recognition towards expected vocabulary.
	Prompt string
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts the audio in req to text. A recording that contains
	// no recognisable speech yields a transcript with empty Text and a nil
	// error.
	Transcribe(ctx context.Context, req Request) (*types.Transcript, error)
}
