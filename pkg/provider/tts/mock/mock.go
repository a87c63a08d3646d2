// Package mock provides a test double for the tts.Provider interface.
//
//	p := &mock.Provider{}                      // silent WAV / fake MP3 per request
//	p := &mock.Provider{Err: errors.New("x")}  // every call fails
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/voxa/pkg/audio"
	"github.com/MrWong99/voxa/pkg/provider/tts"
)

// SampleRate is the rate of generated WAV audio.
const SampleRate = 16000

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	Ctx context.Context
	Req tts.Request
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Audio, if non-nil, is returned (copied) by every successful call.
	Audio *tts.Audio

	// PerRune is the duration of generated WAV audio per rune of text.
	// Defaults to 10 ms. Ignored when Audio is set.
	PerRune time.Duration

	// Err, if non-nil, is returned by every call.
	Err error

	// Voices is returned by ListVoices.
	Voices []tts.Voice

	// Calls records every invocation of Synthesize in order.
	Calls []SynthesizeCall
}

var (
	_ tts.Provider    = (*Provider)(nil)
	_ tts.VoiceLister = (*Provider)(nil)
)

// Synthesize implements tts.Provider. Without a preset Audio it returns a
// silent WAV whose length is proportional to the text, or the text itself as
// fake MP3 bytes.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, SynthesizeCall{Ctx: ctx, Req: req})
	if p.Err != nil {
		return nil, p.Err
	}
	if req.Text == "" {
		return nil, tts.ErrEmptyText
	}
	if p.Audio != nil {
		a := *p.Audio
		return &a, nil
	}

	if req.FormatOrDefault() == tts.FormatMP3 {
		return &tts.Audio{Data: []byte("mp3:" + req.Text), Format: tts.FormatMP3}, nil
	}
	per := p.PerRune
	if per <= 0 {
		per = 10 * time.Millisecond
	}
	n := audio.FrameSamples(SampleRate, per*time.Duration(len([]rune(req.Text))))
	wav, err := audio.EncodeWAV(make([]int16, max(n, 1)), SampleRate)
	if err != nil {
		return nil, err
	}
	return &tts.Audio{Data: wav, Format: tts.FormatWAV, SampleRate: SampleRate}, nil
}

// ListVoices implements tts.VoiceLister.
func (p *Provider) ListVoices(context.Context) ([]tts.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Voices, p.Err
}

// CallCount returns the number of Synthesize invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
