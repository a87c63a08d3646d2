package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voxa/pkg/audio"
	"github.com/MrWong99/voxa/pkg/provider/tts"
)

// ErrNoSentences is returned when narration text contains nothing to speak.
var ErrNoSentences = errors.New("export: no sentences to narrate")

// Narration is per-sentence synthesized speech joined into one track.
type Narration struct {
	// Cues holds one subtitle entry per sentence, timed from the WAV headers.
	Cues []Cue

	// WAV is the concatenated mono PCM16 track.
	WAV []byte

	// SampleRate is the rate of WAV. Sentences delivered at another rate are
	// resampled to the rate of the first one.
	SampleRate int

	// Duration is the total track length.
	Duration time.Duration
}

// Narrate splits text into sentences, synthesizes each one as WAV with at
// most concurrency requests in flight, and joins the results in sentence
// order. The first synthesis failure cancels the rest.
func Narrate(ctx context.Context, p tts.Provider, text, voice string, concurrency int) (*Narration, error) {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil, ErrNoSentences
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	type clip struct {
		samples []int16
		rate    int
		dur     time.Duration
	}
	clips := make([]clip, len(sentences))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, s := range sentences {
		g.Go(func() error {
			a, err := p.Synthesize(gctx, tts.Request{Text: s, Voice: voice, Format: tts.FormatWAV})
			if err != nil {
				return fmt.Errorf("export: synthesize sentence %d: %w", i+1, err)
			}
			dur, err := audio.WAVDuration(a.Data)
			if err != nil {
				return fmt.Errorf("export: sentence %d: %w", i+1, err)
			}
			samples, rate, err := a.Samples()
			if err != nil {
				return fmt.Errorf("export: sentence %d: %w", i+1, err)
			}
			clips[i] = clip{samples: samples, rate: rate, dur: dur}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := &Narration{SampleRate: clips[0].rate}
	segments := make([]Segment, len(sentences))
	var track []int16
	for i, c := range clips {
		samples := c.samples
		if c.rate != n.SampleRate {
			samples = audio.ResampleMono16(samples, c.rate, n.SampleRate)
		}
		track = append(track, samples...)
		segments[i] = Segment{Text: sentences[i], Duration: c.dur}
		n.Duration += c.dur
	}
	n.Cues = Cues(segments)

	wav, err := audio.EncodeWAV(track, n.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("export: encode narration: %w", err)
	}
	n.WAV = wav
	return n, nil
}
