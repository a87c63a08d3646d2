// Package recorder captures one utterance from an [audio.Source] and stops by
// itself once the speaker has been quiet long enough.
//
// Every frame is classified by a [vad.SessionHandle] (the RMS gate by
// default). Two policies decide which frames are kept and when the silence
// timer may run:
//
//   - [GracePeriod]: recording starts immediately and keeps every frame.
//     Loudness is ignored for the first Config.GracePeriod so device start-up
//     noise cannot end the take; afterwards Config.SilenceDuration of
//     continuous quiet stops it.
//   - [SpeechTriggered]: frames are discarded until the first loud frame.
//     From then on every frame is kept and Config.SilenceDuration of
//     continuous quiet stops the take.
//
// Time is measured on the frame clock (sum of frame durations), not the wall
// clock, so a given frame sequence always produces the same decision.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MrWong99/voxa/pkg/audio"
	"github.com/MrWong99/voxa/pkg/provider/vad"
	"github.com/MrWong99/voxa/pkg/provider/vad/rms"
)

// ErrNoSpeech is returned with an empty [Result] when a speech-triggered
// recording ended before any loud frame arrived. It is an expected outcome,
// not a failure: the caller should simply listen again.
var ErrNoSpeech = errors.New("recorder: no speech detected")

// ErrSampleRateMismatch is returned when a frame reports a sample rate other
// than Config.SampleRate. Frames with SampleRate 0 are taken as configured.
var ErrSampleRateMismatch = errors.New("recorder: frame sample rate does not match config")

// Policy selects how the recorder gates frames.
type Policy int

const (
	// GracePeriod keeps every frame from t=0 and ignores loudness during the
	// initial grace window.
	GracePeriod Policy = iota

	// SpeechTriggered discards frames until the first loud frame.
	SpeechTriggered
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case GracePeriod:
		return "grace_period"
	case SpeechTriggered:
		return "speech_triggered"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a configuration name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "grace_period", "grace":
		return GracePeriod, nil
	case "speech_triggered", "speech", "":
		return SpeechTriggered, nil
	default:
		return 0, fmt.Errorf("recorder: unknown policy %q", s)
	}
}

// State is the recorder's position in its lifecycle.
type State int

const (
	WaitingForSpeech State = iota
	Recording
	Stopped
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case WaitingForSpeech:
		return "WAITING_FOR_SPEECH"
	case Recording:
		return "RECORDING"
	case Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// StopReason tells why a recording ended.
type StopReason int

const (
	// StopSilence means the silence rule fired.
	StopSilence StopReason = iota

	// StopMaxDuration means Config.MaxDuration was reached.
	StopMaxDuration

	// StopEndOfStream means the source reported io.EOF.
	StopEndOfStream
)

// String returns the reason name used in logs and metrics.
func (r StopReason) String() string {
	switch r {
	case StopSilence:
		return "silence"
	case StopMaxDuration:
		return "max_duration"
	case StopEndOfStream:
		return "end_of_stream"
	default:
		return "unknown"
	}
}

// Config holds the recorder parameters.
type Config struct {
	// Policy selects grace-period or speech-triggered gating.
	Policy Policy

	// SampleRate of the source in Hz.
	SampleRate int

	// FrameDuration is the nominal analysis window. Frames that carry no
	// sample rate are assumed to last this long.
	FrameDuration time.Duration

	// Threshold is the RMS level at or above which a frame counts as loud.
	Threshold float64

	// SilenceDuration of continuous quiet that ends the recording.
	SilenceDuration time.Duration

	// GracePeriod during which loudness is ignored. GracePeriod policy only.
	GracePeriod time.Duration

	// MaxDuration caps the total audio consumed, kept or not. Zero disables
	// the cap.
	MaxDuration time.Duration
}

// DefaultConfig returns the tuned defaults for p: threshold 300, 1.5 s
// silence and 0.5 s grace for [GracePeriod]; threshold 150 and 1.2 s silence
// for [SpeechTriggered]. Both use 16 kHz, 100 ms frames and a 30 s cap.
func DefaultConfig(p Policy) Config {
	cfg := Config{
		Policy:        p,
		SampleRate:    16000,
		FrameDuration: 100 * time.Millisecond,
		MaxDuration:   30 * time.Second,
	}
	switch p {
	case GracePeriod:
		cfg.Threshold = 300
		cfg.SilenceDuration = 1500 * time.Millisecond
		cfg.GracePeriod = 500 * time.Millisecond
	default:
		cfg.Threshold = 150
		cfg.SilenceDuration = 1200 * time.Millisecond
	}
	return cfg
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Policy != GracePeriod && c.Policy != SpeechTriggered {
		errs = append(errs, fmt.Errorf("recorder: unknown policy %d", c.Policy))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("recorder: sample rate must be positive, got %d", c.SampleRate))
	}
	if c.FrameDuration <= 0 {
		errs = append(errs, fmt.Errorf("recorder: frame duration must be positive, got %v", c.FrameDuration))
	}
	if c.Threshold < 0 {
		errs = append(errs, fmt.Errorf("recorder: threshold must be non-negative, got %v", c.Threshold))
	}
	if c.SilenceDuration <= 0 {
		errs = append(errs, fmt.Errorf("recorder: silence duration must be positive, got %v", c.SilenceDuration))
	}
	if c.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("recorder: grace period must be non-negative, got %v", c.GracePeriod))
	}
	if c.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("recorder: max duration must be non-negative, got %v", c.MaxDuration))
	}
	return errors.Join(errs...)
}

// Result is one finished recording.
type Result struct {
	// Samples are the kept mono samples in capture order.
	Samples []int16

	// SampleRate of Samples in Hz.
	SampleRate int

	// Frames is the number of frames kept.
	Frames int

	// Consumed is the number of frames read from the source, kept or not.
	Consumed int

	// SpeechDetected reports whether any frame counted as loud.
	SpeechDetected bool

	// StopReason tells why the recording ended.
	StopReason StopReason
}

// Duration returns the playback length of the kept samples.
func (r *Result) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(r.Samples)) * time.Second / time.Duration(r.SampleRate)
}

// WAV encodes the kept samples as a mono PCM WAV file. An empty result
// yields [audio.ErrEmptyAudio].
func (r *Result) WAV() ([]byte, error) {
	return audio.EncodeWAV(r.Samples, r.SampleRate)
}

// Recorder runs silence-terminated recordings. A Recorder holds no
// per-recording state and may be reused; Record itself is not meant to be
// called concurrently on the same source.
type Recorder struct {
	cfg     Config
	engine  vad.Engine
	onState func(State)
}

// Option is a functional option for configuring a Recorder.
type Option func(*Recorder)

// WithEngine replaces the default RMS gate.
func WithEngine(e vad.Engine) Option {
	return func(r *Recorder) { r.engine = e }
}

// WithStateHook registers fn to be called on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(r *Recorder) { r.onState = fn }
}

// New validates cfg and returns a Recorder.
func New(cfg Config, opts ...Option) (*Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Recorder{cfg: cfg, engine: rms.New()}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Config returns the recorder's configuration.
func (r *Recorder) Config() Config { return r.cfg }

// Record reads frames from src until the policy's stop condition fires.
//
// Errors:
//   - a read or classification error aborts the take and no samples are
//     returned; the caller must not write a partial file.
//   - a frame at a different sample rate aborts the take with
//     [ErrSampleRateMismatch].
//   - ctx cancellation returns the wrapped context error.
//   - a speech-triggered take that ends (cap or end of stream) before any
//     speech returns an empty Result together with [ErrNoSpeech].
func (r *Recorder) Record(ctx context.Context, src audio.Source) (*Result, error) {
	sess, err := r.engine.NewSession(vad.Config{
		SampleRate:      r.cfg.SampleRate,
		FrameSizeMs:     int(r.cfg.FrameDuration / time.Millisecond),
		SpeechThreshold: r.cfg.Threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("recorder: create vad session: %w", err)
	}
	defer sess.Close()

	res := &Result{SampleRate: r.cfg.SampleRate}

	state := WaitingForSpeech
	if r.cfg.Policy == GracePeriod {
		state = Recording
	}
	r.transition(state)

	var elapsed, silence time.Duration

	finish := func(reason StopReason) (*Result, error) {
		res.StopReason = reason
		r.transition(Stopped)
		slog.Debug("recorder: stopped",
			"reason", reason.String(),
			"frames", res.Frames,
			"consumed", res.Consumed,
			"duration", res.Duration(),
		)
		if state == WaitingForSpeech {
			return res, ErrNoSpeech
		}
		return res, nil
	}

	for {
		if r.cfg.MaxDuration > 0 && elapsed >= r.cfg.MaxDuration {
			return finish(StopMaxDuration)
		}

		frame, err := src.ReadFrame(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("recorder: %w", ctxErr)
			}
			if errors.Is(err, io.EOF) {
				return finish(StopEndOfStream)
			}
			return nil, fmt.Errorf("recorder: read frame: %w", err)
		}
		if frame.SampleRate != 0 && frame.SampleRate != r.cfg.SampleRate {
			return nil, fmt.Errorf("%w: got %d Hz, want %d Hz", ErrSampleRateMismatch, frame.SampleRate, r.cfg.SampleRate)
		}

		ev, err := sess.ProcessFrame(frame.Samples)
		if err != nil {
			return nil, fmt.Errorf("recorder: classify frame: %w", err)
		}

		d := frame.Duration()
		if d <= 0 {
			d = r.cfg.FrameDuration
		}
		elapsed += d
		res.Consumed++
		loud := ev.IsSpeech()

		if state == WaitingForSpeech {
			if !loud {
				continue
			}
			state = Recording
			r.transition(state)
		}

		res.Samples = append(res.Samples, frame.Samples...)
		res.Frames++

		if r.cfg.Policy == GracePeriod && elapsed <= r.cfg.GracePeriod {
			continue
		}

		if loud {
			res.SpeechDetected = true
			silence = 0
			continue
		}
		silence += d
		if silence >= r.cfg.SilenceDuration {
			return finish(StopSilence)
		}
	}
}

func (r *Recorder) transition(s State) {
	slog.Debug("recorder: state", "state", s.String(), "policy", r.cfg.Policy.String())
	if r.onState != nil {
		r.onState(s)
	}
}
