// Package openai provides a TTS provider backed by the OpenAI speech endpoint.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/MrWong99/voxa/pkg/audio"
	"github.com/MrWong99/voxa/pkg/provider/tts"
)

const (
	// DefaultModel is the speech model used when none is configured.
	DefaultModel = oai.SpeechModelTTS1

	// DefaultVoice is the voice used when a request leaves Voice empty.
	DefaultVoice = "nova"
)

// Voices lists the built-in OpenAI voices.
var Voices = []string{"alloy", "ash", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer"}

// Provider implements tts.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
	voice  string
}

var (
	_ tts.Provider    = (*Provider)(nil)
	_ tts.VoiceLister = (*Provider)(nil)
)

type config struct {
	baseURL    string
	model      string
	voice      string
	timeout    time.Duration
	maxRetries int
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel selects the speech model (tts-1, tts-1-hd, ...).
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithVoice sets the default voice.
func WithVoice(voice string) Option {
	return func(c *config) { c.voice = voice }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithMaxRetries sets the SDK's transport retry count.
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// New constructs an OpenAI TTS provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai tts: apiKey must not be empty")
	}
	cfg := &config{model: DefaultModel, voice: DefaultVoice, maxRetries: -1}
	for _, o := range opts {
		o(cfg)
	}
	if !slices.Contains(Voices, cfg.voice) {
		return nil, fmt.Errorf("openai tts: unknown voice %q", cfg.voice)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}
	if cfg.maxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(cfg.maxRetries))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model, voice: cfg.voice}, nil
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	if req.Text == "" {
		return nil, tts.ErrEmptyText
	}
	format := req.FormatOrDefault()
	if format != tts.FormatMP3 && format != tts.FormatWAV {
		return nil, fmt.Errorf("openai tts: %w: %q", tts.ErrUnsupportedFormat, format)
	}
	voice := req.Voice
	if voice == "" {
		voice = p.voice
	}

	params := oai.AudioSpeechNewParams{
		Input:          req.Text,
		Model:          oai.SpeechModel(p.model),
		Voice:          oai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormat(format),
	}
	if req.Speed > 0 {
		params.Speed = param.NewOpt(req.Speed)
	}

	resp, err := p.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai tts: synthesize: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai tts: read audio: %w", err)
	}

	out := &tts.Audio{Data: data, Format: format}
	if format == tts.FormatWAV {
		if _, info, err := audio.DecodeWAV(data); err == nil {
			out.SampleRate = info.SampleRate
		}
	}
	return out, nil
}

// ListVoices implements tts.VoiceLister with the static voice catalogue.
func (p *Provider) ListVoices(context.Context) ([]tts.Voice, error) {
	voices := make([]tts.Voice, 0, len(Voices))
	for _, v := range Voices {
		voices = append(voices, tts.Voice{ID: v, Name: v, Provider: "openai"})
	}
	return voices, nil
}
