// Package coqui provides a TTS provider for a locally running Coqui TTS
// server. Two server flavours are supported:
//
//   - APIModeStandard (default): the stock Coqui TTS server. Synthesis is
//     GET /api/tts with query parameters; voices come from GET /details.
//   - APIModeXTTS: the XTTS v2 API server. Synthesis is POST /tts_to_audio/
//     with a JSON body; voices come from GET /studio_speakers.
//
// Both servers answer with a WAV file, so only tts.FormatWAV is supported.
//
//	p, err := coqui.New("http://localhost:5002", coqui.WithLanguage("ko"))
package coqui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/MrWong99/voxa/pkg/audio"
	"github.com/MrWong99/voxa/pkg/provider/tts"
)

var (
	_ tts.Provider    = (*Provider)(nil)
	_ tts.VoiceLister = (*Provider)(nil)
)

const (
	defaultLanguage        = "en"
	defaultTimeout         = 30 * time.Second
	ttsEndpoint            = "/tts_to_audio/"
	studioSpeakersEndpoint = "/studio_speakers"
	apiTTSEndpoint         = "/api/tts"
	detailsEndpoint        = "/details"
)

// APIMode selects which Coqui server API the provider targets.
type APIMode string

const (
	APIModeXTTS     APIMode = "xtts"
	APIModeStandard APIMode = "standard"
)

// Option is a functional option for configuring a Coqui Provider.
type Option func(*Provider)

// WithLanguage sets the language code sent to the server. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// WithAPIMode selects the server flavour.
func WithAPIMode(mode APIMode) Option {
	return func(p *Provider) { p.apiMode = mode }
}

// WithVoice sets the default speaker (speaker_id or speaker_wav).
func WithVoice(voice string) Option {
	return func(p *Provider) { p.voice = voice }
}

// Provider implements tts.Provider backed by a Coqui TTS server.
type Provider struct {
	serverURL  string
	language   string
	voice      string
	apiMode    APIMode
	httpClient *http.Client
}

// New creates a Provider targeting the server at serverURL.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		apiMode:    APIModeStandard,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	if p.apiMode != APIModeStandard && p.apiMode != APIModeXTTS {
		return nil, fmt.Errorf("coqui: unknown API mode %q", p.apiMode)
	}
	return p, nil
}

// xttsRequest is the JSON body sent to POST /tts_to_audio/.
type xttsRequest struct {
	Text       string `json:"text"`
	SpeakerWav string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	if req.Text == "" {
		return nil, tts.ErrEmptyText
	}
	if f := req.Format; f != "" && f != tts.FormatWAV {
		return nil, fmt.Errorf("coqui: %w: %q", tts.ErrUnsupportedFormat, f)
	}
	voice := req.Voice
	if voice == "" {
		voice = p.voice
	}

	var httpReq *http.Request
	var err error
	switch p.apiMode {
	case APIModeXTTS:
		if voice == "" {
			return nil, errors.New("coqui: xtts mode requires a voice")
		}
		body, merr := json.Marshal(xttsRequest{Text: req.Text, SpeakerWav: voice, Language: p.language})
		if merr != nil {
			return nil, fmt.Errorf("coqui: marshal tts request: %w", merr)
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+ttsEndpoint, bytes.NewReader(body))
		if err == nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
	default:
		q := url.Values{}
		q.Set("text", req.Text)
		if voice != "" {
			q.Set("speaker_id", voice)
		}
		if p.language != "" {
			q.Set("language_id", p.language)
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+apiTTSEndpoint+"?"+q.Encode(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/wav")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("coqui: %s %s: %w", httpReq.Method, httpReq.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: %s %s returned status %d", httpReq.Method, httpReq.URL.Path, resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coqui: read WAV response: %w", err)
	}
	_, info, err := audio.DecodeWAV(wav)
	if err != nil {
		return nil, fmt.Errorf("coqui: %w", err)
	}
	return &tts.Audio{Data: wav, Format: tts.FormatWAV, SampleRate: info.SampleRate}, nil
}

type detailsResponse struct {
	ModelName string   `json:"model_name"`
	Language  string   `json:"language"`
	Speakers  []string `json:"speakers"`
}

// ListVoices implements tts.VoiceLister. Results are sorted by name. A
// single-speaker standard model is reported as one voice named after it.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	endpoint := detailsEndpoint
	if p.apiMode == APIModeXTTS {
		endpoint = studioSpeakersEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create list-voices request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: GET %s returned status %d", endpoint, resp.StatusCode)
	}

	var names []string
	kind := "speaker"
	meta := map[string]string{}
	if p.apiMode == APIModeXTTS {
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("coqui: decode studio speakers: %w", err)
		}
		for name := range raw {
			names = append(names, name)
		}
		kind = "studio"
	} else {
		var details detailsResponse
		if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
			return nil, fmt.Errorf("coqui: decode details response: %w", err)
		}
		names = slices.Clone(details.Speakers)
		if len(names) == 0 {
			kind = "single-speaker"
			names = []string{cmpOr(details.ModelName, "default")}
		}
		if details.ModelName != "" {
			meta["model_name"] = details.ModelName
		}
	}
	slices.Sort(names)

	voices := make([]tts.Voice, 0, len(names))
	for _, name := range names {
		m := map[string]string{"type": kind}
		for k, v := range meta {
			m[k] = v
		}
		voices = append(voices, tts.Voice{ID: name, Name: name, Provider: "coqui", Metadata: m})
	}
	return voices, nil
}

func cmpOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
