// Package elevenlabs provides a TTS provider backed by the ElevenLabs
// stream-input WebSocket API. Audio chunks are collected until the server
// marks the stream final; PCM output is wrapped in a WAV container.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"

	"github.com/coder/websocket"

	"github.com/MrWong99/voxa/pkg/audio"
	"github.com/MrWong99/voxa/pkg/provider/tts"
)

const (
	defaultWSBase  = "wss://api.elevenlabs.io"
	defaultAPIBase = "https://api.elevenlabs.io"
	defaultModel   = "eleven_multilingual_v2"

	// pcmFormat is requested for WAV output; the rate is fixed by the name.
	pcmFormat     = "pcm_16000"
	pcmSampleRate = 16000
	mp3Format     = "mp3_44100_128"
)

var (
	_ tts.Provider    = (*Provider)(nil)
	_ tts.VoiceLister = (*Provider)(nil)
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g. "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithVoice sets the default voice ID.
func WithVoice(voiceID string) Option {
	return func(p *Provider) { p.voice = voiceID }
}

// WithEndpoints overrides the WebSocket and REST base URLs.
func WithEndpoints(wsBase, apiBase string) Option {
	return func(p *Provider) {
		p.wsBase = wsBase
		p.apiBase = apiBase
	}
}

// WithHTTPClient replaces the client used for REST calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements tts.Provider backed by the ElevenLabs streaming API.
type Provider struct {
	apiKey     string
	model      string
	voice      string
	wsBase     string
	apiBase    string
	httpClient *http.Client
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		wsBase:     defaultWSBase,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// textMessage is the JSON payload sent for each text fragment. An empty Text
// asks the server to flush and finish.
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// audioResponse is one server message.
type audioResponse struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	if req.Text == "" {
		return nil, tts.ErrEmptyText
	}
	voice := req.Voice
	if voice == "" {
		voice = p.voice
	}
	if voice == "" {
		return nil, errors.New("elevenlabs: voice ID must not be empty")
	}

	format := req.FormatOrDefault()
	var outputFormat string
	switch format {
	case tts.FormatWAV:
		outputFormat = pcmFormat
	case tts.FormatMP3:
		outputFormat = mp3Format
	default:
		return nil, fmt.Errorf("elevenlabs: %w: %q", tts.ErrUnsupportedFormat, format)
	}

	conn, _, err := websocket.Dial(ctx, buildURLForVoice(p.wsBase, voice, p.model, outputFormat), nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(8 << 20)

	vs := &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75, Speed: req.Speed}
	msgs := []textMessage{
		{Text: " ", VoiceSettings: vs, XiAPIKey: p.apiKey},
		{Text: req.Text + " "},
		{Text: ""},
	}
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("elevenlabs: marshal message: %w", err)
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return nil, fmt.Errorf("elevenlabs: send text: %w", err)
		}
	}

	raw, err := collectAudio(ctx, conn)
	if err != nil {
		return nil, err
	}
	conn.Close(websocket.StatusNormalClosure, "done")

	if format == tts.FormatMP3 {
		return &tts.Audio{Data: raw, Format: tts.FormatMP3}, nil
	}
	wav, err := audio.EncodeWAV(audio.BytesToSamples(raw), pcmSampleRate)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}
	return &tts.Audio{Data: wav, Format: tts.FormatWAV, SampleRate: pcmSampleRate}, nil
}

// collectAudio reads server messages until isFinal or a normal close.
func collectAudio(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	var buf bytes.Buffer
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return buf.Bytes(), nil
			}
			return nil, fmt.Errorf("elevenlabs: read: %w", err)
		}
		var resp audioResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			continue
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("elevenlabs: server error: %s: %s", resp.Error, resp.Message)
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				return nil, fmt.Errorf("elevenlabs: decode audio chunk: %w", err)
			}
			buf.Write(chunk)
		}
		if resp.IsFinal {
			return buf.Bytes(), nil
		}
	}
}

// buildURLForVoice constructs the stream-input URL for a voice.
func buildURLForVoice(base, voiceID, model, outputFormat string) string {
	q := url.Values{}
	q.Set("model_id", model)
	q.Set("output_format", outputFormat)
	return fmt.Sprintf("%s/v1/text-to-speech/%s/stream-input?%s", base, url.PathEscape(voiceID), q.Encode())
}

type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

type elevenLabsVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// ListVoices implements tts.VoiceLister.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w", err)
	}
	return toVoices(vr), nil
}

func toVoices(vr voicesResponse) []tts.Voice {
	voices := make([]tts.Voice, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		meta := make(map[string]string, len(v.Labels)+1)
		maps.Copy(meta, v.Labels)
		if v.Category != "" {
			meta["category"] = v.Category
		}
		voices = append(voices, tts.Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: "elevenlabs",
			Metadata: meta,
		})
	}
	return voices
}
