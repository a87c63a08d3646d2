package coqui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/voxa/pkg/audio"
	"github.com/MrWong99/voxa/pkg/provider/tts"
)

func testWAV(t *testing.T) []byte {
	t.Helper()
	wav, err := audio.EncodeWAV([]int16{0x3333, 0x3333, -5, 5}, 22050)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	return wav
}

func mustNew(t *testing.T, serverURL string, opts ...Option) *Provider {
	t.Helper()
	p, err := New(serverURL, opts...)
	if err != nil {
		t.Fatalf("New(%q): unexpected error: %v", serverURL, err)
	}
	return p
}

func TestNew(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty server URL")
	}
	if _, err := New("http://x", WithAPIMode("bogus")); err == nil {
		t.Error("expected error for unknown API mode")
	}
	p := mustNew(t, "http://localhost:5002/")
	if p.serverURL != "http://localhost:5002" {
		t.Errorf("serverURL = %q", p.serverURL)
	}
	if p.apiMode != APIModeStandard {
		t.Errorf("default api mode = %q", p.apiMode)
	}
}

func TestSynthesize_Standard(t *testing.T) {
	wav := testWAV(t)
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiTTSEndpoint || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		gotQuery = map[string]string{"text": q.Get("text"), "speaker_id": q.Get("speaker_id"), "language_id": q.Get("language_id")}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wav)
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL, WithLanguage("ko"), WithVoice("p225"))
	out, err := p.Synthesize(context.Background(), tts.Request{Text: "안녕하세요.", Format: tts.FormatWAV})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if out.SampleRate != 22050 || out.Format != tts.FormatWAV || len(out.Data) != len(wav) {
		t.Errorf("unexpected audio: rate=%d format=%s len=%d", out.SampleRate, out.Format, len(out.Data))
	}
	want := map[string]string{"text": "안녕하세요.", "speaker_id": "p225", "language_id": "ko"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestSynthesize_XTTS(t *testing.T) {
	wav := testWAV(t)
	var body xttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ttsEndpoint || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write(wav)
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL, WithAPIMode(APIModeXTTS))
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "Hello.", Voice: "Ana Florence"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if body.Text != "Hello." || body.SpeakerWav != "Ana Florence" || body.Language != "en" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("text") == "bad wav" {
			_, _ = w.Write([]byte("not audio"))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL)
	tests := []struct {
		name string
		req  tts.Request
		want error
	}{
		{"empty text", tts.Request{}, tts.ErrEmptyText},
		{"mp3 requested", tts.Request{Text: "x", Format: tts.FormatMP3}, tts.ErrUnsupportedFormat},
		{"invalid wav", tts.Request{Text: "bad wav"}, audio.ErrInvalidWAV},
		{"server error", tts.Request{Text: "x"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Synthesize(context.Background(), tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	xp := mustNew(t, srv.URL, WithAPIMode(APIModeXTTS))
	if _, err := xp.Synthesize(context.Background(), tts.Request{Text: "x"}); err == nil {
		t.Error("xtts without voice: expected error")
	}
}

func TestListVoices(t *testing.T) {
	tests := []struct {
		name     string
		mode     APIMode
		path     string
		body     string
		wantIDs  []string
		wantType string
	}{
		{"standard multi-speaker", APIModeStandard, detailsEndpoint,
			`{"model_name":"tts_models/en/vctk/vits","speakers":["p227","p225","p226"]}`,
			[]string{"p225", "p226", "p227"}, "speaker"},
		{"standard single-speaker", APIModeStandard, detailsEndpoint,
			`{"model_name":"tts_models/ko/kss/glow-tts"}`,
			[]string{"tts_models/ko/kss/glow-tts"}, "single-speaker"},
		{"xtts studio", APIModeXTTS, studioSpeakersEndpoint,
			`{"Claribel Dervla":{},"Ana Florence":{}}`,
			[]string{"Ana Florence", "Claribel Dervla"}, "studio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.path {
					http.NotFound(w, r)
					return
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := mustNew(t, srv.URL, WithAPIMode(tt.mode))
			voices, err := p.ListVoices(context.Background())
			if err != nil {
				t.Fatalf("ListVoices: %v", err)
			}
			if len(voices) != len(tt.wantIDs) {
				t.Fatalf("got %d voices, want %d", len(voices), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if voices[i].ID != id {
					t.Errorf("voice %d = %q, want %q", i, voices[i].ID, id)
				}
				if voices[i].Metadata["type"] != tt.wantType {
					t.Errorf("voice %d type = %q, want %q", i, voices[i].Metadata["type"], tt.wantType)
				}
			}
		})
	}
}

func TestListVoices_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	if _, err := mustNew(t, srv.URL).ListVoices(context.Background()); err == nil {
		t.Fatal("expected error for 503")
	}
}
