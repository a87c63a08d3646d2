package openai

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

func newSpeechServer(t *testing.T, body []byte, got *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(body)
	}))
}

func TestSynthesize_MP3(t *testing.T) {
	var req map[string]any
	srv := newSpeechServer(t, []byte("ID3fake-mp3"), &req)
	defer srv.Close()

	p, err := New("sk-test", WithBaseURL(srv.URL+"/"), WithMaxRetries(0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := p.Synthesize(context.Background(), tts.Request{Text: "안녕하세요"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(out.Data) != "ID3fake-mp3" || out.Format != tts.FormatMP3 {
		t.Errorf("unexpected audio: %q %q", out.Data, out.Format)
	}
	if req["model"] != "tts-1" || req["voice"] != "nova" || req["input"] != "안녕하세요" || req["response_format"] != "mp3" {
		t.Errorf("unexpected request body: %v", req)
	}
	if _, ok := req["speed"]; ok {
		t.Error("speed should be omitted when unset")
	}
}

func TestSynthesize_WAVReportsSampleRate(t *testing.T) {
	wav, err := audio.EncodeWAV(make([]int16, 2400), 24000)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	var req map[string]any
	srv := newSpeechServer(t, wav, &req)
	defer srv.Close()

	p, _ := New("sk-test", WithBaseURL(srv.URL+"/"), WithMaxRetries(0))
	out, err := p.Synthesize(context.Background(), tts.Request{Text: "hi", Format: tts.FormatWAV, Voice: "onyx", Speed: 1.25})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if out.SampleRate != 24000 {
		t.Errorf("sample rate = %d, want 24000", out.SampleRate)
	}
	if req["voice"] != "onyx" || req["speed"] != 1.25 {
		t.Errorf("unexpected request body: %v", req)
	}
}

func TestSynthesize_Validation(t *testing.T) {
	p, _ := New("sk-test")
	if _, err := p.Synthesize(context.Background(), tts.Request{}); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "x", Format: "ogg"}); !errors.Is(err, tts.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty API key")
	}
	if _, err := New("sk-test", WithVoice("robot")); err == nil {
		t.Error("expected error for unknown voice")
	}
}

func TestListVoices(t *testing.T) {
	p, _ := New("sk-test")
	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != len(Voices) {
		t.Fatalf("got %d voices, want %d", len(voices), len(Voices))
	}
	if voices[0].Provider != "openai" {
		t.Errorf("provider = %q", voices[0].Provider)
	}
}
