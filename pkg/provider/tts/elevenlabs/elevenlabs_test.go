package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/websocket"

	"github.com/MrWong99/voxa/pkg/audio"
	"github.com/MrWong99/voxa/pkg/provider/tts"
)

// fakeServer accepts one stream-input session, records the text messages and
// replies with chunks followed by a final marker.
type fakeServer struct {
	t        *testing.T
	chunks   [][]byte
	errorMsg string
	received []textMessage
	query    string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.query = r.URL.RawQuery
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		f.t.Errorf("accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var m textMessage
		_ = json.Unmarshal(data, &m)
		f.received = append(f.received, m)
		if m.Text == "" {
			break
		}
	}

	if f.errorMsg != "" {
		msg, _ := json.Marshal(audioResponse{Error: "quota_exceeded", Message: f.errorMsg})
		_ = conn.Write(ctx, websocket.MessageText, msg)
		return
	}
	for _, c := range f.chunks {
		msg, _ := json.Marshal(audioResponse{Audio: base64.StdEncoding.EncodeToString(c)})
		_ = conn.Write(ctx, websocket.MessageText, msg)
	}
	msg, _ := json.Marshal(audioResponse{IsFinal: true})
	_ = conn.Write(ctx, websocket.MessageText, msg)
	conn.Close(websocket.StatusNormalClosure, "")
}

func newTestProvider(t *testing.T, f *fakeServer) *Provider {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http")
	p, err := New("key", WithVoice("voice-1"), WithEndpoints(wsBase, srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestSynthesize_WAV(t *testing.T) {
	pcm := audio.SamplesToBytes([]int16{100, -100, 200, -200})
	f := &fakeServer{t: t, chunks: [][]byte{pcm[:4], pcm[4:]}}
	p := newTestProvider(t, f)

	out, err := p.Synthesize(context.Background(), tts.Request{Text: "안녕하세요", Format: tts.FormatWAV})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if out.Format != tts.FormatWAV || out.SampleRate != 16000 {
		t.Errorf("unexpected audio header: %+v", out)
	}
	samples, rate, err := out.Samples()
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if rate != 16000 || len(samples) != 4 || samples[2] != 200 {
		t.Errorf("unexpected samples %v at %d Hz", samples, rate)
	}

	if len(f.received) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(f.received))
	}
	if f.received[0].XiAPIKey != "key" || f.received[0].VoiceSettings == nil {
		t.Errorf("first message should authenticate: %+v", f.received[0])
	}
	if f.received[1].Text != "안녕하세요 " {
		t.Errorf("text message = %q", f.received[1].Text)
	}
	if !strings.Contains(f.query, "output_format=pcm_16000") {
		t.Errorf("query = %q", f.query)
	}
}

func TestSynthesize_MP3PassesBytesThrough(t *testing.T) {
	f := &fakeServer{t: t, chunks: [][]byte{[]byte("ID3"), []byte("frames")}}
	p := newTestProvider(t, f)

	out, err := p.Synthesize(context.Background(), tts.Request{Text: "hello"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(out.Data) != "ID3frames" || out.Format != tts.FormatMP3 {
		t.Errorf("unexpected audio: %q %q", out.Data, out.Format)
	}
	if !strings.Contains(f.query, "output_format=mp3_44100_128") {
		t.Errorf("query = %q", f.query)
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	f := &fakeServer{t: t, errorMsg: "out of credits"}
	p := newTestProvider(t, f)
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "hello"}); err == nil {
		t.Fatal("expected server error")
	}
}

func TestSynthesize_Validation(t *testing.T) {
	p, _ := New("key")
	if _, err := p.Synthesize(context.Background(), tts.Request{}); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "x"}); err == nil {
		t.Error("expected error without a voice")
	}
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "x", Voice: "v", Format: "flac"}); !errors.Is(err, tts.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestBuildURLForVoice(t *testing.T) {
	got := buildURLForVoice(defaultWSBase, "voice-abc123", "eleven_flash_v2_5", pcmFormat)
	want := "wss://api.elevenlabs.io/v1/text-to-speech/voice-abc123/stream-input?model_id=eleven_flash_v2_5&output_format=pcm_16000"
	if got != want {
		t.Errorf("url = %s\nwant  %s", got, want)
	}
}

func TestListVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" || r.Header.Get("xi-api-key") != "key" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"voices":[
			{"voice_id":"abc123","name":"Rachel","category":"premade","labels":{"gender":"female"}},
			{"voice_id":"x1","name":"Ghost","category":"","labels":null}
		]}`))
	}))
	defer srv.Close()

	p, _ := New("key", WithEndpoints("ws://unused", srv.URL))
	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(voices))
	}
	if v := voices[0]; v.ID != "abc123" || v.Provider != "elevenlabs" || v.Metadata["gender"] != "female" || v.Metadata["category"] != "premade" {
		t.Errorf("unexpected first voice: %+v", v)
	}
	if _, ok := voices[1].Metadata["category"]; ok {
		t.Error("empty category should not appear in metadata")
	}
}

func TestListVoices_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, _ := New("key", WithEndpoints("ws://unused", srv.URL))
	if _, err := p.ListVoices(context.Background()); err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty API key")
	}
	p, err := New("key", WithModel("eleven_flash_v2_5"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != "eleven_flash_v2_5" {
		t.Errorf("model = %q", p.model)
	}
}
