package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/voxa/pkg/provider/llm"
	"github.com/MrWong99/voxa/pkg/provider/moderation"
	"github.com/MrWong99/voxa/pkg/provider/stt"
	"github.com/MrWong99/voxa/pkg/provider/tts"
	"github.com/MrWong99/voxa/pkg/types"
)

// observeCall runs fn inside a span named kind+".call" and records the call
// on m.
func observeCall[T any](ctx context.Context, m *Metrics, kind, provider string, fn func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := StartSpan(ctx, kind+".call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, Attr("provider", provider))...),
	)
	defer span.End()

	start := time.Now()
	v, err := fn(ctx)
	m.RecordProviderCall(ctx, provider, kind, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

// LLM wraps an [llm.Provider] with a span and metrics per call.
type LLM struct {
	next llm.Provider
	name string
	m    *Metrics
}

var _ llm.Provider = (*LLM)(nil)

// InstrumentLLM returns p wrapped so every Complete call is traced and
// measured under the provider label name.
func InstrumentLLM(p llm.Provider, name string, m *Metrics) *LLM {
	return &LLM{next: p, name: name, m: m}
}

// Complete implements [llm.Provider].
func (l *LLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return observeCall(ctx, l.m, KindLLM, l.name, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return l.next.Complete(ctx, req)
	}, attribute.Int("messages", len(req.Messages)), attribute.Int("tools", len(req.Tools)))
}

// Capabilities implements [llm.Provider].
func (l *LLM) Capabilities() types.ModelCapabilities { return l.next.Capabilities() }

// STT wraps an [stt.Provider] with a span and metrics per call.
type STT struct {
	next stt.Provider
	name string
	m    *Metrics
}

var _ stt.Provider = (*STT)(nil)

// InstrumentSTT returns p wrapped so every Transcribe call is traced and
// measured under the provider label name.
func InstrumentSTT(p stt.Provider, name string, m *Metrics) *STT {
	return &STT{next: p, name: name, m: m}
}

// Transcribe implements [stt.Provider].
func (s *STT) Transcribe(ctx context.Context, req stt.Request) (*types.Transcript, error) {
	return observeCall(ctx, s.m, KindSTT, s.name, func(ctx context.Context) (*types.Transcript, error) {
		return s.next.Transcribe(ctx, req)
	}, attribute.Int("audio_bytes", len(req.Audio)))
}

// TTS wraps a [tts.Provider] with a span and metrics per call.
type TTS struct {
	next tts.Provider
	name string
	m    *Metrics
}

var _ tts.Provider = (*TTS)(nil)

// InstrumentTTS returns p wrapped so every Synthesize call is traced and
// measured under the provider label name.
func InstrumentTTS(p tts.Provider, name string, m *Metrics) *TTS {
	return &TTS{next: p, name: name, m: m}
}

// Synthesize implements [tts.Provider].
func (t *TTS) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	return observeCall(ctx, t.m, KindTTS, t.name, func(ctx context.Context) (*tts.Audio, error) {
		return t.next.Synthesize(ctx, req)
	}, attribute.Int("chars", len([]rune(req.Text))), Attr("format", req.FormatOrDefault()))
}

// ListVoices forwards to the wrapped provider when it implements
// [tts.VoiceLister].
func (t *TTS) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	if vl, ok := t.next.(tts.VoiceLister); ok {
		return vl.ListVoices(ctx)
	}
	return nil, nil
}

// Moderation wraps a [moderation.Provider] with a span and metrics per call.
type Moderation struct {
	next moderation.Provider
	name string
	m    *Metrics
}

var _ moderation.Provider = (*Moderation)(nil)

// InstrumentModeration returns p wrapped so every Moderate call is traced
// and measured under the provider label name.
func InstrumentModeration(p moderation.Provider, name string, m *Metrics) *Moderation {
	return &Moderation{next: p, name: name, m: m}
}

// Moderate implements [moderation.Provider].
func (mo *Moderation) Moderate(ctx context.Context, text string) (*moderation.Verdict, error) {
	v, err := observeCall(ctx, mo.m, KindModeration, mo.name, func(ctx context.Context) (*moderation.Verdict, error) {
		return mo.next.Moderate(ctx, text)
	})
	if err == nil && v.Flagged {
		mo.m.RecordModerationFlag(ctx)
	}
	return v, err
}
