package resilience

import (
	"context"

	"github.com/MrWong99/voxa/pkg/provider/llm"
	"github.com/MrWong99/voxa/pkg/provider/moderation"
	"github.com/MrWong99/voxa/pkg/provider/stt"
	"github.com/MrWong99/voxa/pkg/provider/tts"
	"github.com/MrWong99/voxa/pkg/types"
)

// LLMFallback implements [llm.Provider] with failover across chat backends.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional chat backend.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Complete sends the request to the first healthy backend.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// Capabilities returns the primary's capabilities.
func (f *LLMFallback) Capabilities() types.ModelCapabilities {
	return f.group.Primary().Capabilities()
}

// STTFallback implements [stt.Provider] with failover across STT backends.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional STT backend.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe sends the audio to the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, req stt.Request) (*types.Transcript, error) {
	return ExecuteWithResult(f.group, func(p stt.Provider) (*types.Transcript, error) {
		return p.Transcribe(ctx, req)
	})
}

// TTSFallback implements [tts.Provider] with failover across TTS backends.
// Backends that cannot produce the requested format are skipped like any
// other failure.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional TTS backend.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Synthesize sends the text to the first healthy backend.
func (f *TTSFallback) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) (*tts.Audio, error) {
		return p.Synthesize(ctx, req)
	})
}

// ModerationFallback implements [moderation.Provider] with failover.
type ModerationFallback struct {
	group *FallbackGroup[moderation.Provider]
}

var _ moderation.Provider = (*ModerationFallback)(nil)

// NewModerationFallback creates a [ModerationFallback] with primary as the
// preferred backend.
func NewModerationFallback(primary moderation.Provider, primaryName string, cfg FallbackConfig) *ModerationFallback {
	return &ModerationFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional moderation backend.
func (f *ModerationFallback) AddFallback(name string, provider moderation.Provider) {
	f.group.AddFallback(name, provider)
}

// Moderate classifies text with the first healthy backend.
func (f *ModerationFallback) Moderate(ctx context.Context, text string) (*moderation.Verdict, error) {
	return ExecuteWithResult(f.group, func(p moderation.Provider) (*moderation.Verdict, error) {
		return p.Moderate(ctx, text)
	})
}
