package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/voxa/internal/app"
	"github.com/MrWong99/voxa/internal/config"
	"github.com/MrWong99/voxa/internal/observe"
	"github.com/MrWong99/voxa/pkg/provider/llm"
	"github.com/MrWong99/voxa/pkg/provider/llm/anyllm"
	oallm "github.com/MrWong99/voxa/pkg/provider/llm/openai"
	"github.com/MrWong99/voxa/pkg/provider/moderation"
	oamod "github.com/MrWong99/voxa/pkg/provider/moderation/openai"
	"github.com/MrWong99/voxa/pkg/provider/stt"
	oastt "github.com/MrWong99/voxa/pkg/provider/stt/openai"
	"github.com/MrWong99/voxa/pkg/provider/stt/whisper"
	"github.com/MrWong99/voxa/pkg/provider/tts"
	"github.com/MrWong99/voxa/pkg/provider/tts/coqui"
	"github.com/MrWong99/voxa/pkg/provider/tts/elevenlabs"
	oatts "github.com/MrWong99/voxa/pkg/provider/tts/openai"
)

// anyllmVendors share the any-llm pattern: optional APIKey + optional BaseURL.
var anyllmVendors = []string{"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "ollama"}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the implementation packages.
//
// Common options:
//
//	timeout      duration string, e.g. "30s"
//	max_retries  SDK transport retries (OpenAI providers)
//	language     STT language / Coqui language
//	voice        default TTS voice
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oallm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oallm.WithBaseURL(entry.BaseURL))
		}
		if org := entry.OptionString("organization", ""); org != "" {
			opts = append(opts, oallm.WithOrganization(org))
		}
		if d := optDuration(entry, "timeout"); d > 0 {
			opts = append(opts, oallm.WithTimeout(d))
		}
		if n, ok := optInt(entry, "max_retries"); ok {
			opts = append(opts, oallm.WithMaxRetries(n))
		}
		return oallm.New(entry.APIKey, modelOr(entry, oallm.DefaultModel), opts...)
	})

	for _, vendor := range anyllmVendors {
		reg.RegisterLLM(vendor, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(vendor, entry.Model, opts...)
		})
	}

	// ── STT ───────────────────────────────────────────────────────────────────
	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oastt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oastt.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, oastt.WithModel(entry.Model))
		}
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, oastt.WithLanguage(lang))
		}
		if d := optDuration(entry, "timeout"); d > 0 {
			opts = append(opts, oastt.WithTimeout(d))
		}
		if n, ok := optInt(entry, "max_retries"); ok {
			opts = append(opts, oastt.WithMaxRetries(n))
		}
		return oastt.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.OptionString("model_path", "")
		}
		var opts []whisper.NativeOption
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────
	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []oatts.Option
		if entry.BaseURL != "" {
			opts = append(opts, oatts.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, oatts.WithModel(entry.Model))
		}
		if voice := entry.OptionString("voice", ""); voice != "" {
			opts = append(opts, oatts.WithVoice(voice))
		}
		if d := optDuration(entry, "timeout"); d > 0 {
			opts = append(opts, oatts.WithTimeout(d))
		}
		if n, ok := optInt(entry, "max_retries"); ok {
			opts = append(opts, oatts.WithMaxRetries(n))
		}
		return oatts.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if voice := entry.OptionString("voice", ""); voice != "" {
			opts = append(opts, elevenlabs.WithVoice(voice))
		}
		// Endpoints are overridden together, e.g. for a local stub server.
		if ws := entry.OptionString("ws_base_url", ""); ws != "" && entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithEndpoints(ws, entry.BaseURL))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if mode := entry.OptionString("api_mode", ""); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		if voice := entry.OptionString("voice", ""); voice != "" {
			opts = append(opts, coqui.WithVoice(voice))
		}
		if d := optDuration(entry, "timeout"); d > 0 {
			opts = append(opts, coqui.WithTimeout(d))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	// ── Moderation ────────────────────────────────────────────────────────────
	reg.RegisterModeration("openai", func(entry config.ProviderEntry) (moderation.Provider, error) {
		var opts []oamod.Option
		if entry.BaseURL != "" {
			opts = append(opts, oamod.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, oamod.WithModel(entry.Model))
		}
		if d := optDuration(entry, "timeout"); d > 0 {
			opts = append(opts, oamod.WithTimeout(d))
		}
		if n, ok := optInt(entry, "max_retries"); ok {
			opts = append(opts, oamod.WithMaxRetries(n))
		}
		return oamod.New(entry.APIKey, opts...)
	})

	for kind, names := range config.ValidProviderNames {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates all providers named in cfg using the registry,
// wraps each one with tracing and metrics, and returns them for the
// application to consume. Unregistered names are skipped with a warning.
// Providers holding resources (the in-process whisper model) are returned as
// closers.
func buildProviders(cfg *config.Config, reg *config.Registry, m *observe.Metrics) (*app.Providers, []io.Closer, error) {
	ps := &app.Providers{}
	var closers []io.Closer
	track := func(p any) {
		if c, ok := p.(io.Closer); ok {
			closers = append(closers, c)
		}
	}

	if entry := cfg.Providers.LLM; entry.Name != "" {
		p, err := reg.CreateLLM(entry)
		if err := created("llm", entry.Name, err); err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		if p != nil {
			track(p)
			ps.LLM = observe.InstrumentLLM(p, entry.Name, m)
		}
	}

	if entry := cfg.Providers.STT; entry.Name != "" {
		p, err := reg.CreateSTT(entry)
		if err := created("stt", entry.Name, err); err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		if p != nil {
			track(p)
			ps.STT = observe.InstrumentSTT(p, entry.Name, m)
		}
	}

	if entry := cfg.Providers.TTS; entry.Name != "" {
		p, err := reg.CreateTTS(entry)
		if err := created("tts", entry.Name, err); err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		if p != nil {
			track(p)
			ps.TTS = observe.InstrumentTTS(p, entry.Name, m)
		}
	}

	if entry := cfg.Providers.Moderation; entry.Name != "" {
		p, err := reg.CreateModeration(entry)
		if err := created("moderation", entry.Name, err); err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		if p != nil {
			track(p)
			ps.Moderation = observe.InstrumentModeration(p, entry.Name, m)
		}
	}

	return ps, closers, nil
}

func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			slog.Warn("provider close error", "err", err)
		}
	}
}

// created logs the outcome of a Create* call and returns the error that
// should abort startup, if any.
func created(kind, name string, err error) error {
	switch {
	case errors.Is(err, config.ErrProviderNotRegistered):
		slog.Warn("provider not registered, skipping", "kind", kind, "name", name)
		return nil
	case err != nil:
		return fmt.Errorf("create %s provider %q: %w", kind, name, err)
	}
	slog.Info("provider created", "kind", kind, "name", name)
	return nil
}

func modelOr(entry config.ProviderEntry, def string) string {
	if entry.Model != "" {
		return entry.Model
	}
	return def
}

// optDuration parses Options[key] as a duration string ("30s") or a number
// of seconds. Invalid values are logged and ignored.
func optDuration(entry config.ProviderEntry, key string) time.Duration {
	if s := entry.OptionString(key, ""); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			slog.Warn("invalid provider option", "provider", entry.Name, "key", key, "value", s, "err", err)
			return 0
		}
		return d
	}
	if secs := entry.OptionFloat(key, 0); secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return 0
}

func optInt(entry config.ProviderEntry, key string) (int, bool) {
	v := entry.OptionFloat(key, -1)
	if v < 0 {
		return 0, false
	}
	return int(v), true
}
