package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/voxa/internal/resilience"
	"github.com/MrWong99/voxa/pkg/provider/llm"
	"github.com/MrWong99/voxa/pkg/provider/moderation"
	"github.com/MrWong99/voxa/pkg/provider/stt"
	"github.com/MrWong99/voxa/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
//
// Create* methods honour [ProviderEntry.Fallbacks]: when fallbacks are
// declared the returned provider is a resilience fallback group that fails
// over from the primary to each fallback in order.
type Registry struct {
	mu         sync.RWMutex
	llm        map[string]func(ProviderEntry) (llm.Provider, error)
	stt        map[string]func(ProviderEntry) (stt.Provider, error)
	tts        map[string]func(ProviderEntry) (tts.Provider, error)
	moderation map[string]func(ProviderEntry) (moderation.Provider, error)

	// Fallback configures the circuit breakers of fallback groups.
	Fallback resilience.FallbackConfig
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm:        make(map[string]func(ProviderEntry) (llm.Provider, error)),
		stt:        make(map[string]func(ProviderEntry) (stt.Provider, error)),
		tts:        make(map[string]func(ProviderEntry) (tts.Provider, error)),
		moderation: make(map[string]func(ProviderEntry) (moderation.Provider, error)),
	}
}

// RegisterLLM registers a chat provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterSTT registers an STT provider factory under name.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTTS registers a TTS provider factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterModeration registers a moderation provider factory under name.
func (r *Registry) RegisterModeration(name string, factory func(ProviderEntry) (moderation.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moderation[name] = factory
}

// CreateLLM instantiates a chat provider using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	primary, err := create(r, r.llm, "llm", entry)
	if err != nil || len(entry.Fallbacks) == 0 {
		return primary, err
	}
	fb := resilience.NewLLMFallback(primary, entry.Name, r.Fallback)
	for _, e := range entry.Fallbacks {
		p, err := create(r, r.llm, "llm", e)
		if err != nil {
			return nil, err
		}
		fb.AddFallback(e.Name, p)
	}
	return fb, nil
}

// CreateSTT instantiates an STT provider using the factory registered under entry.Name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) {
	primary, err := create(r, r.stt, "stt", entry)
	if err != nil || len(entry.Fallbacks) == 0 {
		return primary, err
	}
	fb := resilience.NewSTTFallback(primary, entry.Name, r.Fallback)
	for _, e := range entry.Fallbacks {
		p, err := create(r, r.stt, "stt", e)
		if err != nil {
			return nil, err
		}
		fb.AddFallback(e.Name, p)
	}
	return fb, nil
}

// CreateTTS instantiates a TTS provider using the factory registered under entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	primary, err := create(r, r.tts, "tts", entry)
	if err != nil || len(entry.Fallbacks) == 0 {
		return primary, err
	}
	fb := resilience.NewTTSFallback(primary, entry.Name, r.Fallback)
	for _, e := range entry.Fallbacks {
		p, err := create(r, r.tts, "tts", e)
		if err != nil {
			return nil, err
		}
		fb.AddFallback(e.Name, p)
	}
	return fb, nil
}

// CreateModeration instantiates a moderation provider using the factory
// registered under entry.Name.
func (r *Registry) CreateModeration(entry ProviderEntry) (moderation.Provider, error) {
	primary, err := create(r, r.moderation, "moderation", entry)
	if err != nil || len(entry.Fallbacks) == 0 {
		return primary, err
	}
	fb := resilience.NewModerationFallback(primary, entry.Name, r.Fallback)
	for _, e := range entry.Fallbacks {
		p, err := create(r, r.moderation, "moderation", e)
		if err != nil {
			return nil, err
		}
		fb.AddFallback(e.Name, p)
	}
	return fb, nil
}

func create[T any](r *Registry, factories map[string]func(ProviderEntry) (T, error), kind string, entry ProviderEntry) (T, error) {
	r.mu.RLock()
	factory, ok := factories[entry.Name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, kind, entry.Name)
	}
	return factory(entry)
}
