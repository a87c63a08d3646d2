package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":        {"openai", "whisper", "whisper-native"},
	"tts":        {"openai", "elevenlabs", "coqui"},
	"moderation": {"openai"},
}

// apiKeyEnv maps provider names to the environment variable consulted when
// an entry leaves api_key empty.
var apiKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"deepseek":   "DEEPSEEK_API_KEY",
	"mistral":    "MISTRAL_API_KEY",
	"groq":       "GROQ_API_KEY",
	"elevenlabs": "ELEVENLABS_API_KEY",
}

// Defaults for values the assistant cannot run without.
const (
	DefaultExitWord     = "종료"
	DefaultLanguage     = "ko"
	DefaultFailureText  = "AI 응답을 가져오는 데 실패했습니다."
	DefaultLogPath      = "conversation_log.txt"
	DefaultSystemPrompt = "당신은 친절한 한국어 음성 비서입니다. 짧고 명확하게 대답하세요. " +
		"필요하면 날씨, 뉴스, PDF 보고서 도구를 사용하세요."

	defaultRetryDelay = 2 * time.Second
)

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadDotEnv loads KEY=value pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing files
// are ignored. With no arguments it loads ".env" from the working directory.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %q: %w", p, err)
		}
	}
	return nil
}

// Default returns a configuration that runs the assistant against OpenAI
// with the API key taken from OPENAI_API_KEY.
func Default() *Config {
	cfg := &Config{
		Providers: ProvidersConfig{
			LLM:        ProviderEntry{Name: "openai"},
			STT:        ProviderEntry{Name: "openai"},
			TTS:        ProviderEntry{Name: "openai"},
			Moderation: ProviderEntry{Name: "openai"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references from
// the environment, fills defaults and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	raw = expandEnv(raw)

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnv replaces ${VAR} with the value of the environment variable VAR.
// Unset variables expand to the empty string. Bare $VAR is left untouched so
// prompts may contain dollar signs.
func expandEnv(raw []byte) []byte {
	return envRef.ReplaceAllFunc(raw, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// ApplyDefaults fills unset fields with their default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	for _, e := range []*ProviderEntry{&cfg.Providers.LLM, &cfg.Providers.STT, &cfg.Providers.TTS, &cfg.Providers.Moderation} {
		defaultAPIKey(e)
		for i := range e.Fallbacks {
			defaultAPIKey(&e.Fallbacks[i])
		}
	}

	a := &cfg.Assistant
	if a.ExitWord == "" {
		a.ExitWord = DefaultExitWord
	}
	if a.Language == "" {
		a.Language = DefaultLanguage
	}
	if a.FailureText == "" {
		a.FailureText = DefaultFailureText
	}
	if a.SystemPrompt == "" {
		a.SystemPrompt = DefaultSystemPrompt
	}
	if a.Retry.MaxAttempts == 0 {
		a.Retry.MaxAttempts = 3
	}
	if a.Retry.Delay == 0 {
		a.Retry.Delay = defaultRetryDelay
	}

	if cfg.Export.Concurrency == 0 {
		cfg.Export.Concurrency = 4
	}
	if cfg.ConversationLog.Path == "" {
		cfg.ConversationLog.Path = DefaultLogPath
	}
}

func defaultAPIKey(e *ProviderEntry) {
	if e.APIKey != "" {
		return
	}
	if env, ok := apiKeyEnv[e.Name]; ok {
		e.APIKey = os.Getenv(env)
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if r := cfg.Server.TraceSampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("server.trace_sample_ratio %v must be between 0 and 1", r))
	}

	// Providers
	validateEntry("llm", cfg.Providers.LLM, &errs)
	validateEntry("stt", cfg.Providers.STT, &errs)
	validateEntry("tts", cfg.Providers.TTS, &errs)
	validateEntry("moderation", cfg.Providers.Moderation, &errs)
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm is not configured; chat and text generation are unavailable")
	}

	// Recorder
	r := cfg.Recorder
	switch r.Policy {
	case "", "grace_period", "grace", "speech_triggered", "speech":
	default:
		errs = append(errs, fmt.Errorf("recorder.policy %q is invalid; valid values: grace_period, speech_triggered", r.Policy))
	}
	if r.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("recorder.sample_rate %d must not be negative", r.SampleRate))
	}
	if r.FrameDuration < 0 {
		errs = append(errs, fmt.Errorf("recorder.frame_duration %v must not be negative", r.FrameDuration))
	}
	if r.Threshold != nil && *r.Threshold < 0 {
		errs = append(errs, fmt.Errorf("recorder.threshold %v must not be negative", *r.Threshold))
	}
	if r.SilenceDuration < 0 {
		errs = append(errs, fmt.Errorf("recorder.silence_duration %v must not be negative", r.SilenceDuration))
	}
	if r.GracePeriod != nil && *r.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("recorder.grace_period %v must not be negative", *r.GracePeriod))
	}

	// Assistant
	if cfg.Assistant.Retry.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("assistant.retry.max_attempts %d must not be negative", cfg.Assistant.Retry.MaxAttempts))
	}
	if cfg.Assistant.Retry.Delay < 0 {
		errs = append(errs, fmt.Errorf("assistant.retry.delay %v must not be negative", cfg.Assistant.Retry.Delay))
	}
	if cfg.Assistant.HistoryTurns < 0 {
		errs = append(errs, fmt.Errorf("assistant.history_turns %d must not be negative", cfg.Assistant.HistoryTurns))
	}
	if cfg.Export.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("export.concurrency %d must not be negative", cfg.Export.Concurrency))
	}

	// MCP servers
	namesSeen := make(map[string]int, len(cfg.MCP.Servers))
	for i, srv := range cfg.MCP.Servers {
		prefix := fmt.Sprintf("mcp.servers[%d]", i)
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := namesSeen[srv.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of mcp.servers[%d]", prefix, srv.Name, prev))
			}
			namesSeen[srv.Name] = i
		}
		if !srv.Transport.IsValid() {
			errs = append(errs, fmt.Errorf("%s.transport %q is invalid; valid values: stdio, streamable-http", prefix, srv.Transport))
		}
		if srv.Transport == TransportStdio && srv.Command == "" {
			errs = append(errs, fmt.Errorf("%s.command is required when transport is stdio", prefix))
		}
		if srv.Transport == TransportStreamableHTTP && srv.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required when transport is streamable-http", prefix))
		}
	}

	return errors.Join(errs...)
}

// validateEntry checks a provider entry and its fallbacks.
func validateEntry(kind string, e ProviderEntry, errs *[]error) {
	validateProviderName(kind, e.Name)
	if e.Name == "" && len(e.Fallbacks) > 0 {
		*errs = append(*errs, fmt.Errorf("providers.%s declares fallbacks but no name", kind))
	}
	for i, fb := range e.Fallbacks {
		prefix := fmt.Sprintf("providers.%s.fallbacks[%d]", kind, i)
		if fb.Name == "" {
			*errs = append(*errs, fmt.Errorf("%s.name is required", prefix))
		}
		if len(fb.Fallbacks) > 0 {
			*errs = append(*errs, fmt.Errorf("%s must not declare nested fallbacks", prefix))
		}
		validateProviderName(kind, fb.Name)
	}
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
