package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields the running assistant can apply without a restart are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	SystemPromptChanged bool
	ExitWordChanged     bool
	VoiceChanged        bool
	ToolsChanged        bool

	// RestartRequired is set when providers, the recorder or MCP servers
	// changed. Those are only read at startup.
	RestartRequired bool
}

// Changed reports whether any hot-reloadable field changed.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.SystemPromptChanged || d.ExitWordChanged || d.VoiceChanged || d.ToolsChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	oa, na := old.Assistant, new.Assistant
	d.SystemPromptChanged = oa.SystemPrompt != na.SystemPrompt
	d.ExitWordChanged = oa.ExitWord != na.ExitWord
	d.VoiceChanged = oa.Voice != na.Voice
	d.ToolsChanged = !slices.Equal(oa.Tools, na.Tools)

	d.RestartRequired = !providersEqual(old.Providers, new.Providers) ||
		!recorderEqual(old.Recorder, new.Recorder) ||
		!slices.EqualFunc(old.MCP.Servers, new.MCP.Servers, mcpServerEqual)

	return d
}

func providersEqual(a, b ProvidersConfig) bool {
	return entryEqual(a.LLM, b.LLM) && entryEqual(a.STT, b.STT) &&
		entryEqual(a.TTS, b.TTS) && entryEqual(a.Moderation, b.Moderation)
}

// entryEqual compares the identifying fields of two entries. Options are
// not compared.
func entryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	return slices.EqualFunc(a.Fallbacks, b.Fallbacks, entryEqual)
}

func mcpServerEqual(a, b MCPServerConfig) bool {
	return a.Name == b.Name && a.Transport == b.Transport && a.Command == b.Command &&
		a.URL == b.URL && a.Token == b.Token
}

func recorderEqual(a, b RecorderConfig) bool {
	return a.Policy == b.Policy && a.SampleRate == b.SampleRate &&
		a.FrameDuration == b.FrameDuration && a.SilenceDuration == b.SilenceDuration &&
		a.MaxDuration == b.MaxDuration &&
		ptrEqual(a.Threshold, b.Threshold) && ptrEqual(a.GracePeriod, b.GracePeriod)
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
