package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrWong99/voxa/internal/agent"
	"github.com/MrWong99/voxa/internal/config"
	"github.com/MrWong99/voxa/internal/convlog"
	"github.com/MrWong99/voxa/internal/export"
	"github.com/MrWong99/voxa/internal/observe"
	"github.com/MrWong99/voxa/pkg/audio"
	"github.com/MrWong99/voxa/pkg/audio/recorder"
	"github.com/MrWong99/voxa/pkg/provider/stt"
	"github.com/MrWong99/voxa/pkg/provider/tts"
	"github.com/MrWong99/voxa/pkg/types"
)

// InputFile is the name of the WAV file each utterance is written to before
// transcription. It is overwritten on every turn.
const InputFile = "input.wav"

// ExitMessage is printed and logged when the exit word ends the loop.
const ExitMessage = "비서 종료"

// Recorder records one utterance. *recorder.Recorder implements it.
type Recorder interface {
	Record(ctx context.Context, src audio.Source) (*recorder.Result, error)
}

// Asker answers one question in the context of a history. *agent.Agent
// implements it.
type Asker interface {
	Ask(ctx context.Context, history []types.Message, question string) (*agent.Answer, error)
}

// Styles renders assistant output on the terminal.
type Styles struct {
	User   lipgloss.Style
	AI     lipgloss.Style
	Notice lipgloss.Style
	Error  lipgloss.Style
}

// DefaultStyles returns the colour scheme used by the CLI.
func DefaultStyles() Styles {
	return Styles{
		User:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00afff")),
		AI:     lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff9f")),
		Notice: lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")),
		Error:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f5f")),
	}
}

// AssistantParts are the collaborators of an [Assistant]. Recorder, Source,
// STT and Agent are required. Without TTS or Sink replies are printed only.
// Without Log turns are not persisted.
type AssistantParts struct {
	Recorder Recorder
	Source   audio.Source
	Sink     audio.Sink
	STT      stt.Provider
	TTS      tts.Provider
	Agent    Asker
	Log      convlog.Sink
}

// AssistantOption configures an [Assistant].
type AssistantOption func(*Assistant)

// WithOutput sets where user-facing lines are printed. Default os.Stdout.
func WithOutput(w io.Writer) AssistantOption {
	return func(a *Assistant) { a.out = w }
}

// WithStyles replaces [DefaultStyles].
func WithStyles(s Styles) AssistantOption {
	return func(a *Assistant) { a.styles = s }
}

// WithTempDir sets the directory for the input and reply audio files.
// Default os.TempDir().
func WithTempDir(dir string) AssistantOption {
	return func(a *Assistant) { a.tempDir = dir }
}

// WithSessionID sets the id stamped on logged turns. Default: a fresh uuid.
func WithSessionID(id string) AssistantOption {
	return func(a *Assistant) { a.sessionID = id }
}

// WithHistory seeds the conversation, e.g. from a resumed session.
func WithHistory(h []types.Message) AssistantOption {
	return func(a *Assistant) { a.history = append([]types.Message(nil), h...) }
}

// WithAssistantClock overrides the clock used for log timestamps and file
// names.
func WithAssistantClock(now func() time.Time) AssistantOption {
	return func(a *Assistant) { a.now = now }
}

// WithAssistantMetrics records recording durations and stop reasons.
func WithAssistantMetrics(m *observe.Metrics) AssistantOption {
	return func(a *Assistant) { a.metrics = m }
}

// Assistant is the voice loop: record, transcribe, answer, log, speak.
//
// The loop is sequential. Only the settings changed by [Assistant.Reconfigure]
// are guarded; everything else belongs to the goroutine calling Run.
type Assistant struct {
	parts     AssistantParts
	out       io.Writer
	styles    Styles
	tempDir   string
	sessionID string
	now       func() time.Time
	metrics   *observe.Metrics
	history   []types.Message

	mu           sync.RWMutex
	exit         *ExitMatcher
	language     string
	voice        string
	historyTurns int
}

// NewAssistant returns an Assistant configured from cfg.
func NewAssistant(cfg config.AssistantConfig, parts AssistantParts, opts ...AssistantOption) (*Assistant, error) {
	var missing []string
	if parts.Recorder == nil {
		missing = append(missing, "recorder")
	}
	if parts.Source == nil {
		missing = append(missing, "audio source")
	}
	if parts.STT == nil {
		missing = append(missing, "stt provider")
	}
	if parts.Agent == nil {
		missing = append(missing, "agent")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("app: assistant requires %s", strings.Join(missing, ", "))
	}

	a := &Assistant{
		parts:   parts,
		out:     os.Stdout,
		styles:  DefaultStyles(),
		tempDir: os.TempDir(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	if a.sessionID == "" {
		a.sessionID = convlog.NewSessionID()
	}
	a.Reconfigure(cfg)
	return a, nil
}

// SessionID returns the id stamped on logged turns.
func (a *Assistant) SessionID() string { return a.sessionID }

// History returns a copy of the conversation so far.
func (a *Assistant) History() []types.Message {
	return append([]types.Message(nil), a.history...)
}

// Reconfigure applies the hot-reloadable assistant settings.
func (a *Assistant) Reconfigure(cfg config.AssistantConfig) {
	word := cfg.ExitWord
	if word == "" {
		word = config.DefaultExitWord
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exit = NewExitMatcher(word)
	a.language = cfg.Language
	a.voice = cfg.Voice
	a.historyTurns = cfg.HistoryTurns
}

type settings struct {
	exit         *ExitMatcher
	language     string
	voice        string
	historyTurns int
}

func (a *Assistant) settings() settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return settings{exit: a.exit, language: a.language, voice: a.voice, historyTurns: a.historyTurns}
}

// Run loops until the exit word is heard (nil), ctx is cancelled (the
// context error) or a device fails.
func (a *Assistant) Run(ctx context.Context) error {
	s := a.settings()
	a.print(a.styles.Notice, fmt.Sprintf("🎙️ 음성 비서를 시작합니다. '%s'라고 말하면 종료합니다.", s.exit.Word()))
	slog.Info("app: assistant started", "session_id", a.sessionID)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := a.Step(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Step runs one turn of the loop. It returns done when the exit word was
// heard. Errors are fatal: device failures and cancellation. Provider
// failures are printed and reported as a finished turn.
func (a *Assistant) Step(ctx context.Context) (done bool, err error) {
	s := a.settings()
	ctx, span := observe.StartSpan(ctx, "assistant.turn")
	defer span.End()

	a.print(a.styles.Notice, "🎤 말씀하세요...")
	res, err := a.parts.Recorder.Record(ctx, a.parts.Source)
	switch {
	case errors.Is(err, recorder.ErrNoSpeech):
		a.print(a.styles.Notice, "음성이 감지되지 않았습니다. 다시 말씀해 주세요.")
		return false, nil
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, fmt.Errorf("app: record: %w", err)
	}
	if a.metrics != nil {
		a.metrics.RecordRecording(ctx, res.StopReason.String(), res.Duration())
	}

	wav, err := res.WAV()
	if errors.Is(err, audio.ErrEmptyAudio) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("app: encode recording: %w", err)
	}
	if err := os.WriteFile(filepath.Join(a.tempDir, InputFile), wav, 0o644); err != nil {
		return false, fmt.Errorf("app: write recording: %w", err)
	}

	tr, err := a.parts.STT.Transcribe(ctx, stt.Request{Audio: wav, Language: s.language})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		a.fail(ctx, "음성 인식에 실패했습니다", err)
		return false, nil
	}
	text := strings.TrimSpace(tr.Text)
	if text == "" {
		a.print(a.styles.Notice, "인식된 내용이 없습니다.")
		return false, nil
	}
	a.print(a.styles.User, "👤 사용자: "+text)

	if s.exit.Match(text) {
		a.print(a.styles.Notice, ExitMessage)
		slog.Info("app: exit word heard", "session_id", a.sessionID, "word", s.exit.Word())
		a.logTurn(ctx, text, ExitMessage)
		return true, nil
	}

	var history []types.Message
	if s.historyTurns > 0 {
		history = agent.TrimHistory(a.history, s.historyTurns)
	}
	ans, err := a.parts.Agent.Ask(ctx, history, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		a.fail(ctx, "AI 응답을 가져오지 못했습니다", err)
		return false, nil
	}
	a.history = append(a.history, ans.Messages...)
	if s.historyTurns > 0 {
		a.history = agent.TrimHistory(a.history, s.historyTurns)
	}
	a.print(a.styles.AI, "🤖 AI: "+ans.Text)

	a.logTurn(ctx, text, ans.Text)

	if err := a.speak(ctx, ans.Text, s.voice); err != nil {
		return false, err
	}
	return false, nil
}

// speak synthesizes reply, stores it as a temporary WAV file, plays it and
// removes the file. Only playback and cancellation errors are returned.
func (a *Assistant) speak(ctx context.Context, reply, voice string) error {
	if a.parts.TTS == nil || a.parts.Sink == nil || strings.TrimSpace(reply) == "" {
		return nil
	}
	au, err := a.parts.TTS.Synthesize(ctx, tts.Request{Text: reply, Voice: voice, Format: tts.FormatWAV})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		a.fail(ctx, "음성 합성에 실패했습니다", err)
		return nil
	}

	path := filepath.Join(a.tempDir, export.DefaultName("reply", tts.FormatWAV, a.now()))
	if err := os.WriteFile(path, au.Data, 0o644); err != nil {
		return fmt.Errorf("app: write reply audio: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			slog.Warn("app: failed to remove reply audio", "path", path, "err", err)
		}
	}()

	samples, rate, err := au.Samples()
	if err != nil {
		a.fail(ctx, "음성을 재생할 수 없습니다", err)
		return nil
	}
	if len(samples) == 0 {
		return nil
	}
	if err := a.parts.Sink.Play(ctx, samples, rate); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("app: play reply: %w", err)
	}
	return nil
}

func (a *Assistant) print(style lipgloss.Style, line string) {
	fmt.Fprintln(a.out, style.Render(line))
}

// logTurn appends one exchange to the conversation log. Log failures only
// warn.
func (a *Assistant) logTurn(ctx context.Context, user, reply string) {
	if a.parts.Log == nil {
		return
	}
	turn := convlog.Turn{SessionID: a.sessionID, Time: a.now(), User: user, Assistant: reply}
	if err := a.parts.Log.Append(ctx, turn); err != nil {
		slog.Warn("app: failed to log turn", "session_id", a.sessionID, "err", err)
	}
}

// fail reports a recoverable provider error. The trace id, when there is
// one, is printed so the turn can be found in the logs.
func (a *Assistant) fail(ctx context.Context, msg string, err error) {
	id := observe.CorrelationID(ctx)
	observe.Logger(ctx).Error("app: "+msg, "session_id", a.sessionID, "err", err)
	line := fmt.Sprintf("⚠️ %s: %v", msg, err)
	if id != "" {
		line += " (trace " + id + ")"
	}
	a.print(a.styles.Error, line)
}
