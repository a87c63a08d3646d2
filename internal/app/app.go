// Package app wires the voxa subsystems into a running application.
//
// The App struct owns the shared lifecycle: New creates the tool host, the
// chat agent, the exporter, the content generators and the conversation log;
// NewAssistant builds the voice loop on top of them; Shutdown tears everything
// down in reverse order.
//
// For testing, inject doubles via functional options (WithToolHost,
// WithConvLog, ...). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/voxa/internal/agent"
	"github.com/MrWong99/voxa/internal/config"
	"github.com/MrWong99/voxa/internal/content"
	"github.com/MrWong99/voxa/internal/convlog"
	"github.com/MrWong99/voxa/internal/export"
	"github.com/MrWong99/voxa/internal/health"
	"github.com/MrWong99/voxa/internal/observe"
	"github.com/MrWong99/voxa/internal/resilience"
	"github.com/MrWong99/voxa/internal/tools"
	"github.com/MrWong99/voxa/pkg/audio"
	"github.com/MrWong99/voxa/pkg/provider/llm"
	"github.com/MrWong99/voxa/pkg/provider/moderation"
	"github.com/MrWong99/voxa/pkg/provider/stt"
	"github.com/MrWong99/voxa/pkg/provider/tts"
	"github.com/MrWong99/voxa/pkg/types"
)

// ErrNoModeration is returned by [App.Content] when no moderation provider
// is configured. Content generators never run unmoderated.
var ErrNoModeration = errors.New("app: content generators require a moderation provider")

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	LLM        llm.Provider
	STT        stt.Provider
	TTS        tts.Provider
	Moderation moderation.Provider
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics

	tools     *tools.Host
	agent     *agent.Agent
	exporter  *export.Exporter
	log       convlog.Sink
	store     *convlog.PostgresSink
	pipeline  *content.Pipeline
	evaluator *content.Evaluator
	checkers  []health.Checker

	// mu guards cfg after New and assistant.
	mu        sync.Mutex
	assistant *Assistant

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithToolHost injects a tool host instead of creating one. The caller keeps
// ownership; Shutdown does not close it.
func WithToolHost(h *tools.Host) Option {
	return func(a *App) { a.tools = h }
}

// WithConvLog injects the conversation log instead of building it from
// config. Shutdown does not close it.
func WithConvLog(s convlog.Sink) Option {
	return func(a *App) { a.log = s }
}

// WithMetrics records provider, tool, export and generation metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Only the LLM is
// required; the other subsystems degrade when their provider is missing.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.LLM == nil {
		return nil, errors.New("app: an LLM provider is required")
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Exporter ──────────────────────────────────────────────────────
	a.initExporter()

	// ── 2. Tools ─────────────────────────────────────────────────────────
	if err := a.initTools(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init tools: %w", err)
	}

	// ── 3. Agent ─────────────────────────────────────────────────────────
	if err := a.initAgent(); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init agent: %w", err)
	}

	// ── 4. Content generators ────────────────────────────────────────────
	a.initContent()

	// ── 5. Conversation log ──────────────────────────────────────────────
	if err := a.initConvLog(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init conversation log: %w", err)
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initExporter() {
	ec := a.cfg.Export
	opts := []export.Option{export.WithConcurrency(ec.Concurrency)}
	if ec.FontPath != "" {
		opts = append(opts, export.WithFontPath(ec.FontPath))
	}
	if a.metrics != nil {
		opts = append(opts, export.WithMetrics(a.metrics))
	}
	a.exporter = export.New(ec.Dir, opts...)

	dir := ec.Dir
	if dir == "" {
		dir = "."
	}
	a.checkers = append(a.checkers, health.DirWritable("export_dir", dir))
}

// initTools registers the built-in tools and connects every MCP server.
func (a *App) initTools(ctx context.Context) error {
	if a.tools == nil {
		var hopts []tools.HostOption
		if a.metrics != nil {
			hopts = append(hopts, tools.WithMetrics(a.metrics))
		}
		host := tools.NewHost(hopts...)
		a.tools = host
		a.closers = append(a.closers, host.Close)
	}

	if err := a.tools.Register(tools.Builtins(tools.BuiltinConfig{Reports: a.exporter})...); err != nil {
		return fmt.Errorf("register built-in tools: %w", err)
	}

	for _, srv := range a.cfg.MCP.Servers {
		if err := a.tools.RegisterServer(ctx, srv); err != nil {
			return fmt.Errorf("register mcp server %q: %w", srv.Name, err)
		}
		slog.Info("registered MCP server", "name", srv.Name, "transport", srv.Transport)
	}
	return nil
}

func (a *App) initAgent() error {
	ac := a.cfg.Assistant
	ag, err := agent.New(agent.Config{
		LLM:          a.providers.LLM,
		Tools:        a.tools,
		ToolNames:    ac.Tools,
		SystemPrompt: ac.SystemPrompt,
		Retry: resilience.RetryConfig{
			MaxAttempts: ac.Retry.MaxAttempts,
			Delay:       ac.Retry.Delay,
			Classify:    content.Classify,
		},
		FailureText: ac.FailureText,
		Metrics:     a.metrics,
	})
	if err != nil {
		return err
	}
	a.agent = ag
	return nil
}

func (a *App) initContent() {
	if a.providers.Moderation == nil {
		slog.Debug("no moderation provider; content generators disabled")
		return
	}
	gate := content.NewGate(a.providers.Moderation, a.metrics)
	var popts []content.PipelineOption
	if a.providers.TTS != nil {
		popts = append(popts, content.WithTTS(a.providers.TTS))
	}
	a.pipeline = content.NewPipeline(gate, a.agent, popts...)
	a.evaluator = content.NewEvaluator(a.agent)
}

// initConvLog builds the file sink and, when a DSN is configured, the
// PostgreSQL sink.
func (a *App) initConvLog(ctx context.Context) error {
	if a.log != nil {
		return nil
	}
	lc := a.cfg.ConversationLog

	var sinks []convlog.Sink
	if lc.Path != "-" {
		sinks = append(sinks, convlog.NewFileSink(lc.Path))
	}

	if lc.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, lc.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		store := convlog.NewPostgresSink(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return err
		}
		store.OnClose(pool.Close)
		a.store = store
		sinks = append(sinks, store)
		a.checkers = append(a.checkers, health.Checker{Name: "postgres", Check: pool.Ping})
		slog.Info("conversation turns stored in postgres")
	}

	m := convlog.NewMulti(sinks...)
	a.log = m
	a.closers = append(a.closers, m.Close)
	return nil
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Agent returns the chat agent.
func (a *App) Agent() *agent.Agent { return a.agent }

// Tools returns the tool host.
func (a *App) Tools() *tools.Host { return a.tools }

// Exporter returns the file exporter.
func (a *App) Exporter() *export.Exporter { return a.exporter }

// ConvLog returns the conversation log.
func (a *App) ConvLog() convlog.Sink { return a.log }

// Providers returns the provider set the App was built with.
func (a *App) Providers() *Providers { return a.providers }

// Checkers returns the readiness checks for the ops listener.
func (a *App) Checkers() []health.Checker {
	return append([]health.Checker(nil), a.checkers...)
}

// Content returns the moderated generation pipeline and the ad evaluator.
func (a *App) Content() (*content.Pipeline, *content.Evaluator, error) {
	if a.pipeline == nil {
		return nil, nil, ErrNoModeration
	}
	return a.pipeline, a.evaluator, nil
}

// ─── Assistant ───────────────────────────────────────────────────────────────

// NewAssistant builds the voice loop from the App's agent, providers and
// conversation log. The App keeps a reference so [App.ApplyConfig] reaches
// it.
func (a *App) NewAssistant(rec Recorder, src audio.Source, sink audio.Sink, opts ...AssistantOption) (*Assistant, error) {
	if a.metrics != nil {
		opts = append([]AssistantOption{WithAssistantMetrics(a.metrics)}, opts...)
	}
	a.mu.Lock()
	ac := a.cfg.Assistant
	a.mu.Unlock()
	as, err := NewAssistant(ac, AssistantParts{
		Recorder: rec,
		Source:   src,
		Sink:     sink,
		STT:      a.providers.STT,
		TTS:      a.providers.TTS,
		Agent:    a.agent,
		Log:      a.log,
	}, opts...)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.assistant = as
	a.mu.Unlock()
	return as, nil
}

// ResumeHistory loads up to turns of the newest exchanges of sessionID from
// PostgreSQL as chat history. Without a PostgreSQL sink it returns nil.
func (a *App) ResumeHistory(ctx context.Context, sessionID string, turns int) ([]types.Message, error) {
	if a.store == nil {
		return nil, nil
	}
	recent, err := a.store.Recent(ctx, sessionID, turns)
	if err != nil {
		return nil, fmt.Errorf("app: resume session: %w", err)
	}
	msgs := make([]types.Message, 0, 2*len(recent))
	for _, t := range recent {
		msgs = append(msgs,
			types.Message{Role: types.RoleUser, Content: t.User},
			types.Message{Role: types.RoleAssistant, Content: t.Assistant},
		)
	}
	return msgs, nil
}

// ─── Hot reload ──────────────────────────────────────────────────────────────

// ApplyConfig applies the hot-reloadable differences between old and new and
// returns the diff. Changes that need a restart are only logged.
func (a *App) ApplyConfig(old, new *config.Config) config.ConfigDiff {
	d := config.Diff(old, new)

	if d.SystemPromptChanged {
		a.agent.SetSystemPrompt(new.Assistant.SystemPrompt)
		slog.Info("config reload: system prompt updated")
	}
	if d.ToolsChanged {
		a.agent.SetToolNames(new.Assistant.Tools)
		slog.Info("config reload: tool selection updated", "tools", new.Assistant.Tools)
	}
	if d.ExitWordChanged || d.VoiceChanged {
		a.mu.Lock()
		as := a.assistant
		a.mu.Unlock()
		if as != nil {
			as.Reconfigure(new.Assistant)
			slog.Info("config reload: assistant updated", "exit_word", new.Assistant.ExitWord, "voice", new.Assistant.Voice)
		}
	}
	if d.RestartRequired {
		slog.Warn("config reload: provider, recorder or MCP changes take effect after restart")
	}
	a.mu.Lock()
	a.cfg = new
	a.mu.Unlock()
	return d
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll runs the closers registered so far after a failed New.
func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("closer error", "index", i, "err", err)
		}
	}
	a.closers = nil
}
