// Package commands implements the voxa command tree.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/MrWong99/voxa/internal/app"
	"github.com/MrWong99/voxa/internal/config"
	"github.com/MrWong99/voxa/internal/observe"
)

// version is overridden at build time with -ldflags "-X ...commands.version=".
var version = "dev"

// shutdownTimeout bounds the graceful shutdown of the app and telemetry.
const shutdownTimeout = 15 * time.Second

var (
	configPath string
	envFiles   []string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "voxa",
	Short: "Voice and text assistant toolkit",
	Long: `voxa records speech, transcribes it, answers with a chat model and
speaks the reply. It also generates marketing copy and scripts behind a
moderation gate, and exports text, subtitles, PDF reports and narration.

Providers are selected in config.yaml:

  providers:
    llm:        { name: openai, model: gpt-4o-mini }
    stt:        { name: openai, model: whisper-1 }
    tts:        { name: openai, model: tts-1 }
    moderation: { name: openai }

API keys default to OPENAI_API_KEY, ANTHROPIC_API_KEY, ELEVENLABS_API_KEY...`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	pf.StringSliceVar(&envFiles, "env", []string{".env"}, ".env files loaded before the config")
	pf.StringVar(&logLevel, "log-level", "", "override server.log_level (debug|info|warn|error)")
}

// Execute runs the root command with a context cancelled on SIGINT or
// SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig loads the .env files and the config file. A missing config file
// falls back to [config.Default] unless --config was given explicitly.
func loadConfig() (*config.Config, bool, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, false, err
	}
	cfg, err := config.Load(configPath)
	fromFile := true
	switch {
	case errors.Is(err, os.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config"):
		cfg, fromFile = config.Default(), false
	case err != nil:
		return nil, false, err
	}
	if logLevel != "" {
		lvl := config.LogLevel(logLevel)
		if !lvl.IsValid() {
			return nil, false, fmt.Errorf("invalid --log-level %q", logLevel)
		}
		cfg.Server.LogLevel = lvl
	}
	return cfg, fromFile, nil
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger returns a text logger on stderr whose level follows lvl.
func newLogger(lvl *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// installLogger sets the default logger at the configured level and returns
// the level so it can follow config reloads.
func installLogger(cfg *config.Config) *slog.LevelVar {
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(newLogger(level))
	return level
}

// runtime is everything a command needs after startup.
type runtime struct {
	cfg      *config.Config
	fromFile bool
	level    *slog.LevelVar
	metrics  *observe.Metrics
	app      *app.App

	providerClosers   []io.Closer
	shutdownTelemetry func(context.Context) error
}

// setup loads the configuration, installs the logger and telemetry, builds
// the providers and wires the application.
func setup(ctx context.Context, command string) (*runtime, error) {
	cfg, fromFile, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := installLogger(cfg)
	slog.Info("voxa starting", "version", version, "config", configPath, "from_file", fromFile, "log_level", cfg.Server.LogLevel)

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voxa",
		ServiceVersion: version,
		Command:        command,
		SampleRatio:    cfg.Server.TraceSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	rt := &runtime{cfg: cfg, fromFile: fromFile, level: level, shutdownTelemetry: shutdown}

	rt.metrics, err = observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	providers, closers, err := buildProviders(cfg, reg, rt.metrics)
	rt.providerClosers = closers
	if err != nil {
		rt.close()
		return nil, err
	}

	rt.app, err = app.New(ctx, cfg, providers, app.WithMetrics(rt.metrics))
	if err != nil {
		rt.close()
		return nil, err
	}
	return rt, nil
}

// close shuts down the application and flushes telemetry.
func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if rt.app != nil {
		if err := rt.app.Shutdown(ctx); err != nil {
			slog.Warn("shutdown error", "err", err)
		}
	}
	closeAll(rt.providerClosers)
	if rt.shutdownTelemetry != nil {
		if err := rt.shutdownTelemetry(ctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}
}
