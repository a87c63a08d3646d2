package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/voxa/internal/app"
	"github.com/MrWong99/voxa/internal/config"
	"github.com/MrWong99/voxa/internal/health"
	"github.com/MrWong99/voxa/pkg/audio/portaudio"
	"github.com/MrWong99/voxa/pkg/audio/recorder"
)

// playbackRate is the speaker rate. Replies at other rates are resampled.
const playbackRate = 24000

var (
	assistantResume string
	assistantTemp   string
	assistantQuiet  bool
	assistantReload time.Duration
)

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Voice assistant loop",
	Long: `Listen on the default microphone, transcribe each utterance, answer
with the chat model (weather, news and PDF report tools included) and speak
the reply. Say the exit word (assistant.exit_word, default "종료") to stop.

Every turn is appended to conversation_log.txt. With
conversation_log.postgres_dsn set, turns are also stored in PostgreSQL and a
session can be continued with --resume.

Examples:
  voxa assistant
  voxa assistant -c config.yaml --resume 7f0c...`,
	RunE: runAssistant,
}

func init() {
	f := assistantCmd.Flags()
	f.StringVar(&assistantResume, "resume", "", "continue the PostgreSQL-logged session with this id")
	f.StringVar(&assistantTemp, "temp-dir", "", "directory for input.wav and reply audio (default: system temp dir)")
	f.BoolVarP(&assistantQuiet, "quiet", "q", false, "do not print the startup summary")
	f.DurationVar(&assistantReload, "reload-interval", 2*time.Second, "config file poll interval for hot reload (0 disables)")
	rootCmd.AddCommand(assistantCmd)
}

func runAssistant(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := setup(ctx, cmd.Name())
	if err != nil {
		return err
	}
	defer rt.close()

	if rt.app.Providers().STT == nil {
		return errors.New("assistant requires providers.stt")
	}
	if !assistantQuiet {
		printStartupSummary(cmd.OutOrStdout(), rt.cfg)
	}

	if addr := rt.cfg.Server.ListenAddr; addr != "" {
		h := health.New(rt.app.Checkers()...)
		go func() {
			if err := health.Serve(ctx, addr, h, rt.metrics); err != nil {
				slog.Error("operations listener failed", "addr", addr, "err", err)
			}
		}()
	}

	if rt.fromFile && assistantReload > 0 {
		w, err := config.NewWatcher(configPath, func(old, new *config.Config) {
			d := rt.app.ApplyConfig(old, new)
			if d.LogLevelChanged && logLevel == "" {
				rt.level.Set(slogLevel(d.NewLogLevel))
				slog.Info("config reload: log level updated", "level", d.NewLogLevel)
			}
		}, config.WithInterval(assistantReload))
		if err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	recCfg, err := app.RecorderConfig(rt.cfg.Recorder)
	if err != nil {
		return err
	}
	rec, err := recorder.New(recCfg, recorder.WithStateHook(func(s recorder.State) {
		slog.Debug("recorder state", "state", s)
	}))
	if err != nil {
		return err
	}

	mic, err := portaudio.OpenCapture(recCfg.SampleRate, recCfg.FrameDuration)
	if err != nil {
		return err
	}
	defer closeDevice("microphone", mic.Close)

	speaker, err := portaudio.OpenPlayback(playbackRate)
	if err != nil {
		return err
	}
	defer closeDevice("speaker", speaker.Close)

	opts := []app.AssistantOption{app.WithOutput(cmd.OutOrStdout())}
	if assistantTemp != "" {
		if err := os.MkdirAll(assistantTemp, 0o755); err != nil {
			return fmt.Errorf("create temp dir: %w", err)
		}
		opts = append(opts, app.WithTempDir(assistantTemp))
	}
	if assistantResume != "" {
		turns := rt.cfg.Assistant.HistoryTurns
		if turns == 0 {
			slog.Warn("assistant.history_turns is 0; resumed turns are not sent to the model")
		}
		history, err := rt.app.ResumeHistory(ctx, assistantResume, turns)
		if err != nil {
			return err
		}
		if rt.cfg.ConversationLog.PostgresDSN == "" {
			slog.Warn("--resume needs conversation_log.postgres_dsn; starting without history")
		}
		opts = append(opts, app.WithSessionID(assistantResume), app.WithHistory(history))
	}

	as, err := rt.app.NewAssistant(rec, mic, speaker, opts...)
	if err != nil {
		return err
	}
	slog.Info("assistant ready", "session_id", as.SessionID())

	err = as.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.Info("interrupted, stopping")
		return nil
	}
	return err
}

func closeDevice(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		slog.Warn("failed to close audio device", "device", name, "err", err)
	}
}
