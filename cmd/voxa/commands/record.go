package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/voxa/internal/app"
	"github.com/MrWong99/voxa/internal/config"
	"github.com/MrWong99/voxa/internal/export"
	"github.com/MrWong99/voxa/pkg/audio/portaudio"
	"github.com/MrWong99/voxa/pkg/audio/recorder"
	"github.com/MrWong99/voxa/pkg/provider/stt"
)

var (
	recordOut        string
	recordPolicy     string
	recordTranscribe bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one utterance to a WAV file",
	Long: `Record from the default microphone until the speaker falls silent and
write a mono 16-bit WAV file.

The recorder policy comes from recorder.policy:
  speech_triggered  wait for speech, stop after silence_duration of quiet
  grace_period      ignore loudness for grace_period, then stop on silence

With --transcribe the recording is also sent to providers.stt and the
transcript is written as a TXT export.

Examples:
  voxa record -o question.wav
  voxa record --policy grace_period --transcribe`,
	RunE: runRecord,
}

func init() {
	f := recordCmd.Flags()
	f.StringVarP(&recordOut, "output", "o", app.InputFile, "output WAV path")
	f.StringVar(&recordPolicy, "policy", "", "override recorder.policy (grace_period|speech_triggered)")
	f.BoolVar(&recordTranscribe, "transcribe", false, "transcribe the recording and export the text")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	installLogger(cfg)

	rc := cfg.Recorder
	if recordPolicy != "" {
		rc.Policy = recordPolicy
	}
	recCfg, err := app.RecorderConfig(rc)
	if err != nil {
		return err
	}
	rec, err := recorder.New(recCfg)
	if err != nil {
		return err
	}

	mic, err := portaudio.OpenCapture(recCfg.SampleRate, recCfg.FrameDuration)
	if err != nil {
		return err
	}
	defer closeDevice("microphone", mic.Close)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, dimStyle.Render("🎤 말씀하세요..."))
	res, err := rec.Record(ctx, mic)
	wav, err := saveRecording(out, recordOut, res, err)
	if err != nil || wav == nil || !recordTranscribe {
		return err
	}
	p, err := newSTT(cfg)
	if err != nil {
		return err
	}
	if c, ok := p.(io.Closer); ok {
		defer closeAll([]io.Closer{c})
	}
	tr, err := p.Transcribe(ctx, stt.Request{Audio: wav, Language: cfg.Assistant.Language})
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	text := strings.TrimSpace(tr.Text)
	fmt.Fprintln(out, "👤 "+text)

	path, err := export.New(cfg.Export.Dir).Transcript(ctx, "", text)
	if err != nil {
		return err
	}
	slog.Info("transcript exported", "path", path)
	fmt.Fprintln(out, successStyle.Render("✓ "+path))
	return nil
}

// saveRecording writes the outcome of one Record call to path and returns
// the WAV bytes. When no speech was detected it prints a notice and returns
// nil bytes without an error.
func saveRecording(out io.Writer, path string, res *recorder.Result, recErr error) ([]byte, error) {
	if errors.Is(recErr, recorder.ErrNoSpeech) {
		fmt.Fprintln(out, dimStyle.Render("음성이 감지되지 않았습니다."))
		return nil, nil
	}
	if recErr != nil {
		return nil, recErr
	}
	wav, err := res.WAV()
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ %s (%.1fs, %s)", path, res.Duration().Seconds(), res.StopReason)))
	return wav, nil
}

// newSTT builds the configured STT provider without the rest of the app.
func newSTT(cfg *config.Config) (stt.Provider, error) {
	if cfg.Providers.STT.Name == "" {
		return nil, errors.New("providers.stt is not configured")
	}
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	return reg.CreateSTT(cfg.Providers.STT)
}
