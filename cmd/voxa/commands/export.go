package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWong99/voxa/internal/export"
)

var narrateFlags struct {
	file  string
	name  string
	voice string
	mp3   bool
}

var narrateCmd = &cobra.Command{
	Use:   "narrate [text...]",
	Short: "Narrate text with sentence-timed subtitles",
	Long: `Split text into sentences, synthesize each one (several in parallel,
bounded by export.concurrency), join them into one WAV track and write an
SRT file whose cues follow the sentence lengths.

With --mp3 the whole text is synthesized in one request and written as MP3
instead.

Examples:
  voxa narrate "안녕하세요. 오늘의 뉴스입니다."
  voxa narrate -f story.txt --name story`,
	RunE: runNarrate,
}

var reportFlags struct {
	file  string
	title string
	name  string
}

var reportCmd = &cobra.Command{
	Use:   "report [content...]",
	Short: "Write a PDF report",
	Long: `Render a titled PDF report into the export dir. Hangul needs a TTF
font configured in export.font_path.

Examples:
  voxa report --title "3분기 실적" "매출이 12% 증가했습니다."
  voxa report --title "회의록" -f notes.txt`,
	RunE: runReport,
}

func init() {
	f := narrateCmd.Flags()
	f.StringVarP(&narrateFlags.file, "file", "f", "", `read the text from a file ("-" for stdin)`)
	f.StringVar(&narrateFlags.name, "name", "", "base file name (default: narration_<unix>)")
	f.StringVar(&narrateFlags.voice, "voice", "", "TTS voice (default: assistant.voice)")
	f.BoolVar(&narrateFlags.mp3, "mp3", false, "write a single MP3 without subtitles")

	f = reportCmd.Flags()
	f.StringVarP(&reportFlags.file, "file", "f", "", `read the content from a file ("-" for stdin)`)
	f.StringVar(&reportFlags.title, "title", "", "report title (required)")
	f.StringVar(&reportFlags.name, "name", "", "file name (default: Report_<unix>.pdf)")
	_ = reportCmd.MarkFlagRequired("title")

	rootCmd.AddCommand(narrateCmd, reportCmd)
}

func runNarrate(cmd *cobra.Command, args []string) error {
	f := narrateFlags
	text, err := readText(cmd.InOrStdin(), args, f.file)
	if err != nil {
		return err
	}
	if text == "" {
		return errors.New("nothing to narrate")
	}

	ctx := cmd.Context()
	rt, err := setup(ctx, cmd.Name())
	if err != nil {
		return err
	}
	defer rt.close()

	p := rt.app.Providers().TTS
	if p == nil {
		return errors.New("narrate requires providers.tts")
	}
	voice := f.voice
	if voice == "" {
		voice = rt.cfg.Assistant.Voice
	}
	exp := rt.app.Exporter()
	out := cmd.OutOrStdout()

	if f.mp3 {
		name := f.name
		if name != "" {
			name += "." + export.FormatMP3
		}
		path, err := exp.MP3(ctx, p, name, text, voice)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, successStyle.Render("🔊 "+path))
		return nil
	}

	n, files, err := exp.Karaoke(ctx, p, f.name, text, voice)
	if err != nil {
		return err
	}
	for _, c := range n.Cues {
		fmt.Fprintf(out, "%s %s\n", dimStyle.Render(export.FormatTimestamp(c.Start)), c.Text)
	}
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("🔊 %s (%.1fs)", files.WAV, n.Duration.Seconds())))
	fmt.Fprintln(out, successStyle.Render("✓ "+files.SRT))
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	f := reportFlags
	body, err := readText(cmd.InOrStdin(), args, f.file)
	if err != nil {
		return err
	}
	if body == "" {
		return errors.New("report content is empty")
	}

	ctx := cmd.Context()
	rt, err := setup(ctx, cmd.Name())
	if err != nil {
		return err
	}
	defer rt.close()

	path, err := rt.app.Exporter().Report(ctx, f.name, f.title, body)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("📄 "+path))
	return nil
}
