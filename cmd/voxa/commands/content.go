package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/voxa/internal/content"
)

// outputFlags are shared by every generator command.
type outputFlags struct {
	speak bool
	voice string
	save  bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&o.speak, "speak", false, "synthesize the [BEST] section as MP3 into the export dir")
	f.StringVar(&o.voice, "voice", "", "TTS voice (default: assistant.voice)")
	f.BoolVar(&o.save, "save", false, "also write the generated text as a TXT export")
}

// ============================================================================
// adcopy
// ============================================================================

var adcopyFlags struct {
	product  string
	message  string
	target   string
	variants int
	out      outputFlags
}

var adcopyCmd = &cobra.Command{
	Use:   "adcopy",
	Short: "Generate ad copy",
	Long: `Generate three short ad copies for a product.

With --variants the model writes N numbered variants instead. With --target
it writes one ad tailored to the audience, with a [BEST] section that
--speak reads aloud.

Examples:
  voxa adcopy --product "콜드브루 커피" --message "아침을 깨우는 한 잔"
  voxa adcopy --product "러닝화" --variants 5
  voxa adcopy --product "러닝화" --target "20대 직장인" --speak`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := adcopyFlags
		req := content.Request{
			Kind:    content.KindAdCopy,
			Product: f.product,
			Message: f.message,
			Target:  f.target,
		}
		switch {
		case f.target != "":
			req.Kind = content.KindTargetedAd
		case cmd.Flags().Changed("variants"):
			req.Kind = content.KindAdVariants
			req.Variants = f.variants
		}
		return runGenerate(cmd, req, f.out)
	},
}

// ============================================================================
// evaluate
// ============================================================================

var evaluateFlags struct {
	file     string
	product  string
	message  string
	variants int
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [ad...]",
	Short: "Score ad copy and pick the best",
	Long: `Score each ad from 0 to 100 on appeal, clarity, persuasiveness and
memorability, and report the highest scoring one.

Ads come from the arguments, from a numbered list in --file ("-" reads
stdin), or are generated first with --product.

Examples:
  voxa evaluate "첫 번째 광고" "두 번째 광고"
  voxa evaluate -f ads.txt
  voxa evaluate --product "러닝화" --variants 5`,
	RunE: runEvaluate,
}

// ============================================================================
// sns
// ============================================================================

var snsFlags struct {
	topic    string
	platform string
	style    string
	target   string
	out      outputFlags
}

var snsCmd = &cobra.Command{
	Use:   "sns",
	Short: "Generate a social media post",
	Long: `Write a post for Instagram, Facebook, Twitter/X, LinkedIn or TikTok
with platform-appropriate length and hashtags.

Example:
  voxa sns --topic "신제품 출시" --platform instagram --style 유쾌한 --target "20대"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := snsFlags
		return runGenerate(cmd, content.Request{
			Kind:     content.KindSNS,
			Topic:    f.topic,
			Platform: f.platform,
			Style:    f.style,
			Target:   f.target,
		}, f.out)
	},
}

// ============================================================================
// youtube
// ============================================================================

var youtubeFlags struct {
	topic    string
	duration string
	style    string
	target   string
	out      outputFlags
}

var youtubeCmd = &cobra.Command{
	Use:   "youtube",
	Short: "Generate a YouTube video script",
	Long: `Write a video script with a hook, key points sized to the duration
and a call to action.

Example:
  voxa youtube --topic "홈카페 입문" --duration 5분 --style 친근한`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := youtubeFlags
		return runGenerate(cmd, content.Request{
			Kind:     content.KindYouTube,
			Topic:    f.topic,
			Duration: f.duration,
			Style:    f.style,
			Target:   f.target,
		}, f.out)
	},
}

// ============================================================================
// script
// ============================================================================

var scriptFlags struct {
	file string
	out  outputFlags
}

var scriptCmd = &cobra.Command{
	Use:   "script [prompt...]",
	Short: "Free-form script generation",
	Long: `Send a free-form prompt to the script writer persona.

Examples:
  voxa script "30초 라디오 광고 대본을 써줘"
  voxa script -f brief.txt --speak`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, err := readText(cmd.InOrStdin(), args, scriptFlags.file)
		if err != nil {
			return err
		}
		return runGenerate(cmd, content.Request{Kind: content.KindScript, Topic: prompt}, scriptFlags.out)
	},
}

func init() {
	f := adcopyCmd.Flags()
	f.StringVar(&adcopyFlags.product, "product", "", "product name (required)")
	f.StringVar(&adcopyFlags.message, "message", "", "key message")
	f.StringVar(&adcopyFlags.target, "target", "", "target audience; writes one targeted ad")
	f.IntVar(&adcopyFlags.variants, "variants", content.DefaultVariants, "write this many numbered variants")
	_ = adcopyCmd.MarkFlagRequired("product")
	adcopyFlags.out.register(adcopyCmd)

	f = evaluateCmd.Flags()
	f.StringVarP(&evaluateFlags.file, "file", "f", "", `numbered list of ads ("-" for stdin)`)
	f.StringVar(&evaluateFlags.product, "product", "", "generate variants for this product first")
	f.StringVar(&evaluateFlags.message, "message", "", "key message for generated variants")
	f.IntVar(&evaluateFlags.variants, "variants", content.DefaultVariants, "number of generated variants")

	f = snsCmd.Flags()
	f.StringVar(&snsFlags.topic, "topic", "", "post topic (required)")
	f.StringVar(&snsFlags.platform, "platform", "instagram", "instagram|facebook|twitter|linkedin|tiktok")
	f.StringVar(&snsFlags.style, "style", "", "tone, e.g. 유쾌한")
	f.StringVar(&snsFlags.target, "target", "", "target audience")
	_ = snsCmd.MarkFlagRequired("topic")
	snsFlags.out.register(snsCmd)

	f = youtubeCmd.Flags()
	f.StringVar(&youtubeFlags.topic, "topic", "", "video topic (required)")
	f.StringVar(&youtubeFlags.duration, "duration", "5분", "video length, e.g. 1분, 5분, 10분")
	f.StringVar(&youtubeFlags.style, "style", "", "tone")
	f.StringVar(&youtubeFlags.target, "target", "", "target audience")
	_ = youtubeCmd.MarkFlagRequired("topic")
	youtubeFlags.out.register(youtubeCmd)

	scriptCmd.Flags().StringVarP(&scriptFlags.file, "file", "f", "", `read the prompt from a file ("-" for stdin)`)
	scriptFlags.out.register(scriptCmd)

	rootCmd.AddCommand(adcopyCmd, evaluateCmd, snsCmd, youtubeCmd, scriptCmd)
}

// runGenerate runs one moderated generation and prints (and optionally
// exports) the result.
func runGenerate(cmd *cobra.Command, req content.Request, o outputFlags) error {
	ctx := cmd.Context()
	rt, err := setup(ctx, cmd.Name())
	if err != nil {
		return err
	}
	defer rt.close()

	pipe, _, err := rt.app.Content()
	if err != nil {
		return err
	}
	req.Speak = o.speak
	req.Voice = o.voice
	if req.Voice == "" {
		req.Voice = rt.cfg.Assistant.Voice
	}

	out := cmd.OutOrStdout()
	res, err := pipe.Run(ctx, req)
	if errors.Is(err, content.ErrContentFlagged) {
		fmt.Fprintln(out, errorStyle.Render("⚠️ "+content.FlaggedMessage))
		return err
	}
	if res == nil {
		return err
	}
	if !res.Generation.OK() {
		fmt.Fprintln(out, errorStyle.Render(res.Text))
		return fmt.Errorf("generation failed after %d attempts: %w", res.Generation.Attempts, res.Generation.Err)
	}
	fmt.Fprintln(out, res.Text)

	exp := rt.app.Exporter()
	if o.save {
		path, err := exp.Transcript(ctx, "", res.Text)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, successStyle.Render("✓ "+path))
	}
	// A synthesis failure still leaves the text on screen.
	if err != nil {
		return err
	}
	if res.Audio != nil {
		path, err := exp.Audio(ctx, "", res.Audio)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, successStyle.Render("🔊 "+path))
	}
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	f := evaluateFlags

	var ads []string
	switch {
	case f.file != "":
		text, err := readText(cmd.InOrStdin(), nil, f.file)
		if err != nil {
			return err
		}
		ads = content.SplitVariants(text)
		if len(ads) == 0 && text != "" {
			ads = []string{text}
		}
	case len(args) > 0:
		ads = args
	case f.product == "":
		return errors.New("pass ads as arguments, --file or --product")
	}

	rt, err := setup(ctx, cmd.Name())
	if err != nil {
		return err
	}
	defer rt.close()

	pipe, eval, err := rt.app.Content()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if ads == nil {
		res, err := pipe.Run(ctx, content.Request{
			Kind:     content.KindAdVariants,
			Product:  f.product,
			Message:  f.message,
			Variants: f.variants,
		})
		if errors.Is(err, content.ErrContentFlagged) {
			fmt.Fprintln(out, errorStyle.Render("⚠️ "+content.FlaggedMessage))
		}
		if err != nil {
			return err
		}
		if !res.Generation.OK() {
			fmt.Fprintln(out, errorStyle.Render(res.Text))
			return fmt.Errorf("generation failed: %w", res.Generation.Err)
		}
		ads = content.SplitVariants(res.Text)
	}

	evals, best, err := eval.BestOf(ctx, ads)
	if err != nil {
		return err
	}
	printEvaluations(out, evals, best)
	return nil
}

func printEvaluations(w io.Writer, evals []content.Evaluation, best int) {
	for i, ev := range evals {
		label := fmt.Sprintf("%d. [%3d점]", i+1, ev.Score)
		if !ev.Generation.OK() {
			label = fmt.Sprintf("%d. [평가 실패]", i+1)
		}
		line := labelStyle.UnsetWidth().Render(label) + " " + ev.Ad
		if i == best {
			line += " " + successStyle.Render("★ BEST")
		}
		fmt.Fprintln(w, line)
	}
}

// readText returns the joined args, or the content of file ("-" reads in).
func readText(in io.Reader, args []string, file string) (string, error) {
	var data []byte
	var err error
	switch file {
	case "":
		return strings.TrimSpace(strings.Join(args, " ")), nil
	case "-":
		data, err = io.ReadAll(in)
	default:
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	return strings.TrimSpace(string(data)), nil
}
