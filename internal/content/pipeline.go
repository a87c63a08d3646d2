package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/voxa/internal/agent"
	"github.com/MrWong99/voxa/internal/resilience"
	"github.com/MrWong99/voxa/pkg/provider/tts"
)

// ErrMissingInput is returned when a request lacks its required field.
var ErrMissingInput = errors.New("content: missing input")

// Kind selects a generator.
type Kind string

const (
	KindAdCopy     Kind = "adcopy"
	KindAdVariants Kind = "adcopy_variants"
	KindTargetedAd Kind = "adcopy_targeted"
	KindSNS        Kind = "sns"
	KindYouTube    Kind = "youtube"
	KindScript     Kind = "script"
)

// Generator is the retrying single-prompt chat path. *agent.Agent
// implements it.
type Generator interface {
	Generate(ctx context.Context, req agent.GenerateRequest) (string, resilience.RetryResult)
}

// Request is one generation job. Which fields matter depends on Kind.
type Request struct {
	Kind Kind

	// Product and Message feed the ad generators.
	Product string
	Message string

	// Target is the audience for targeted ads, SNS posts and scripts.
	Target string

	// Topic, Style, Platform and Duration feed the SNS and YouTube
	// generators. For KindScript, Topic is the free-form prompt.
	Topic    string
	Style    string
	Platform string
	Duration string

	// Variants is the ad count for KindAdVariants. Zero means 5.
	Variants int

	// Speak synthesizes the [BEST] section of the reply.
	Speak bool
	Voice string
}

// subject is the required field of r and the text screened by moderation.
func (r Request) subject() (string, error) {
	var required string
	switch r.Kind {
	case KindAdCopy, KindAdVariants, KindTargetedAd:
		required = r.Product
	case KindSNS, KindYouTube, KindScript:
		required = r.Topic
	default:
		return "", fmt.Errorf("content: unknown kind %q", r.Kind)
	}
	if strings.TrimSpace(required) == "" {
		return "", fmt.Errorf("%w for %s", ErrMissingInput, r.Kind)
	}

	parts := make([]string, 0, 6)
	for _, s := range []string{r.Product, r.Message, r.Target, r.Topic, r.Style, r.Platform} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// Result is the output of [Pipeline.Run].
type Result struct {
	// Text is the full reply, or the failure text when generation failed.
	Text string

	// Best is the section that was (or would be) read aloud.
	Best string

	// Audio is the synthesized Best section. Nil unless Speak was set and
	// generation succeeded.
	Audio *tts.Audio

	// Generation reports whether Text came from the model or is the fallback.
	Generation resilience.RetryResult
}

// Pipeline runs moderation, prompt building, generation and speech.
type Pipeline struct {
	gate *Gate
	gen  Generator
	tts  tts.Provider
	now  func() time.Time
}

// PipelineOption configures a [Pipeline].
type PipelineOption func(*Pipeline)

// WithTTS enables speech output for requests with Speak set.
func WithTTS(p tts.Provider) PipelineOption {
	return func(pl *Pipeline) { pl.tts = p }
}

// WithClock overrides the clock used by the script system prompt.
func WithClock(now func() time.Time) PipelineOption {
	return func(pl *Pipeline) { pl.now = now }
}

// NewPipeline returns a Pipeline.
func NewPipeline(gate *Gate, gen Generator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{gate: gate, gen: gen, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes req. A flagged input returns an error matching
// [ErrContentFlagged] before any chat or speech call. A generation that
// exhausted its retries is not an error: Result.Text holds the failure text,
// Result.Generation reports the failure, and nothing is synthesized.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	subject, err := req.subject()
	if err != nil {
		return nil, err
	}
	if err := p.gate.Check(ctx, subject); err != nil {
		return nil, err
	}

	text, gres := p.gen.Generate(ctx, p.build(req))
	res := &Result{Text: text, Generation: gres}
	if !gres.OK() {
		return res, nil
	}
	res.Best = BestSection(text)

	if req.Speak && p.tts != nil && res.Best != "" {
		a, err := p.tts.Synthesize(ctx, tts.Request{Text: res.Best, Voice: req.Voice, Format: tts.FormatMP3})
		if err != nil {
			return res, fmt.Errorf("content: synthesize: %w", err)
		}
		res.Audio = a
	}
	return res, nil
}

func (p *Pipeline) build(req Request) agent.GenerateRequest {
	switch req.Kind {
	case KindAdCopy:
		return agent.GenerateRequest{Prompt: AdCopyPrompt(req.Product, req.Message), Temperature: AdCopyTemperature}
	case KindAdVariants:
		return agent.GenerateRequest{
			Prompt:      AdVariantsPrompt(req.Product, req.Message, req.Variants),
			Temperature: AdVariantsTemperature,
		}
	case KindTargetedAd:
		return p.script(TargetedAdPrompt(req.Product, req.Message, req.Target))
	case KindSNS:
		return p.script(SNSPrompt(req.Platform, req.Topic, req.Style, req.Target))
	case KindYouTube:
		return p.script(YouTubePrompt(req.Topic, req.Duration, req.Style, req.Target))
	default:
		return p.script(req.Topic)
	}
}

func (p *Pipeline) script(prompt string) agent.GenerateRequest {
	return agent.GenerateRequest{
		Prompt:      prompt,
		System:      ScriptSystemPrompt(p.now()),
		Temperature: ScriptTemperature,
	}
}
