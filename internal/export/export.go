// Package export writes assistant output to files: plain transcripts, SRT
// subtitles, PDF reports, MP3 narration and karaoke narration (a WAV track
// with sentence-timed subtitles).
//
// The free functions ([WriteSRT], [WritePDF], [Narrate], ...) render into
// memory or an [io.Writer]. [Exporter] adds file naming, the output
// directory and metrics on top of them.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrWong99/voxa/internal/observe"
	"github.com/MrWong99/voxa/pkg/provider/tts"
)

// Export formats, used for default file names and metric attributes.
const (
	FormatTXT = "txt"
	FormatSRT = "srt"
	FormatPDF = "pdf"
	FormatMP3 = "mp3"
	FormatWAV = "wav"
)

// DefaultName returns "<prefix>_<unix seconds>.<ext>", e.g. Report_1700000000.pdf.
func DefaultName(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%d.%s", prefix, now.Unix(), ext)
}

// WriteTXT writes text followed by exactly one trailing newline.
func WriteTXT(w io.Writer, text string) error {
	text = strings.TrimRight(text, "\n") + "\n"
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("export: write txt: %w", err)
	}
	return nil
}

// Option configures an [Exporter].
type Option func(*Exporter)

// WithFontPath sets the TTF font used for PDF reports.
func WithFontPath(path string) Option {
	return func(e *Exporter) { e.fontPath = path }
}

// WithConcurrency bounds parallel TTS requests during karaoke narration.
func WithConcurrency(n int) Option {
	return func(e *Exporter) { e.concurrency = n }
}

// WithMetrics records one export counter increment per written file.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Exporter) { e.metrics = m }
}

// WithClock overrides the time source used for default file names.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// Exporter writes exports into one directory.
type Exporter struct {
	dir         string
	fontPath    string
	concurrency int
	metrics     *observe.Metrics
	now         func() time.Time
}

// New returns an Exporter writing into dir. An empty dir means the current
// working directory.
func New(dir string, opts ...Option) *Exporter {
	e := &Exporter{
		dir:         dir,
		concurrency: 4,
		now:         time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Dir returns the output directory.
func (e *Exporter) Dir() string { return e.dir }

// Transcript writes text as a .txt file and returns its path. An empty name
// selects transcript_<unix>.txt.
func (e *Exporter) Transcript(ctx context.Context, name, text string) (string, error) {
	var buf bytes.Buffer
	if err := WriteTXT(&buf, text); err != nil {
		return "", err
	}
	return e.write(ctx, e.name(name, "transcript", FormatTXT), FormatTXT, buf.Bytes())
}

// Subtitles writes cues as an .srt file and returns its path.
func (e *Exporter) Subtitles(ctx context.Context, name string, cues []Cue) (string, error) {
	var buf bytes.Buffer
	if err := WriteSRT(&buf, cues); err != nil {
		return "", err
	}
	return e.write(ctx, e.name(name, "subtitles", FormatSRT), FormatSRT, buf.Bytes())
}

// Report renders a PDF report and returns its path. An empty name selects
// Report_<unix>.pdf.
func (e *Exporter) Report(ctx context.Context, name, title, content string) (string, error) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, title, content, PDFOptions{FontPath: e.fontPath}); err != nil {
		return "", err
	}
	return e.write(ctx, e.name(name, "Report", FormatPDF), FormatPDF, buf.Bytes())
}

// MP3 synthesizes text as MP3 and writes the bytes verbatim. An empty name
// selects reply_<unix>.mp3.
func (e *Exporter) MP3(ctx context.Context, p tts.Provider, name, text, voice string) (string, error) {
	a, err := p.Synthesize(ctx, tts.Request{Text: text, Voice: voice, Format: tts.FormatMP3})
	if err != nil {
		return "", fmt.Errorf("export: synthesize mp3: %w", err)
	}
	return e.write(ctx, e.name(name, "reply", FormatMP3), FormatMP3, a.Data)
}

// Audio writes already synthesized speech verbatim. An empty name selects
// reply_<unix>.<format>.
func (e *Exporter) Audio(ctx context.Context, name string, a *tts.Audio) (string, error) {
	if a == nil || len(a.Data) == 0 {
		return "", fmt.Errorf("export: write audio: %w", tts.ErrEmptyText)
	}
	format := a.Format
	if format == "" {
		format = FormatMP3
	}
	return e.write(ctx, e.name(name, "reply", format), format, a.Data)
}

// KaraokeFiles are the paths written by [Exporter.Karaoke].
type KaraokeFiles struct {
	WAV string
	SRT string
}

// Karaoke narrates text sentence by sentence and writes <base>.wav and
// <base>.srt. An empty base selects narration_<unix>.
func (e *Exporter) Karaoke(ctx context.Context, p tts.Provider, base, text, voice string) (*Narration, KaraokeFiles, error) {
	n, err := Narrate(ctx, p, text, voice, e.concurrency)
	if err != nil {
		return nil, KaraokeFiles{}, err
	}
	if base == "" {
		base = fmt.Sprintf("narration_%d", e.now().Unix())
	}

	var files KaraokeFiles
	if files.WAV, err = e.write(ctx, base+"."+FormatWAV, FormatWAV, n.WAV); err != nil {
		return nil, KaraokeFiles{}, err
	}
	if files.SRT, err = e.Subtitles(ctx, base+"."+FormatSRT, n.Cues); err != nil {
		return nil, KaraokeFiles{}, err
	}
	return n, files, nil
}

func (e *Exporter) name(name, prefix, ext string) string {
	if name != "" {
		return name
	}
	return DefaultName(prefix, ext, e.now())
}

func (e *Exporter) write(ctx context.Context, name, format string, data []byte) (string, error) {
	path := filepath.Join(e.dir, name)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("export: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}
	if e.metrics != nil {
		e.metrics.RecordExport(ctx, format)
	}
	return path, nil
}
