package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
)

// Segment is one spoken unit with its playback length.
type Segment struct {
	Text     string
	Duration time.Duration
}

// Cue is one numbered SRT entry.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Cues lays segments end to end starting at zero and numbers them from 1.
func Cues(segments []Segment) []Cue {
	cues := make([]Cue, 0, len(segments))
	var cursor time.Duration
	for i, s := range segments {
		cues = append(cues, Cue{
			Index: i + 1,
			Start: cursor,
			End:   cursor + s.Duration,
			Text:  s.Text,
		})
		cursor += s.Duration
	}
	return cues
}

// FormatTimestamp renders d as HH:MM:SS,mmm. Negative durations render as
// zero and sub-millisecond precision is truncated.
func FormatTimestamp(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	ms %= 3_600_000
	m := ms / 60_000
	ms %= 60_000
	s := ms / 1000
	ms %= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// WriteSRT writes cues in SubRip format.
func WriteSRT(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	for _, c := range cues {
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			c.Index, FormatTimestamp(c.Start), FormatTimestamp(c.End), c.Text); err != nil {
			return fmt.Errorf("export: write srt: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export: write srt: %w", err)
	}
	return nil
}

// SplitSentences cuts text after '.', '?' or '!' when the mark is followed by
// whitespace. Surrounding whitespace is trimmed and empty pieces are dropped.
func SplitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '?', '!':
		default:
			continue
		}
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}
