// Package convlog records assistant conversation turns.
//
// A [Turn] is one user utterance and the assistant's reply. Turns are written
// to one or more [Sink]s: a human-readable text file ([FileSink]) and,
// optionally, a PostgreSQL table ([PostgresSink]).
package convlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultFile is the log file used when none is configured.
const DefaultFile = "conversation_log.txt"

// Separator closes every formatted turn.
var Separator = strings.Repeat("-", 50)

// Turn is one exchange of the assistant loop.
type Turn struct {
	SessionID string
	Time      time.Time
	User      string
	Assistant string
}

// Sink persists turns.
type Sink interface {
	Append(ctx context.Context, t Turn) error
	Close() error
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Format renders t in the text log layout.
func Format(t Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n", t.Time.Format(time.DateTime))
	fmt.Fprintf(&b, "👤 사용자: %s\n", t.User)
	fmt.Fprintf(&b, "🤖 AI: %s\n", t.Assistant)
	b.WriteString(Separator)
	b.WriteString("\n")
	return b.String()
}

// FileSink appends formatted turns to a text file. It is safe for
// concurrent use.
type FileSink struct {
	mu   sync.Mutex
	path string
}

var _ Sink = (*FileSink)(nil)

// NewFileSink returns a sink writing to path. The parent directory is
// created on first write.
func NewFileSink(path string) *FileSink {
	if path == "" {
		path = DefaultFile
	}
	return &FileSink{path: path}
}

// Path returns the log file path.
func (s *FileSink) Path() string { return s.path }

// Append writes t at the end of the file.
func (s *FileSink) Append(_ context.Context, t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("convlog: create dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("convlog: open %s: %w", s.path, err)
	}
	if _, err := f.WriteString(Format(t)); err != nil {
		f.Close()
		return fmt.Errorf("convlog: write %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("convlog: close %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op; the file is opened per append.
func (s *FileSink) Close() error { return nil }

// Multi fans every append out to all sinks. Nil sinks are skipped.
type Multi []Sink

var _ Sink = Multi(nil)

// NewMulti returns a Multi over the non-nil sinks.
func NewMulti(sinks ...Sink) Multi {
	m := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

// Append writes t to every sink, even after a failure, and joins the errors.
func (m Multi) Append(ctx context.Context, t Turn) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins the errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
