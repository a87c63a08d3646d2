// Package content implements the moderated text generators: ad copy, ad
// evaluation, SNS posts and YouTube scripts.
//
// Every generator runs the same [Pipeline]: the user input passes the
// moderation [Gate], a prompt builder turns it into one prompt, the chat
// model answers through the retrying generation path and, on request, the
// [BEST] section of the reply is synthesized to speech. A flagged input stops
// the pipeline before any chat or speech call.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MrWong99/voxa/internal/observe"
	"github.com/MrWong99/voxa/internal/resilience"
	"github.com/MrWong99/voxa/pkg/provider/moderation"
)

// ErrContentFlagged is matched (via errors.Is) by every [FlaggedError].
var ErrContentFlagged = errors.New("content: input flagged by moderation")

// FlaggedMessage is the user-facing notice for rejected input.
const FlaggedMessage = "입력하신 내용이 부적절하여 처리할 수 없습니다."

// FlaggedError reports a moderation rejection and the violated categories.
type FlaggedError struct {
	Categories []string
}

func (e *FlaggedError) Error() string {
	if len(e.Categories) == 0 {
		return ErrContentFlagged.Error()
	}
	return fmt.Sprintf("%s (%s)", ErrContentFlagged.Error(), strings.Join(e.Categories, ", "))
}

// Is makes errors.Is(err, ErrContentFlagged) hold.
func (e *FlaggedError) Is(target error) bool { return target == ErrContentFlagged }

// Classify extends [resilience.DefaultClassifier] so that moderation
// rejections are never retried.
func Classify(err error) resilience.Outcome {
	if errors.Is(err, ErrContentFlagged) {
		return resilience.Terminal
	}
	return resilience.DefaultClassifier(err)
}

// Gate screens input with a moderation provider.
type Gate struct {
	mod     moderation.Provider
	metrics *observe.Metrics
}

// NewGate returns a Gate backed by p. m may be nil.
func NewGate(p moderation.Provider, m *observe.Metrics) *Gate {
	return &Gate{mod: p, metrics: m}
}

// Check returns nil for acceptable text and a [*FlaggedError] for flagged
// text. Moderation transport errors are returned wrapped; callers must treat
// them as a stop as well.
func (g *Gate) Check(ctx context.Context, text string) error {
	v, err := g.mod.Moderate(ctx, text)
	if err != nil {
		return fmt.Errorf("content: moderation: %w", err)
	}
	if !v.Flagged {
		return nil
	}
	slog.Warn("content: input rejected by moderation", "categories", v.Categories)
	if g.metrics != nil {
		g.metrics.RecordModerationFlag(ctx)
	}
	return &FlaggedError{Categories: v.Categories}
}
