package content

import (
	"context"
	"errors"

	"github.com/MrWong99/voxa/internal/agent"
	"github.com/MrWong99/voxa/internal/resilience"
)

// ErrNoVariants is returned by [Evaluator.BestOf] for an empty list.
var ErrNoVariants = errors.New("content: no variants to evaluate")

// Evaluation is the score of one ad.
type Evaluation struct {
	Ad    string
	Score int

	// Raw is the evaluator's full reply.
	Raw string

	// Generation reports whether Raw came from the model. A failed
	// evaluation scores 0.
	Generation resilience.RetryResult
}

// Evaluator scores ad copy with the chat model.
type Evaluator struct {
	gen Generator
}

// NewEvaluator returns an Evaluator.
func NewEvaluator(gen Generator) *Evaluator {
	return &Evaluator{gen: gen}
}

// Score evaluates one ad at temperature 0 and parses the total.
func (e *Evaluator) Score(ctx context.Context, ad string) Evaluation {
	raw, res := e.gen.Generate(ctx, agent.GenerateRequest{
		Prompt:      EvaluatorPrompt(ad),
		Temperature: EvaluateTemperature,
	})
	ev := Evaluation{Ad: ad, Raw: raw, Generation: res}
	if res.OK() {
		ev.Score = ParseScore(raw)
	}
	return ev
}

// BestOf scores every variant in order and returns all evaluations plus the
// index of the highest score. Ties keep the earliest variant.
func (e *Evaluator) BestOf(ctx context.Context, variants []string) ([]Evaluation, int, error) {
	if len(variants) == 0 {
		return nil, -1, ErrNoVariants
	}
	evals := make([]Evaluation, 0, len(variants))
	best := 0
	for i, v := range variants {
		if err := ctx.Err(); err != nil {
			return evals, -1, err
		}
		ev := e.Score(ctx, v)
		evals = append(evals, ev)
		if ev.Score > evals[best].Score {
			best = i
		}
	}
	return evals, best, nil
}
