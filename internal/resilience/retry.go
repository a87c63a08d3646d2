package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Outcome classifies the result of one attempt.
type Outcome int

const (
	// Success means the call returned without error.
	Success Outcome = iota

	// Retryable means the call failed but another attempt may succeed.
	Retryable

	// Terminal means the call failed and retrying cannot help.
	Terminal
)

// String returns the outcome name used in logs.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Classifier maps an error returned by an attempt to an [Outcome].
type Classifier func(error) Outcome

// terminalError marks an error as not worth retrying.
type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Permanent wraps err so that [DefaultClassifier] reports it as [Terminal].
// errors.Is and errors.As still see the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// DefaultClassifier treats nil as success; cancellation, deadline expiry and
// errors wrapped with [Permanent] as terminal; and everything else as
// retryable.
func DefaultClassifier(err error) Outcome {
	var te *terminalError
	switch {
	case err == nil:
		return Success
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.As(err, &te):
		return Terminal
	default:
		return Retryable
	}
}

// RetryConfig controls [Retry].
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3.
	MaxAttempts int

	// Delay is the fixed pause between attempts. Zero retries immediately.
	Delay time.Duration

	// Classify decides whether a failed attempt is retried. Default:
	// [DefaultClassifier].
	Classify Classifier

	// Name labels log lines.
	Name string
}

// DefaultRetryConfig is three attempts two seconds apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second}
}

// RetryResult reports how a [Retry] call ended.
type RetryResult struct {
	// Outcome is Success when some attempt succeeded. Otherwise it is the
	// classification of the last failure; exhausting all attempts on
	// retryable errors reports Retryable.
	Outcome Outcome

	// Attempts is the number of times fn was invoked.
	Attempts int

	// Err is the last error seen, nil on success.
	Err error
}

// OK reports whether the call eventually succeeded.
func (r RetryResult) OK() bool { return r.Outcome == Success }

// Retry calls fn until it succeeds, a failure is classified terminal, or
// MaxAttempts is reached. Between attempts it waits Delay, returning early
// with a terminal result if ctx is cancelled.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) (T, RetryResult) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	classify := cfg.Classify
	if classify == nil {
		classify = DefaultClassifier
	}

	var (
		zero T
		res  RetryResult
	)
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Outcome, res.Err = Terminal, err
			return zero, res
		}

		v, err := fn(ctx)
		res.Attempts = attempt
		res.Err = err
		res.Outcome = classify(err)

		switch res.Outcome {
		case Success:
			res.Err = nil
			return v, res
		case Terminal:
			slog.Warn("attempt failed, not retrying", "name", cfg.Name, "attempt", attempt, "error", err)
			return zero, res
		}

		if attempt == cfg.MaxAttempts {
			break
		}
		slog.Warn("attempt failed, retrying", "name", cfg.Name, "attempt", attempt,
			"max_attempts", cfg.MaxAttempts, "delay", cfg.Delay, "error", err)
		if cfg.Delay > 0 {
			timer := time.NewTimer(cfg.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				res.Outcome, res.Err = Terminal, ctx.Err()
				return zero, res
			case <-timer.C:
			}
		}
	}
	return zero, res
}
