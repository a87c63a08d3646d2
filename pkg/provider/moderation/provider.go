// Package moderation defines the Provider interface for content-policy
// classifiers that screen user input before any generation call.
package moderation

import (
	"context"
	"strings"
)

// Verdict is the classifier's decision for one input.
type Verdict struct {
	// Flagged is true when the input violates at least one policy.
	Flagged bool

	// Categories lists the names of the violated policies, sorted.
	Categories []string
}

// String renders the verdict for logs and error messages.
func (v Verdict) String() string {
	if !v.Flagged {
		return "ok"
	}
	if len(v.Categories) == 0 {
		return "flagged"
	}
	return "flagged: " + strings.Join(v.Categories, ", ")
}

// Provider classifies text.
type Provider interface {
	Moderate(ctx context.Context, text string) (*Verdict, error)
}
