// Package mock provides a test double for the moderation.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxa/pkg/provider/moderation"
)

// Provider is a mock implementation of moderation.Provider.
type Provider struct {
	mu sync.Mutex

	// Verdict is returned by every successful call. Nil means not flagged.
	Verdict *moderation.Verdict

	// Err, if non-nil, is returned by every call.
	Err error

	// Inputs records the text of every call in order.
	Inputs []string
}

var _ moderation.Provider = (*Provider)(nil)

// Moderate implements moderation.Provider.
func (p *Provider) Moderate(_ context.Context, text string) (*moderation.Verdict, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Inputs = append(p.Inputs, text)
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Verdict == nil {
		return &moderation.Verdict{}, nil
	}
	v := *p.Verdict
	return &v, nil
}

// CallCount returns the number of Moderate invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Inputs)
}
