// Package mock provides a test double for the llm.Provider interface.
//
// Responses are served from a queue so tests can script multi-round
// conversations such as a tool call followed by a final answer:
//
//	p := &mock.Provider{
//	    Responses: []*llm.CompletionResponse{
//	        {ToolCalls: []types.ToolCall{{ID: "1", Name: "get_latest_news", Arguments: "{}"}}},
//	        {Content: "오늘의 뉴스입니다."},
//	    },
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxa/pkg/provider/llm"
	"github.com/MrWong99/voxa/pkg/types"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// Responses are returned by successive Complete calls. Once exhausted the
	// last entry is repeated. An empty queue yields an empty response.
	Responses []*llm.CompletionResponse

	// Errs are returned by successive Complete calls, indexed by call number.
	// A nil entry (or an index past the end) means no error for that call.
	Errs []error

	// Err, if non-nil, is returned by every Complete call.
	Err error

	// ModelCapabilities is returned by Capabilities.
	ModelCapabilities types.ModelCapabilities

	// Calls records every invocation of Complete in order.
	Calls []CompleteCall
}

var _ llm.Provider = (*Provider)(nil)

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.Calls)
	req.Messages = append([]types.Message(nil), req.Messages...)
	p.Calls = append(p.Calls, CompleteCall{Ctx: ctx, Req: req})

	if p.Err != nil {
		return nil, p.Err
	}
	if n < len(p.Errs) && p.Errs[n] != nil {
		return nil, p.Errs[n]
	}
	if len(p.Responses) == 0 {
		return &llm.CompletionResponse{}, nil
	}
	idx := min(n, len(p.Responses)-1)
	resp := *p.Responses[idx]
	return &resp, nil
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() types.ModelCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ModelCapabilities
}

// CallCount returns the number of Complete invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
