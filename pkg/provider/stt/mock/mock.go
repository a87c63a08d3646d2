// Package mock provides a test double for the stt.Provider interface.
//
//	p := &mock.Provider{Transcripts: []types.Transcript{{Text: "안녕"}}}
//	tr, _ := p.Transcribe(ctx, stt.Request{Audio: wav})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxa/pkg/provider/stt"
	"github.com/MrWong99/voxa/pkg/types"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	Ctx context.Context
	Req stt.Request
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Transcripts are returned by successive calls. The last entry repeats
	// once the queue is exhausted; an empty queue yields an empty transcript.
	Transcripts []types.Transcript

	// Err, if non-nil, is returned by every call.
	Err error

	// Calls records every invocation of Transcribe in order.
	Calls []TranscribeCall
}

var _ stt.Provider = (*Provider)(nil)

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*types.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.Calls)
	p.Calls = append(p.Calls, TranscribeCall{Ctx: ctx, Req: req})
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Transcripts) == 0 {
		return &types.Transcript{}, nil
	}
	tr := p.Transcripts[min(n, len(p.Transcripts)-1)]
	return &tr, nil
}

// CallCount returns the number of Transcribe invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
