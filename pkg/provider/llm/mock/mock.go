// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the prompts the response coordinator
// sends and to feed controlled completions without a live backend.
//
// Example:
//
//	p := &mock.Provider{
//	    Responses: []*llm.CompletionResponse{{Content: "Certainly!"}},
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/voicehive/voicehive/pkg/provider/llm"
)

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
//
// Responses are consumed in order across successive Complete calls; when the
// list runs out the last entry is repeated. A nil/empty Responses list yields
// an empty completion. Set Err to inject a failure on every call.
type Provider struct {
	mu sync.Mutex

	// Responses is the sequence of completions to return.
	Responses []*llm.CompletionResponse

	// Err, if non-nil, is returned by Complete instead of a response.
	Err error

	// Calls records every invocation of Complete in order.
	Calls []CompleteCall

	next int
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, CompleteCall{Ctx: ctx, Req: req})

	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Responses) == 0 {
		return &llm.CompletionResponse{}, nil
	}

	resp := p.Responses[p.next]
	if p.next < len(p.Responses)-1 {
		p.next++
	}
	return resp, nil
}

// CallCount returns how many times Complete was invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
