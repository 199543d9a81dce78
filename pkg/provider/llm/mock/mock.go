// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the drafting service sends
// correct CompletionRequests and to feed controlled responses without a live
// LLM backend. Responses are consumed in order; when the queue is exhausted
// the last response repeats.
package mock

import (
	"context"
	"sync"

	"draftloop/pkg/provider/llm"
)

// Compile-time interface check.
var _ llm.Provider = (*Provider)(nil)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
// Zero values cause Complete to return ("", nil). Set Err to inject errors.
type Provider struct {
	mu sync.Mutex

	// Responses is the queue of completion texts returned by successive
	// Complete calls. The last entry repeats once the queue is exhausted.
	Responses []string

	// Err, if non-nil, is returned by every Complete call.
	Err error

	// Calls records every invocation of Complete in order.
	Calls []CompleteCall

	next int
}

// Complete implements llm.Provider.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls = append(p.Calls, CompleteCall{Req: req})

	if p.Err != nil {
		return "", p.Err
	}
	if len(p.Responses) == 0 {
		return "", nil
	}
	idx := p.next
	if idx >= len(p.Responses) {
		idx = len(p.Responses) - 1
	}
	p.next++
	return p.Responses[idx], nil
}

// CallCount returns the number of Complete invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
