// Package llm defines the Provider interface for the text-generation
// backends draftloop uses to mine ideas, run interviews, and write drafts.
//
// A provider wraps a remote or local model API (OpenAI directly, or any
// backend supported by any-llm-go) behind a single request/response
// completion call. Implementors must be safe for concurrent use.
package llm

import "context"

// Message is a single message in a completion conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest carries everything the model needs to produce a response.
// Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last message typically
	// drives the response.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation. Providers without a dedicated system slot prepend it
	// as a "system"-role message.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the provider default.
	Temperature float64

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int
}

// Provider is the abstraction over any completion backend.
//
// Complete sends req and waits for the full response text. It returns an
// error if the request fails or ctx is cancelled first.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
