// Package mock provides an in-memory test double for the chat.Transport
// interface.
package mock

import (
	"context"
	"fmt"
	"sync"

	"draftloop/internal/chat"
)

// Compile-time interface check.
var _ chat.Transport = (*Transport)(nil)

// Sent records one delivered message.
type Sent struct {
	// Text is the message body.
	Text string

	// ThreadID is the reply anchor, empty for top-level messages.
	ThreadID string

	// DraftID is set for messages delivered with draft buttons.
	DraftID string
}

// Transport is an in-memory chat.Transport. Message IDs are "msg-1",
// "msg-2", ... in send order. Set Err to fail every send.
type Transport struct {
	mu sync.Mutex

	// Messages records every send in order.
	Messages []Sent

	Err error

	next int
}

// SendMessage implements chat.Transport.
func (t *Transport) SendMessage(_ context.Context, text string) (string, error) {
	return t.record(Sent{Text: text})
}

// ReplyInThread implements chat.Transport.
func (t *Transport) ReplyInThread(_ context.Context, threadID, text string) (string, error) {
	return t.record(Sent{Text: text, ThreadID: threadID})
}

// SendWithActions implements chat.Transport.
func (t *Transport) SendWithActions(_ context.Context, text, draftID string) (string, error) {
	return t.record(Sent{Text: text, DraftID: draftID})
}

func (t *Transport) record(s Sent) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return "", t.Err
	}
	t.next++
	t.Messages = append(t.Messages, s)
	return fmt.Sprintf("msg-%d", t.next), nil
}

// Last returns the most recent message, or a zero Sent when none exist.
func (t *Transport) Last() Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Messages) == 0 {
		return Sent{}
	}
	return t.Messages[len(t.Messages)-1]
}

// Texts returns all message bodies in send order.
func (t *Transport) Texts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.Messages))
	for i, m := range t.Messages {
		out[i] = m.Text
	}
	return out
}
