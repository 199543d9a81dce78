// Package chat defines the transport abstraction between the content
// pipeline and the chat platform the user talks to. The pipeline only sees
// [Transport], [Incoming], and [Action]; the Discord wiring lives in the
// discordbot subpackage and tests use the mock subpackage.
package chat

import (
	"context"
	"strings"
)

// Action identifies a draft button press.
type Action string

// Button actions attached to delivered drafts.
const (
	ActionApprove   Action = "draft_approve"
	ActionRework    Action = "draft_rework"
	ActionSyndicate Action = "draft_syndicate"
)

// IsValid reports whether a is a recognised draft action.
func (a Action) IsValid() bool {
	switch a {
	case ActionApprove, ActionRework, ActionSyndicate:
		return true
	}
	return false
}

// CustomID encodes an action and draft ID into a component custom ID.
func CustomID(a Action, draftID string) string {
	return string(a) + ":" + draftID
}

// ParseCustomID splits a component custom ID into its action and draft ID.
// Returns ok=false for IDs that do not belong to the draft buttons.
func ParseCustomID(id string) (Action, string, bool) {
	action, draftID, found := strings.Cut(id, ":")
	if !found || draftID == "" {
		return "", "", false
	}
	a := Action(action)
	if !a.IsValid() {
		return "", "", false
	}
	return a, draftID, true
}

// Incoming is one user message normalised from the platform.
type Incoming struct {
	// Text is the raw message text.
	Text string

	// ThreadID is the ID of the message the user replied to, when the
	// platform reports one. Empty for top-level messages.
	ThreadID string
}

// Transport delivers pipeline messages to the user. Implementations must be
// safe for concurrent use.
type Transport interface {
	// SendMessage sends a top-level message and returns its message ID.
	SendMessage(ctx context.Context, text string) (string, error)

	// ReplyInThread sends a message as a reply to threadID and returns the
	// new message's ID.
	ReplyInThread(ctx context.Context, threadID, text string) (string, error)

	// SendWithActions sends a message carrying the approve, rework, and
	// syndicate buttons for draftID. Returns the message ID.
	SendWithActions(ctx context.Context, text, draftID string) (string, error)
}

// Handler consumes user input routed up from the platform. Implemented by
// the pipeline.
type Handler interface {
	// HandleMessage processes one user chat message.
	HandleMessage(ctx context.Context, msg Incoming) error

	// HandleAction processes one draft button press.
	HandleAction(ctx context.Context, action Action, draftID string) error
}
