package pipeline

import (
	"draftloop/internal/chat"
	"draftloop/internal/content"
)

// routeKind tags where an owner message should go.
type routeKind int

const (
	// routePassive acknowledges text the pipeline has no use for.
	routePassive routeKind = iota

	// routeInterviewReply feeds the message into an interview session.
	routeInterviewReply

	// routeReworkFeedback applies the message to the pending rework.
	routeReworkFeedback

	// routeCommand dispatches a recognised command.
	routeCommand
)

// route is one classified owner message.
type route struct {
	kind      routeKind
	sessionID string                // routeInterviewReply
	rework    content.PendingRework // routeReworkFeedback
	cmd       command               // routeCommand
}

// route classifies an incoming message. Precedence:
//
//  1. A reply inside a known session thread is an interview answer, always.
//  2. Plain (non-command, non-threaded) text goes to the most recently
//     started active session, if any. A reply in an unknown thread is not an
//     interview answer; it falls through like any other message.
//  3. With a rework pending: plain text is the rework feedback; `cancel`
//     clears it; any other command clears it and falls through.
//  4. Recognised commands dispatch.
//  5. Everything else is passively acknowledged.
//
// The pending rework is consumed here, under the lock, so two rapid
// messages can never both become feedback for the same draft.
func (p *Pipeline) route(msg chat.Incoming) route {
	cmd, isCmd := parseCommand(msg.Text)

	p.mu.Lock()
	defer p.mu.Unlock()

	if msg.ThreadID != "" {
		if sid, ok := p.threadIndex[msg.ThreadID]; ok {
			if s, ok := p.sessions[sid]; ok && s.Status == content.SessionActive {
				return route{kind: routeInterviewReply, sessionID: sid}
			}
		}
	}

	if !isCmd && msg.ThreadID == "" {
		if sid := p.latestActiveSessionLocked(); sid != "" {
			return route{kind: routeInterviewReply, sessionID: sid}
		}
	}

	if p.rework != nil {
		pending := *p.rework
		if !isCmd {
			p.rework = nil
			return route{kind: routeReworkFeedback, rework: pending}
		}
		// Any command cancels the pending rework; `cancel` just says so.
		p.rework = nil
		if cmd.name == cmdCancel {
			cmd.cancelledRework = true
			return route{kind: routeCommand, cmd: cmd}
		}
	}

	if isCmd {
		return route{kind: routeCommand, cmd: cmd}
	}
	return route{kind: routePassive}
}
