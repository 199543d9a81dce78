// Package pipeline is the conversational heart of draftloop: it owns
// interview sessions, routes every owner message to the right handler,
// generates and reworks drafts, and reacts to the draft action buttons.
//
// All state lives in memory and is rebuilt from the record store at
// startup; the pipeline never fails a user interaction because a
// persistence write failed.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"draftloop/internal/chat"
	"draftloop/internal/content"
	"draftloop/internal/drafting"
	"draftloop/internal/observe"
	"draftloop/internal/registry"
	"draftloop/internal/store"
)

// Compile-time interface check.
var _ chat.Handler = (*Pipeline)(nil)

// mineCommandWindow is how far back the mine chat command looks.
const mineCommandWindow = 90 * 24 * time.Hour

// RecentMiner runs on-demand mining over stored transcripts. Satisfied by
// *mining.Miner.
type RecentMiner interface {
	MineRecent(ctx context.Context, since time.Time) (int, error)
}

// CycleRunner runs one content cycle on demand. Satisfied by
// *scheduler.Scheduler.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// Config holds the pipeline's collaborators.
type Config struct {
	Registry  *registry.Registry
	Drafting  drafting.Service
	Transport chat.Transport

	// Store persists status changes and drafts. Optional; when nil the
	// pipeline runs memory-only.
	Store store.Store

	// Miner backs the mine chat command. Optional.
	Miner RecentMiner
}

// Pipeline routes owner messages, drives interviews, and manages drafts.
// Safe for concurrent use; inbound handling is serialised per call by the
// internal mutex.
type Pipeline struct {
	reg       *registry.Registry
	svc       drafting.Service
	st        store.Store
	transport chat.Transport
	miner     RecentMiner
	cycle     CycleRunner
	metrics   *observe.Metrics

	mu          sync.Mutex
	sessions    map[string]*content.InterviewSession
	threadIndex map[string]string // sent message ID → session ID
	drafts      map[string]content.ContentDraft
	rework      *content.PendingRework
	lastShown   []string // idea IDs from the last numbered listing
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		reg:         cfg.Registry,
		svc:         cfg.Drafting,
		st:          cfg.Store,
		transport:   cfg.Transport,
		miner:       cfg.Miner,
		metrics:     observe.DefaultMetrics(),
		sessions:    make(map[string]*content.InterviewSession),
		threadIndex: make(map[string]string),
		drafts:      make(map[string]content.ContentDraft),
	}
}

// SetCycleRunner installs the content-cycle trigger behind the `cycle`
// command. Wired after construction because the scheduler itself needs the
// pipeline as its interviewer.
func (p *Pipeline) SetCycleRunner(r CycleRunner) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cycle = r
}

// ─── Inbound entry points ───────────────────────────────────────────────────

// HandleMessage implements chat.Handler. Every owner message lands here; a
// panic in a handler is recovered so one bad message cannot take the bot
// down.
func (p *Pipeline) HandleMessage(ctx context.Context, msg chat.Incoming) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline: message handler panicked", "panic", r)
			err = fmt.Errorf("pipeline: handle message: panic: %v", r)
		}
	}()

	r := p.route(msg)
	switch r.kind {
	case routeInterviewReply:
		p.handleInterviewReply(ctx, r.sessionID, msg.Text)
	case routeReworkFeedback:
		p.handleReworkFeedback(ctx, r.rework, msg.Text)
	case routeCommand:
		p.runCommand(ctx, r.cmd)
	default:
		p.say(ctx, "Noted. Say `help` if you want to see what I can do.")
	}
	return nil
}

// HandleAction implements chat.Handler.
func (p *Pipeline) HandleAction(ctx context.Context, action chat.Action, draftID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline: action handler panicked", "panic", r)
			err = fmt.Errorf("pipeline: handle action: panic: %v", r)
		}
	}()

	switch action {
	case chat.ActionApprove:
		p.approveDraft(ctx, draftID)
	case chat.ActionRework:
		p.requestRework(ctx, draftID)
	case chat.ActionSyndicate:
		p.syndicateDraft(ctx, draftID)
	default:
		slog.Warn("pipeline: unknown action", "action", action)
	}
	return nil
}

// ─── Interviews ─────────────────────────────────────────────────────────────

// StartInterview opens a new interview session for an idea: asks the
// drafting service for an opening question, delivers it, and anchors the
// session to the delivered message.
func (p *Pipeline) StartInterview(ctx context.Context, idea content.ContentIdea) error {
	p.mu.Lock()
	for _, s := range p.sessions {
		if s.IdeaID == idea.ID && s.Status == content.SessionActive {
			p.mu.Unlock()
			return fmt.Errorf("pipeline: idea %s already has an active interview", idea.ID)
		}
	}
	p.mu.Unlock()

	opening, err := p.svc.OpeningMessage(ctx, idea)
	if err != nil {
		p.metrics.RecordExternalError(ctx, "llm")
		return fmt.Errorf("pipeline: opening message: %w", err)
	}

	msgID, err := p.transport.SendMessage(ctx, opening)
	if err != nil {
		p.metrics.RecordExternalError(ctx, "chat")
		return fmt.Errorf("pipeline: deliver opening: %w", err)
	}

	now := time.Now()
	session := &content.InterviewSession{
		ID:       uuid.NewString(),
		IdeaID:   idea.ID,
		ThreadID: msgID,
		Messages: []content.InterviewMessage{
			{Role: content.RoleAgent, Text: opening, Timestamp: now},
		},
		Status:    content.SessionActive,
		StartedAt: now,
	}

	p.mu.Lock()
	p.sessions[session.ID] = session
	p.threadIndex[msgID] = session.ID
	p.mu.Unlock()

	p.setIdeaStatus(ctx, idea.ID, content.IdeaInterviewing)
	p.metrics.ActiveSessions.Add(ctx, 1)
	slog.Info("pipeline: interview started", "session_id", session.ID, "idea_id", idea.ID)
	return nil
}

// handleInterviewReply appends the user's answer, asks the judge whether
// the material suffices, and either continues with a follow-up question or
// completes the interview into a draft.
func (p *Pipeline) handleInterviewReply(ctx context.Context, sessionID, text string) {
	p.mu.Lock()
	session, ok := p.sessions[sessionID]
	if !ok || session.Status != content.SessionActive {
		p.mu.Unlock()
		return
	}
	session.Messages = append(session.Messages, content.InterviewMessage{
		Role: content.RoleUser, Text: text, Timestamp: time.Now(),
	})
	history := append([]content.InterviewMessage(nil), session.Messages...)
	ideaID := session.IdeaID
	threadID := session.ThreadID
	p.mu.Unlock()

	idea, ok := p.reg.Get(ideaID)
	if !ok {
		slog.Error("pipeline: session references unknown idea", "session_id", sessionID, "idea_id", ideaID)
		return
	}

	enough, err := p.svc.HasEnoughMaterial(ctx, idea, history)
	if err != nil {
		p.metrics.RecordExternalError(ctx, "llm")
		slog.Error("pipeline: enough-material judgment failed", "session_id", sessionID, "err", err)
		p.say(ctx, "I hit a snag thinking about your answer — could you send that again?")
		return
	}

	if !enough {
		question, err := p.svc.FollowUpQuestion(ctx, idea, history)
		if err != nil {
			p.metrics.RecordExternalError(ctx, "llm")
			slog.Error("pipeline: follow-up question failed", "session_id", sessionID, "err", err)
			p.say(ctx, "I lost my train of thought — could you send that again?")
			return
		}

		msgID, err := p.transport.ReplyInThread(ctx, threadID, question)
		if err != nil {
			p.metrics.RecordExternalError(ctx, "chat")
			slog.Error("pipeline: deliver follow-up failed", "session_id", sessionID, "err", err)
			return
		}

		p.mu.Lock()
		if s, ok := p.sessions[sessionID]; ok {
			s.Messages = append(s.Messages, content.InterviewMessage{
				Role: content.RoleAgent, Text: question, Timestamp: time.Now(),
			})
		}
		p.threadIndex[msgID] = sessionID
		p.mu.Unlock()
		return
	}

	p.completeSession(ctx, sessionID)
	p.setIdeaStatus(ctx, ideaID, content.IdeaDrafting)
	p.say(ctx, "That's plenty of material — drafting now.")
	p.generateAndDeliver(ctx, idea, history)
}

// completeSession marks a session completed. No-op when the session is
// already terminal.
func (p *Pipeline) completeSession(ctx context.Context, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[sessionID]
	if !ok || s.Status != content.SessionActive {
		return
	}
	s.Status = content.SessionCompleted
	s.CompletedAt = time.Now()
	p.metrics.ActiveSessions.Add(ctx, -1)
}

// abandonLatest abandons the most recently started active session. Returns
// the abandoned session and true, or false when none was active.
func (p *Pipeline) abandonLatest(ctx context.Context) (content.InterviewSession, bool) {
	p.mu.Lock()
	var latest *content.InterviewSession
	for _, s := range p.sessions {
		if s.Status != content.SessionActive {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = s
		}
	}
	if latest == nil {
		p.mu.Unlock()
		return content.InterviewSession{}, false
	}
	latest.Status = content.SessionAbandoned
	latest.CompletedAt = time.Now()
	snapshot := *latest
	p.mu.Unlock()

	p.metrics.ActiveSessions.Add(ctx, -1)
	// The idea goes back into the unprocessed pool.
	p.setIdeaStatus(ctx, snapshot.IdeaID, content.IdeaExtracted)
	slog.Info("pipeline: interview abandoned", "session_id", snapshot.ID, "idea_id", snapshot.IdeaID)
	return snapshot, true
}

// latestActiveSession returns the ID of the most recently started active
// session, or "" when none exists. Caller must hold p.mu.
func (p *Pipeline) latestActiveSessionLocked() string {
	var latest *content.InterviewSession
	for _, s := range p.sessions {
		if s.Status != content.SessionActive {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = s
		}
	}
	if latest == nil {
		return ""
	}
	return latest.ID
}

// ─── Drafts ─────────────────────────────────────────────────────────────────

// generateAndDeliver turns a finished interview into a draft and delivers
// it with the action buttons. For LinkedIn posts an X-thread variant is
// delivered alongside.
func (p *Pipeline) generateAndDeliver(ctx context.Context, idea content.ContentIdea, history []content.InterviewMessage) {
	d, err := p.svc.GenerateDraft(ctx, idea, history, idea.SuggestedFormat)
	if err != nil {
		p.metrics.RecordExternalError(ctx, "llm")
		slog.Error("pipeline: draft generation failed", "idea_id", idea.ID, "err", err)
		p.say(ctx, "Draft generation failed — the idea is back in the pool, say `draft "+idea.ID+"` to interview again.")
		p.setIdeaStatus(ctx, idea.ID, content.IdeaExtracted)
		return
	}

	draft := content.ContentDraft{
		ID:        uuid.NewString(),
		IdeaID:    idea.ID,
		Format:    idea.SuggestedFormat,
		Title:     d.Title,
		Body:      d.Body,
		Version:   1,
		Status:    content.DraftStatusDraft,
		CreatedAt: time.Now(),
	}
	p.storeDraft(ctx, draft)
	p.setIdeaStatus(ctx, idea.ID, content.IdeaDraftReady)
	p.metrics.RecordDraft(ctx, string(draft.Format))

	p.deliverDraft(ctx, draft)

	if draft.Format == content.FormatLinkedInPost {
		p.deliverThreadVariant(ctx, draft)
	}
}

// deliverDraft sends a draft with the approve/rework/syndicate buttons.
func (p *Pipeline) deliverDraft(ctx context.Context, draft content.ContentDraft) {
	if _, err := p.transport.SendWithActions(ctx, formatDraftMessage(draft), draft.ID); err != nil {
		p.metrics.RecordExternalError(ctx, "chat")
		slog.Error("pipeline: deliver draft failed", "draft_id", draft.ID, "err", err)
	}
}

// deliverThreadVariant converts a draft body into an X thread and sends it
// as a plain follow-up message. Failures are absorbed.
func (p *Pipeline) deliverThreadVariant(ctx context.Context, draft content.ContentDraft) {
	thread, err := p.svc.ConvertToThread(ctx, draft.Body)
	if err != nil {
		p.metrics.RecordExternalError(ctx, "llm")
		slog.Warn("pipeline: thread variant failed", "draft_id", draft.ID, "err", err)
		return
	}
	p.say(ctx, "X thread variant:\n\n"+thread)
}

// handleReworkFeedback applies user feedback to the pending draft. The
// pending record was already cleared during routing, so a second message
// arriving mid-rework cannot trigger a second model call.
func (p *Pipeline) handleReworkFeedback(ctx context.Context, pending content.PendingRework, feedback string) {
	p.mu.Lock()
	old, ok := p.drafts[pending.DraftID]
	p.mu.Unlock()
	if !ok {
		p.say(ctx, "I can't find that draft anymore — it may be from a previous run.")
		return
	}

	body, err := p.svc.ReworkDraft(ctx, old.Body, feedback)
	if err != nil {
		p.metrics.RecordExternalError(ctx, "llm")
		slog.Error("pipeline: rework failed", "draft_id", old.ID, "err", err)
		p.say(ctx, "Rework failed — press the Rework button again to retry.")
		return
	}

	draft := content.ContentDraft{
		ID:        uuid.NewString(),
		IdeaID:    old.IdeaID,
		Format:    old.Format,
		Title:     old.Title,
		Body:      body,
		Version:   old.Version + 1,
		Status:    content.DraftStatusDraft,
		CreatedAt: time.Now(),
	}
	p.storeDraft(ctx, draft)
	p.metrics.RecordDraft(ctx, string(draft.Format))
	p.deliverDraft(ctx, draft)
}

// ─── Draft actions ──────────────────────────────────────────────────────────

// approveDraft marks a draft approved. Idempotent: pressing the button
// twice reports the state instead of erroring.
func (p *Pipeline) approveDraft(ctx context.Context, draftID string) {
	p.mu.Lock()
	draft, ok := p.drafts[draftID]
	first := ok && draft.Status != content.DraftStatusApproved
	if first {
		draft.Status = content.DraftStatusApproved
		p.drafts[draftID] = draft
	}
	p.mu.Unlock()

	if !ok {
		p.say(ctx, "I can't find that draft — it may be from a previous run. Say `ideas` to start fresh.")
		return
	}
	if !first {
		p.say(ctx, fmt.Sprintf("**%s** (v%d) is already approved.", draft.Title, draft.Version))
		return
	}
	if p.st != nil {
		if err := p.st.UpdateDraftStatus(ctx, draftID, content.DraftStatusApproved); err != nil {
			p.metrics.RecordExternalError(ctx, "store")
			slog.Warn("pipeline: persist draft approval failed", "draft_id", draftID, "err", err)
		}
	}
	p.say(ctx, fmt.Sprintf("Approved **%s** (v%d). It's ready to publish.", draft.Title, draft.Version))
}

// requestRework records the draft as awaiting feedback. A newer rework
// request overwrites an older one: latest intent wins.
func (p *Pipeline) requestRework(ctx context.Context, draftID string) {
	p.mu.Lock()
	draft, ok := p.drafts[draftID]
	if ok {
		p.rework = &content.PendingRework{DraftID: draftID, IdeaID: draft.IdeaID}
	}
	p.mu.Unlock()

	if !ok {
		p.say(ctx, "I can't find that draft — it may be from a previous run.")
		return
	}
	p.say(ctx, "What should change? Send the feedback as your next message (or `cancel`).")
}

// syndicateDraft converts a LinkedIn draft into an X thread on demand.
func (p *Pipeline) syndicateDraft(ctx context.Context, draftID string) {
	p.mu.Lock()
	draft, ok := p.drafts[draftID]
	p.mu.Unlock()

	if !ok {
		p.say(ctx, "I can't find that draft — it may be from a previous run.")
		return
	}
	if draft.Format != content.FormatLinkedInPost {
		p.say(ctx, "Syndication turns LinkedIn posts into X threads — this draft is a "+string(draft.Format)+".")
		return
	}
	p.deliverThreadVariant(ctx, draft)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// storeDraft caches a draft and persists it, absorbing store failures.
func (p *Pipeline) storeDraft(ctx context.Context, draft content.ContentDraft) {
	p.mu.Lock()
	p.drafts[draft.ID] = draft
	p.mu.Unlock()

	if p.st == nil {
		return
	}
	if err := p.st.SaveDraft(ctx, draft); err != nil {
		p.metrics.RecordExternalError(ctx, "store")
		slog.Warn("pipeline: persist draft failed", "draft_id", draft.ID, "err", err)
	}
}

// setIdeaStatus updates the registry and propagates to the store, absorbing
// persistence failures.
func (p *Pipeline) setIdeaStatus(ctx context.Context, ideaID string, status content.IdeaStatus) {
	if !p.reg.SetStatus(ideaID, status) {
		slog.Warn("pipeline: status update for unknown idea", "idea_id", ideaID, "status", status)
		return
	}
	if p.st == nil {
		return
	}
	if err := p.st.UpdateIdeaStatus(ctx, ideaID, status); err != nil {
		p.metrics.RecordExternalError(ctx, "store")
		slog.Warn("pipeline: persist idea status failed", "idea_id", ideaID, "status", status, "err", err)
	}
}

// say sends a plain message to the owner, absorbing transport failures.
func (p *Pipeline) say(ctx context.Context, text string) {
	if _, err := p.transport.SendMessage(ctx, text); err != nil {
		p.metrics.RecordExternalError(ctx, "chat")
		slog.Error("pipeline: send message failed", "err", err)
	}
}

// formatDraftMessage renders a draft for chat delivery.
func formatDraftMessage(draft content.ContentDraft) string {
	return fmt.Sprintf("**%s**\n_%s · v%d_\n\n%s", draft.Title, draft.Format, draft.Version, draft.Body)
}
