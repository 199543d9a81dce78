package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/antzucaro/matchr"

	"draftloop/internal/content"
)

// commandName enumerates the chat command surface.
type commandName int

const (
	cmdStatus commandName = iota
	cmdIdeas
	cmdMine
	cmdCycle
	cmdDraft
	cmdStop
	cmdHelp
	cmdCancel
)

// command is one parsed chat command.
type command struct {
	name commandName

	// arg carries the idea reference for cmdDraft.
	arg string

	// cancelledRework is set by routing when this cancel actually cleared
	// a pending rework.
	cancelledRework bool
}

// ideaListLimit caps the ideas listing.
const ideaListLimit = 10

// fuzzyIDThreshold is the maximum edit distance accepted when matching a
// mistyped idea ID.
const fuzzyIDThreshold = 3

// phrases maps normalized command text to commands. Multi-word synonyms
// let the owner talk naturally instead of memorising tokens.
var phrases = map[string]commandName{
	"status":           cmdStatus,
	"whats the status": cmdStatus,
	"hows it going":    cmdStatus,
	"where are we":     cmdStatus,

	"ideas":                  cmdIdeas,
	"list ideas":             cmdIdeas,
	"show ideas":             cmdIdeas,
	"show me ideas":          cmdIdeas,
	"what ideas do you have": cmdIdeas,

	"mine":          cmdMine,
	"mine now":      cmdMine,
	"find ideas":    cmdMine,
	"go mining":     cmdMine,
	"dig for ideas": cmdMine,

	"cycle":         cmdCycle,
	"run cycle":     cmdCycle,
	"run the cycle": cmdCycle,

	"stop":           cmdStop,
	"done":           cmdStop,
	"stop interview": cmdStop,
	"im done":        cmdStop,
	"thats enough":   cmdStop,
	"abandon":        cmdStop,
	"skip":           cmdStop,

	"help":            cmdHelp,
	"commands":        cmdHelp,
	"what can you do": cmdHelp,

	"cancel":     cmdCancel,
	"never mind": cmdCancel,
}

// parseCommand recognises the command surface in free text. Matching is
// case-insensitive and ignores punctuation.
func parseCommand(text string) (command, bool) {
	norm := normalizeCommand(text)
	if norm == "" {
		return command{}, false
	}

	if name, ok := phrases[norm]; ok {
		return command{name: name}, true
	}

	// Bare 1-2 digit number picks from the last listing.
	if len(norm) <= 2 {
		if _, err := strconv.Atoi(norm); err == nil {
			return command{name: cmdDraft, arg: norm}, true
		}
	}

	// "draft <idea>" with the idea ID or listing position.
	if rest, ok := strings.CutPrefix(norm, "draft "); ok {
		rest = strings.TrimSpace(rest)
		if rest != "" && !strings.Contains(rest, " ") {
			return command{name: cmdDraft, arg: rest}, true
		}
	}

	return command{}, false
}

// normalizeCommand lowercases text and strips punctuation except dashes,
// which appear inside idea IDs.
func normalizeCommand(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// runCommand executes one parsed command.
func (p *Pipeline) runCommand(ctx context.Context, cmd command) {
	switch cmd.name {
	case cmdStatus:
		p.reportStatus(ctx)
	case cmdIdeas:
		p.listIdeas(ctx)
	case cmdMine:
		p.mineNow(ctx)
	case cmdCycle:
		p.runCycleNow(ctx)
	case cmdDraft:
		p.startDraftCommand(ctx, cmd.arg)
	case cmdStop:
		p.stopInterview(ctx)
	case cmdHelp:
		p.say(ctx, helpText)
	case cmdCancel:
		if cmd.cancelledRework {
			p.say(ctx, "Rework cancelled — the previous draft stands.")
		} else {
			p.say(ctx, "Nothing to cancel right now.")
		}
	}
}

const helpText = "Here's what I understand:\n" +
	"• `status` — pipeline counts and what's in flight\n" +
	"• `ideas` — list unprocessed content ideas\n" +
	"• `mine` — mine recent transcripts for new ideas\n" +
	"• `cycle` — run the scheduled content cycle now\n" +
	"• `draft <id>` or a bare number — interview me about that idea\n" +
	"• `stop` — abandon the current interview\n" +
	"• `cancel` — drop a pending rework\n" +
	"Reply to my questions in-thread to feed an interview."

// reportStatus summarises the pipeline.
func (p *Pipeline) reportStatus(ctx context.Context) {
	counts := p.reg.Counts()

	p.mu.Lock()
	activeID := p.latestActiveSessionLocked()
	var activeIdea string
	if activeID != "" {
		activeIdea = p.sessions[activeID].IdeaID
	}
	reworkPending := p.rework != nil
	p.mu.Unlock()

	var b strings.Builder
	b.WriteString("**Pipeline status**\n")
	fmt.Fprintf(&b, "Ideas: %d extracted · %d interviewing · %d drafting · %d draft-ready · %d published\n",
		counts[content.IdeaExtracted], counts[content.IdeaInterviewing],
		counts[content.IdeaDrafting], counts[content.IdeaDraftReady],
		counts[content.IdeaPublished])
	fmt.Fprintf(&b, "Transcripts mined: %d\n", p.reg.MinedCount())

	if activeIdea != "" {
		if idea, ok := p.reg.Get(activeIdea); ok {
			fmt.Fprintf(&b, "Active interview: %s\n", idea.Theme)
		}
	} else {
		b.WriteString("No interview in progress.\n")
	}
	if reworkPending {
		b.WriteString("A rework is waiting for your feedback.")
	}
	p.say(ctx, strings.TrimSpace(b.String()))
}

// listIdeas shows up to ideaListLimit unprocessed ideas, numbered for
// follow-up picks.
func (p *Pipeline) listIdeas(ctx context.Context) {
	ideas := p.reg.Unprocessed()
	if len(ideas) == 0 {
		p.say(ctx, "No unprocessed ideas right now — say `mine` to dig through recent transcripts.")
		p.mu.Lock()
		p.lastShown = nil
		p.mu.Unlock()
		return
	}
	if len(ideas) > ideaListLimit {
		ideas = ideas[:ideaListLimit]
	}

	shown := make([]string, len(ideas))
	var b strings.Builder
	b.WriteString("**Unprocessed ideas**\n")
	for i, idea := range ideas {
		shown[i] = idea.ID
		fmt.Fprintf(&b, "%d. %s — “%s” (%s)\n", i+1, idea.Theme, idea.Hook, idea.SuggestedFormat)
	}
	b.WriteString("Say a number or `draft <id>` to start an interview.")

	p.mu.Lock()
	p.lastShown = shown
	p.mu.Unlock()

	p.say(ctx, b.String())
}

// mineNow runs on-demand mining over the last 90 days of transcripts.
func (p *Pipeline) mineNow(ctx context.Context) {
	if p.miner == nil {
		p.say(ctx, "Mining isn't wired up right now.")
		return
	}
	p.say(ctx, "Mining recent transcripts…")

	n, err := p.miner.MineRecent(ctx, time.Now().Add(-mineCommandWindow))
	if err != nil {
		slog.Error("pipeline: mine command failed", "err", err)
		p.say(ctx, "Mining failed — I'll try again on the next scheduled run.")
		return
	}
	if n == 0 {
		p.say(ctx, "Nothing new — every recent transcript is already mined.")
		return
	}
	p.say(ctx, fmt.Sprintf("Found %d new idea(s). Say `ideas` to see them.", n))
}

// runCycleNow triggers one content cycle synchronously: poll, mine if the
// pool is empty, start an interview.
func (p *Pipeline) runCycleNow(ctx context.Context) {
	p.mu.Lock()
	runner := p.cycle
	p.mu.Unlock()

	if runner == nil {
		p.say(ctx, "The content cycle isn't wired up right now.")
		return
	}
	p.say(ctx, "Running a content cycle…")
	if err := runner.RunCycle(ctx); err != nil {
		slog.Error("pipeline: cycle command failed", "err", err)
		p.say(ctx, "The cycle hit a snag — the next scheduled run will retry.")
	}
}

// startDraftCommand resolves an idea reference (listing position, exact ID,
// or fuzzy ID) and starts an interview for it.
func (p *Pipeline) startDraftCommand(ctx context.Context, arg string) {
	idea, ok := p.resolveIdea(ctx, arg)
	if !ok {
		return // resolveIdea already replied
	}
	if idea.Status != content.IdeaExtracted {
		p.say(ctx, fmt.Sprintf("“%s” is already %s.", idea.Theme, idea.Status))
		return
	}
	if err := p.StartInterview(ctx, idea); err != nil {
		slog.Error("pipeline: start interview failed", "idea_id", idea.ID, "err", err)
		p.say(ctx, "I couldn't start that interview — try again in a moment.")
	}
}

// resolveIdea maps a draft-command argument to an idea. Replies with
// guidance and returns ok=false when nothing matches.
func (p *Pipeline) resolveIdea(ctx context.Context, arg string) (content.ContentIdea, bool) {
	// Listing position.
	if n, err := strconv.Atoi(arg); err == nil {
		p.mu.Lock()
		shown := append([]string(nil), p.lastShown...)
		p.mu.Unlock()

		if len(shown) == 0 {
			p.say(ctx, "I haven't listed any ideas yet — say `ideas` first.")
			return content.ContentIdea{}, false
		}
		if n < 1 || n > len(shown) {
			p.say(ctx, fmt.Sprintf("There's no idea at position %d — I listed %d.", n, len(shown)))
			return content.ContentIdea{}, false
		}
		if idea, ok := p.reg.Get(shown[n-1]); ok {
			return idea, true
		}
		p.say(ctx, "That idea is gone from the registry — say `ideas` for a fresh list.")
		return content.ContentIdea{}, false
	}

	// Exact ID.
	if idea, ok := p.reg.Get(arg); ok {
		return idea, true
	}

	// Fuzzy ID over the unprocessed pool, for fat-fingered pastes.
	var best content.ContentIdea
	bestDist := fuzzyIDThreshold + 1
	for _, idea := range p.reg.Unprocessed() {
		if d := matchr.Levenshtein(arg, idea.ID); d < bestDist {
			bestDist = d
			best = idea
		}
	}
	if bestDist <= fuzzyIDThreshold {
		return best, true
	}

	p.say(ctx, "I don't know that idea — say `ideas` to see what's available.")
	return content.ContentIdea{}, false
}

// stopInterview abandons the most recent active session.
func (p *Pipeline) stopInterview(ctx context.Context) {
	session, ok := p.abandonLatest(ctx)
	if !ok {
		p.say(ctx, "No interview is in progress.")
		return
	}
	theme := session.IdeaID
	if idea, ok := p.reg.Get(session.IdeaID); ok {
		theme = idea.Theme
	}
	p.say(ctx, fmt.Sprintf("Stopped the interview on “%s” — the idea is back in the pool.", theme))
}
