// Package registry holds the in-memory content idea registry: the idea table,
// the normalized-hook set used for duplicate suppression, and the set of
// transcript IDs that have already been mined.
//
// The registry is a rebuildable cache seeded from the record store at
// startup; the store remains the system of record. All exported methods are
// safe for concurrent use.
package registry

import (
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"draftloop/internal/content"
)

// Registry owns the ContentIdea lifecycle and the two dedup sets.
// Construct with [New]; the zero value is not ready to use.
type Registry struct {
	mu    sync.RWMutex
	ideas map[string]*content.ContentIdea
	order []string // insertion order of idea IDs

	hooks map[string]struct{} // normalized hooks seen so far
	mined map[string]struct{} // transcript IDs already mined
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		ideas: make(map[string]*content.ContentIdea),
		hooks: make(map[string]struct{}),
		mined: make(map[string]struct{}),
	}
}

// NormalizeHook lowercases a hook, strips punctuation, and collapses
// whitespace. The normalized form is the sole deduplication key.
func NormalizeHook(hook string) string {
	var b strings.Builder
	b.Grow(len(hook))
	lastSpace := true
	for _, r := range strings.ToLower(hook) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// punctuation and symbols are dropped
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// LoadExisting seeds the registry from a durable snapshot of ideas plus the
// full list of known transcript IDs.
//
// For every idea with recorded source transcripts, those transcript IDs are
// marked mined. If any idea lacks source transcript IDs (legacy data) and
// allTranscriptIDs is non-empty, every supplied transcript ID is marked
// mined instead: re-mining old transcripts against legacy ideas produces
// duplicates, which costs more than the small risk of never re-mining them.
func (r *Registry) LoadExisting(ideas []content.ContentIdea, allTranscriptIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	legacy := false
	for i := range ideas {
		idea := ideas[i]
		if _, ok := r.ideas[idea.ID]; !ok {
			r.ideas[idea.ID] = &idea
			r.order = append(r.order, idea.ID)
		}
		r.hooks[NormalizeHook(idea.Hook)] = struct{}{}
		if len(idea.SourceTranscriptIDs) == 0 {
			legacy = true
			continue
		}
		for _, tid := range idea.SourceTranscriptIDs {
			r.mined[tid] = struct{}{}
		}
	}

	if legacy && len(allTranscriptIDs) > 0 {
		for _, tid := range allTranscriptIDs {
			r.mined[tid] = struct{}{}
		}
		slog.Warn("registry: legacy ideas without source transcripts; marking all known transcripts mined",
			"ideas", len(ideas), "transcripts", len(allTranscriptIDs))
	}

	slog.Info("registry seeded", "ideas", len(r.ideas), "mined_transcripts", len(r.mined))
}

// Record inserts an idea and registers its normalized hook. Recording an
// idea whose ID is already present is a no-op.
func (r *Registry) Record(idea content.ContentIdea) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ideas[idea.ID]; ok {
		return
	}
	r.ideas[idea.ID] = &idea
	r.order = append(r.order, idea.ID)
	r.hooks[NormalizeHook(idea.Hook)] = struct{}{}
}

// IsDuplicate reports whether the normalized form of hook has already been
// recorded. Callers must check this before Record and skip duplicates.
func (r *Registry) IsDuplicate(hook string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.hooks[NormalizeHook(hook)]
	return ok
}

// MarkMined records that a transcript has been submitted for mining.
// Idempotent.
func (r *Registry) MarkMined(transcriptID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mined[transcriptID] = struct{}{}
}

// IsMined reports whether a transcript has already been mined.
func (r *Registry) IsMined(transcriptID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.mined[transcriptID]
	return ok
}

// MinedCount returns the number of transcripts marked mined.
func (r *Registry) MinedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mined)
}

// Unprocessed returns ideas still in the extracted status, in insertion
// order. The returned values are copies.
func (r *Registry) Unprocessed() []content.ContentIdea {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []content.ContentIdea
	for _, id := range r.order {
		if idea := r.ideas[id]; idea.Status == content.IdeaExtracted {
			out = append(out, *idea)
		}
	}
	return out
}

// Get returns the idea with the given ID, or false if it is unknown.
func (r *Registry) Get(id string) (content.ContentIdea, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idea, ok := r.ideas[id]
	if !ok {
		return content.ContentIdea{}, false
	}
	return *idea, true
}

// SetStatus transitions an idea's in-memory status. The caller is
// responsible for propagating the change to the record store; a propagation
// failure must not roll back the in-memory state, which is authoritative
// for routing decisions. Returns false if the idea is unknown.
func (r *Registry) SetStatus(id string, status content.IdeaStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idea, ok := r.ideas[id]
	if !ok {
		return false
	}
	idea.Status = status
	return true
}

// Counts returns the number of ideas per status.
func (r *Registry) Counts() map[content.IdeaStatus]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[content.IdeaStatus]int)
	for _, idea := range r.ideas {
		counts[idea.Status]++
	}
	return counts
}
