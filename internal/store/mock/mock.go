// Package mock provides an in-memory test double for the store.Store
// interface.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"draftloop/internal/content"
	"draftloop/internal/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is an in-memory store.Store. Zero value is ready to use. Set the
// Err fields to inject failures per operation family.
type Store struct {
	mu sync.Mutex

	Transcripts map[string]content.Transcript
	Ideas       map[string]content.ContentIdea
	Drafts      map[string]content.ContentDraft

	// SavedIdeaIDs records the order in which ideas were saved.
	SavedIdeaIDs []string

	// SavedDraftIDs records the order in which drafts were saved.
	SavedDraftIDs []string

	// IdeaStatusUpdates records (id, status) pairs in call order.
	IdeaStatusUpdates [][2]string

	// DraftStatusUpdates records (id, status) pairs in call order.
	DraftStatusUpdates [][2]string

	// ContentLoads counts LoadTranscriptContent calls per transcript id.
	ContentLoads map[string]int

	TranscriptErr  error
	IdeaErr        error
	DraftErr       error
	ContentLoadErr error
}

// SaveTranscript implements store.Store.
func (s *Store) SaveTranscript(_ context.Context, t content.Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TranscriptErr != nil {
		return s.TranscriptErr
	}
	if s.Transcripts == nil {
		s.Transcripts = make(map[string]content.Transcript)
	}
	s.Transcripts[t.ID] = t
	return nil
}

// RecentTranscripts implements store.Store.
func (s *Store) RecentTranscripts(_ context.Context, since time.Time) ([]content.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TranscriptErr != nil {
		return nil, s.TranscriptErr
	}
	var out []content.Transcript
	for _, t := range s.Transcripts {
		if !t.Timestamp.Before(since) {
			t.Content = ""
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// AllTranscriptIDs implements store.Store.
func (s *Store) AllTranscriptIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TranscriptErr != nil {
		return nil, s.TranscriptErr
	}
	ids := make([]string, 0, len(s.Transcripts))
	for id := range s.Transcripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadTranscriptContent implements store.Store.
func (s *Store) LoadTranscriptContent(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ContentLoads == nil {
		s.ContentLoads = make(map[string]int)
	}
	s.ContentLoads[id]++
	if s.ContentLoadErr != nil {
		return "", s.ContentLoadErr
	}
	t, ok := s.Transcripts[id]
	if !ok {
		return "", store.ErrNotFound
	}
	return t.Content, nil
}

// SaveIdea implements store.Store.
func (s *Store) SaveIdea(_ context.Context, idea content.ContentIdea) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.IdeaErr != nil {
		return s.IdeaErr
	}
	if s.Ideas == nil {
		s.Ideas = make(map[string]content.ContentIdea)
	}
	if _, exists := s.Ideas[idea.ID]; !exists {
		s.SavedIdeaIDs = append(s.SavedIdeaIDs, idea.ID)
	}
	s.Ideas[idea.ID] = idea
	return nil
}

// UpdateIdeaStatus implements store.Store.
func (s *Store) UpdateIdeaStatus(_ context.Context, id string, status content.IdeaStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IdeaStatusUpdates = append(s.IdeaStatusUpdates, [2]string{id, string(status)})
	if s.IdeaErr != nil {
		return s.IdeaErr
	}
	idea, ok := s.Ideas[id]
	if !ok {
		return store.ErrNotFound
	}
	idea.Status = status
	s.Ideas[id] = idea
	return nil
}

// ListIdeas implements store.Store.
func (s *Store) ListIdeas(context.Context) ([]content.ContentIdea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.IdeaErr != nil {
		return nil, s.IdeaErr
	}
	out := make([]content.ContentIdea, 0, len(s.SavedIdeaIDs))
	for _, id := range s.SavedIdeaIDs {
		out = append(out, s.Ideas[id])
	}
	return out, nil
}

// SaveDraft implements store.Store.
func (s *Store) SaveDraft(_ context.Context, draft content.ContentDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DraftErr != nil {
		return s.DraftErr
	}
	if s.Drafts == nil {
		s.Drafts = make(map[string]content.ContentDraft)
	}
	if _, exists := s.Drafts[draft.ID]; !exists {
		s.SavedDraftIDs = append(s.SavedDraftIDs, draft.ID)
	}
	s.Drafts[draft.ID] = draft
	return nil
}

// UpdateDraftStatus implements store.Store.
func (s *Store) UpdateDraftStatus(_ context.Context, id string, status content.DraftStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DraftStatusUpdates = append(s.DraftStatusUpdates, [2]string{id, string(status)})
	if s.DraftErr != nil {
		return s.DraftErr
	}
	draft, ok := s.Drafts[id]
	if !ok {
		return store.ErrNotFound
	}
	draft.Status = status
	s.Drafts[id] = draft
	return nil
}
