// Package mock provides a test double for the drafting.Service interface.
package mock

import (
	"context"
	"sync"

	"draftloop/internal/content"
	"draftloop/internal/drafting"
)

// Compile-time interface check.
var _ drafting.Service = (*Service)(nil)

// ExtractCall records a single ExtractIdeas invocation.
type ExtractCall struct {
	// Transcripts is the batch passed to ExtractIdeas.
	Transcripts []content.Transcript
}

// Service is a mock drafting.Service. Zero values return empty results and
// nil errors. Set the Err fields to inject failures.
type Service struct {
	mu sync.Mutex

	// ExtractResults is the queue of candidate slices returned by
	// successive ExtractIdeas calls. The last entry repeats when exhausted;
	// an empty queue returns nil.
	ExtractResults [][]drafting.IdeaCandidate
	ExtractErr     error
	extractNext    int

	// ExtractErrs injects per-call errors: call N fails with ExtractErrs[N]
	// when that entry is non-nil. Calls beyond the slice use ExtractErr.
	ExtractErrs []error

	// ExtractCalls records every ExtractIdeas invocation in order.
	ExtractCalls []ExtractCall

	OpeningResult string
	OpeningErr    error

	FollowUpResult string
	FollowUpErr    error

	// EnoughResults is consumed one judgment per HasEnoughMaterial call;
	// the last entry repeats. Empty means false.
	EnoughResults []bool
	EnoughErr     error
	enoughNext    int

	// EnoughCalls counts HasEnoughMaterial invocations.
	EnoughCalls int

	DraftResult drafting.Draft
	DraftErr    error

	ReworkResult string
	ReworkErr    error
	// ReworkCalls records the (body, feedback) pairs passed to ReworkDraft.
	ReworkCalls [][2]string

	ThreadResult string
	ThreadErr    error
	ThreadCalls  int
}

// ExtractIdeas implements drafting.Service.
func (s *Service) ExtractIdeas(_ context.Context, transcripts []content.Transcript) ([]drafting.IdeaCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := len(s.ExtractCalls)
	s.ExtractCalls = append(s.ExtractCalls, ExtractCall{Transcripts: transcripts})
	if call < len(s.ExtractErrs) && s.ExtractErrs[call] != nil {
		return nil, s.ExtractErrs[call]
	}
	if s.ExtractErr != nil {
		return nil, s.ExtractErr
	}
	if len(s.ExtractResults) == 0 {
		return nil, nil
	}
	idx := s.extractNext
	if idx >= len(s.ExtractResults) {
		idx = len(s.ExtractResults) - 1
	}
	s.extractNext++
	return s.ExtractResults[idx], nil
}

// OpeningMessage implements drafting.Service.
func (s *Service) OpeningMessage(context.Context, content.ContentIdea) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.OpeningResult, s.OpeningErr
}

// FollowUpQuestion implements drafting.Service.
func (s *Service) FollowUpQuestion(context.Context, content.ContentIdea, []content.InterviewMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FollowUpResult, s.FollowUpErr
}

// HasEnoughMaterial implements drafting.Service. It applies the same
// floor/cap contract as the real service so pipeline tests exercise the
// bounded-interview behavior.
func (s *Service) HasEnoughMaterial(_ context.Context, _ content.ContentIdea, history []content.InterviewMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.EnoughCalls++
	if s.EnoughErr != nil {
		return false, s.EnoughErr
	}
	if len(history) >= drafting.MaxInterviewMessages {
		return true, nil
	}
	userReplies := 0
	for _, m := range history {
		if m.Role == content.RoleUser {
			userReplies++
		}
	}
	if userReplies < drafting.MinUserReplies {
		return false, nil
	}
	if len(s.EnoughResults) == 0 {
		return false, nil
	}
	idx := s.enoughNext
	if idx >= len(s.EnoughResults) {
		idx = len(s.EnoughResults) - 1
	}
	s.enoughNext++
	return s.EnoughResults[idx], nil
}

// GenerateDraft implements drafting.Service.
func (s *Service) GenerateDraft(context.Context, content.ContentIdea, []content.InterviewMessage, content.Format) (drafting.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.DraftResult, s.DraftErr
}

// ReworkDraft implements drafting.Service.
func (s *Service) ReworkDraft(_ context.Context, body string, feedback string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReworkCalls = append(s.ReworkCalls, [2]string{body, feedback})
	return s.ReworkResult, s.ReworkErr
}

// ConvertToThread implements drafting.Service.
func (s *Service) ConvertToThread(context.Context, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ThreadCalls++
	return s.ThreadResult, s.ThreadErr
}
