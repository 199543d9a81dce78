package drafting

import (
	"context"
	"fmt"
	"strings"

	"draftloop/internal/content"
	"draftloop/pkg/provider/llm"
)

// Compile-time interface check.
var _ Service = (*LLMService)(nil)

// LLMService implements Service on top of an llm.Provider.
type LLMService struct {
	provider llm.Provider
	voice    string
}

// Option configures an LLMService.
type Option func(*LLMService)

// WithVoice sets the voice-and-style guide injected into draft prompts.
func WithVoice(voice string) Option {
	return func(s *LLMService) {
		s.voice = voice
	}
}

// NewLLMService creates a drafting service backed by provider.
func NewLLMService(provider llm.Provider, opts ...Option) *LLMService {
	s := &LLMService{provider: provider}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ExtractIdeas implements Service.
func (s *LLMService) ExtractIdeas(ctx context.Context, transcripts []content.Transcript) ([]IdeaCandidate, error) {
	if len(transcripts) == 0 {
		return nil, nil
	}
	raw, err := s.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: extractSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: buildExtractPrompt(transcripts)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("drafting: extract ideas: %w", err)
	}
	return parseCandidates(raw), nil
}

// OpeningMessage implements Service.
func (s *LLMService) OpeningMessage(ctx context.Context, idea content.ContentIdea) (string, error) {
	raw, err := s.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: interviewSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: buildIdeaContext(idea) +
				"\nWrite the opening message of the interview: present the idea in one or two sentences, then ask your first question."},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return "", fmt.Errorf("drafting: opening message: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// FollowUpQuestion implements Service.
func (s *LLMService) FollowUpQuestion(ctx context.Context, idea content.ContentIdea, history []content.InterviewMessage) (string, error) {
	raw, err := s.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: interviewSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: buildIdeaContext(idea) +
				"\nInterview so far:\n" + buildHistory(history) +
				"\nAsk the single most useful follow-up question."},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return "", fmt.Errorf("drafting: follow-up question: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// HasEnoughMaterial implements Service. The floor and cap are enforced here
// so a single erratic judgment cannot stall or prolong an interview: fewer
// than MinUserReplies user messages is never enough, and
// MaxInterviewMessages total messages is always enough.
func (s *LLMService) HasEnoughMaterial(ctx context.Context, idea content.ContentIdea, history []content.InterviewMessage) (bool, error) {
	if len(history) >= MaxInterviewMessages {
		return true, nil
	}
	userReplies := 0
	for _, m := range history {
		if m.Role == content.RoleUser {
			userReplies++
		}
	}
	if userReplies < MinUserReplies {
		return false, nil
	}

	raw, err := s.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: judgeSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: buildIdeaContext(idea) + "\nInterview:\n" + buildHistory(history)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("drafting: judge material: %w", err)
	}
	return parseYesNo(raw), nil
}

// GenerateDraft implements Service.
func (s *LLMService) GenerateDraft(ctx context.Context, idea content.ContentIdea, history []content.InterviewMessage, format content.Format) (Draft, error) {
	raw, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "user", Content: buildDraftPrompt(idea, history, format, s.voice)},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return Draft{}, fmt.Errorf("drafting: generate draft: %w", err)
	}
	return parseDraft(raw, idea.Theme), nil
}

// ReworkDraft implements Service.
func (s *LLMService) ReworkDraft(ctx context.Context, body string, feedback string) (string, error) {
	prompt := "Rewrite the draft below according to the feedback. Keep the format and overall length. Reply with the rewritten draft only.\n\nDraft:\n" + body + "\n\nFeedback:\n" + feedback
	if s.voice != "" {
		prompt = "Voice and style guide:\n" + s.voice + "\n\n" + prompt
	}
	raw, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.8,
	})
	if err != nil {
		return "", fmt.Errorf("drafting: rework draft: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// ConvertToThread implements Service.
func (s *LLMService) ConvertToThread(ctx context.Context, body string) (string, error) {
	raw, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "user", Content: "Convert this long-form post into a short-form thread of numbered posts, each under 280 characters. Reply with the thread only.\n\n" + body},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return "", fmt.Errorf("drafting: convert to thread: %w", err)
	}
	return strings.TrimSpace(raw), nil
}
