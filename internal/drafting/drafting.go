// Package drafting wraps the text-generation backend behind the seven
// operations the content pipeline needs: idea extraction, interview
// management (opening message, follow-up, enough-material judgment), draft
// generation, rework, and long-form to thread conversion.
//
// All operations are request/response. A malformed model response is never
// an error: operations degrade to an empty or neutral result so a flaky
// model cannot crash the pipeline.
package drafting

import (
	"context"

	"draftloop/internal/content"
)

// IdeaCandidate is one content idea returned by extraction, before it is
// assigned an identifier and recorded.
type IdeaCandidate struct {
	// Theme is a short topic description.
	Theme string `json:"theme"`

	// Hook is the proposed opening line (the dedup key).
	Hook string `json:"hook"`

	// Quotes holds supporting quotes lifted from the transcripts.
	Quotes []string `json:"quotes"`

	// SuggestedFormat is the recommended output format.
	SuggestedFormat content.Format `json:"suggested_format"`
}

// Draft is the result of draft generation.
type Draft struct {
	// Title is a short display title.
	Title string `json:"title"`

	// Body is the full draft text.
	Body string `json:"body"`
}

// Service is the text-generation capability consumed by the pipeline.
//
// Implementations must be safe for concurrent use. Network and backend
// errors are returned as errors; malformed-but-received responses are
// converted to empty/neutral results with a nil error.
type Service interface {
	// ExtractIdeas mines a batch of transcripts for content ideas.
	// An unparseable response yields an empty slice.
	ExtractIdeas(ctx context.Context, transcripts []content.Transcript) ([]IdeaCandidate, error)

	// OpeningMessage generates the first interview message for an idea.
	OpeningMessage(ctx context.Context, idea content.ContentIdea) (string, error)

	// FollowUpQuestion generates one follow-up question given the interview
	// so far.
	FollowUpQuestion(ctx context.Context, idea content.ContentIdea, history []content.InterviewMessage) (string, error)

	// HasEnoughMaterial judges whether the interview has gathered enough
	// material to draft. It enforces a floor of two user replies (always
	// false below it) and a hard cap of ten total messages (always true at
	// or above it) regardless of the model's judgment.
	HasEnoughMaterial(ctx context.Context, idea content.ContentIdea, history []content.InterviewMessage) (bool, error)

	// GenerateDraft writes a draft in the given format from the idea and the
	// interview history, in the configured voice.
	GenerateDraft(ctx context.Context, idea content.ContentIdea, history []content.InterviewMessage, format content.Format) (Draft, error)

	// ReworkDraft rewrites a draft body according to user feedback.
	ReworkDraft(ctx context.Context, body string, feedback string) (string, error)

	// ConvertToThread turns a long-form post into a short-form thread.
	ConvertToThread(ctx context.Context, body string) (string, error)
}

// Interview length bounds enforced by HasEnoughMaterial.
const (
	// MinUserReplies is the number of user replies below which the judgment
	// is always "not enough".
	MinUserReplies = 2

	// MaxInterviewMessages is the total message count at which the judgment
	// is forced to "enough", bounding interview length.
	MaxInterviewMessages = 10
)
