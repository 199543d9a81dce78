// Package content defines the core domain types shared across the draftloop
// pipeline: ingested transcripts, mined content ideas, interview sessions,
// and generated drafts.
package content

import "time"

// Source identifies where a transcript came from.
type Source string

const (
	// SourceTLDV marks transcripts pulled from the tl;dv meeting recorder.
	SourceTLDV Source = "tldv"

	// SourceManual marks transcripts submitted by hand.
	SourceManual Source = "manual"
)

// IsValid reports whether s is a recognised transcript source.
func (s Source) IsValid() bool {
	return s == SourceTLDV || s == SourceManual
}

// Format is the suggested output format for a content idea or draft.
type Format string

const (
	FormatLinkedInPost  Format = "linkedin_post"
	FormatYouTubeScript Format = "youtube_script"
	FormatNewsletter    Format = "newsletter"
	FormatXThread       Format = "x_thread"
)

// IsValid reports whether f is a recognised output format.
func (f Format) IsValid() bool {
	switch f {
	case FormatLinkedInPost, FormatYouTubeScript, FormatNewsletter, FormatXThread:
		return true
	}
	return false
}

// IdeaStatus tracks a content idea through the pipeline. The statuses form
// an ordered progression; SetStatus on the registry is the only mutator.
type IdeaStatus string

const (
	IdeaExtracted    IdeaStatus = "extracted"
	IdeaInterviewing IdeaStatus = "interviewing"
	IdeaDrafting     IdeaStatus = "drafting"
	IdeaDraftReady   IdeaStatus = "draft_ready"
	IdeaPublished    IdeaStatus = "published"
)

// IsValid reports whether st is a recognised idea status.
func (st IdeaStatus) IsValid() bool {
	switch st {
	case IdeaExtracted, IdeaInterviewing, IdeaDrafting, IdeaDraftReady, IdeaPublished:
		return true
	}
	return false
}

// SessionStatus tracks an interview session. Completed and abandoned are
// terminal; no transition leaves them.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// DraftStatus tracks a generated draft.
type DraftStatus string

const (
	DraftStatusDraft     DraftStatus = "draft"
	DraftStatusReview    DraftStatus = "review"
	DraftStatusApproved  DraftStatus = "approved"
	DraftStatusPublished DraftStatus = "published"
)

// Transcript is one unit of ingested conversation. Immutable after creation
// except for lazy population of Content.
type Transcript struct {
	// ID is the internal transcript identifier.
	ID string

	// MeetingID is the provider-side meeting identifier (empty for manual).
	MeetingID string

	// Title is the meeting or document title.
	Title string

	// Timestamp is when the conversation took place.
	Timestamp time.Time

	// Participants lists the people in the conversation.
	Participants []string

	// Content is the full transcript text. May be empty until lazily loaded
	// from the record store.
	Content string

	// Source records provenance (tldv or manual).
	Source Source
}

// ContentIdea is a candidate piece of content mined from transcripts.
type ContentIdea struct {
	// ID is the internal idea identifier.
	ID string

	// SourceTranscriptIDs lists the transcripts this idea was mined from.
	SourceTranscriptIDs []string

	// Theme is a short description of the idea's topic.
	Theme string

	// Hook is the opening line. It doubles as the deduplication key under
	// hook normalization.
	Hook string

	// Quotes holds supporting verbatim quotes from the transcripts.
	Quotes []string

	// SuggestedFormat is the output format the miner recommends.
	SuggestedFormat Format

	// Status is the idea's pipeline position.
	Status IdeaStatus

	// CreatedAt is when the idea was recorded.
	CreatedAt time.Time
}

// InterviewMessage is one entry in an interview session's transcript.
type InterviewMessage struct {
	// Role is "agent" or "user".
	Role string

	// Text is the message content.
	Text string

	// Timestamp is when the message was appended.
	Timestamp time.Time
}

// Message roles used in InterviewMessage.
const (
	RoleAgent = "agent"
	RoleUser  = "user"
)

// InterviewSession is one active human interview for exactly one idea.
// Message order is append-only and chronological.
type InterviewSession struct {
	// ID is the session identifier.
	ID string

	// IdeaID is the idea this session gathers material for.
	IdeaID string

	// ThreadID anchors the chat thread the interview runs in.
	ThreadID string

	// Messages is the ordered interview exchange.
	Messages []InterviewMessage

	// Status is active, completed, or abandoned.
	Status SessionStatus

	// StartedAt is when the session opened.
	StartedAt time.Time

	// CompletedAt is when the session reached a terminal state.
	CompletedAt time.Time
}

// ContentDraft is a generated artifact. Rework never mutates a draft; it
// produces a new one with Version+1 and a fresh ID.
type ContentDraft struct {
	// ID is the draft identifier.
	ID string

	// IdeaID is the owning idea.
	IdeaID string

	// Format is the output format, preserved across rework.
	Format Format

	// Title is a short display title.
	Title string

	// Body is the draft text.
	Body string

	// Version starts at 1 and increments by 1 per rework.
	Version int

	// Status is draft, review, approved, or published.
	Status DraftStatus

	// CreatedAt is when this version was generated.
	CreatedAt time.Time
}

// PendingRework is the ephemeral record of a draft awaiting feedback.
// At most one exists at a time.
type PendingRework struct {
	// DraftID is the draft the feedback applies to.
	DraftID string

	// IdeaID is the draft's owning idea.
	IdeaID string
}
