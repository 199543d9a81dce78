// Package store persists transcripts and content records (ideas and drafts)
// in PostgreSQL. It is the system of record; the in-memory registry is a
// rebuildable cache seeded from here at startup.
package store

import (
	"context"
	"errors"
	"time"

	"draftloop/internal/content"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Store is the durable record store consumed by the pipeline.
//
// Implementations must be safe for concurrent use. Lookups for missing
// records return ErrNotFound; list operations return empty slices.
type Store interface {
	// SaveTranscript inserts a transcript (content included if present).
	// Saving an existing ID updates title, participants, and content.
	SaveTranscript(ctx context.Context, t content.Transcript) error

	// RecentTranscripts returns transcripts with Timestamp >= since, newest
	// first, with Content omitted (use LoadTranscriptContent).
	RecentTranscripts(ctx context.Context, since time.Time) ([]content.Transcript, error)

	// AllTranscriptIDs returns every known transcript ID. Used to seed the
	// registry's mined set.
	AllTranscriptIDs(ctx context.Context) ([]string, error)

	// LoadTranscriptContent lazily loads the full text of one transcript.
	LoadTranscriptContent(ctx context.Context, id string) (string, error)

	// SaveIdea inserts a content idea.
	SaveIdea(ctx context.Context, idea content.ContentIdea) error

	// UpdateIdeaStatus updates an idea's status field.
	UpdateIdeaStatus(ctx context.Context, id string, status content.IdeaStatus) error

	// ListIdeas returns all stored ideas, oldest first.
	ListIdeas(ctx context.Context) ([]content.ContentIdea, error)

	// SaveDraft inserts a content draft.
	SaveDraft(ctx context.Context, draft content.ContentDraft) error

	// UpdateDraftStatus updates a draft's status field.
	UpdateDraftStatus(ctx context.Context, id string, status content.DraftStatus) error
}
