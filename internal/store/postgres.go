package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"draftloop/internal/content"
)

// DB is the database interface used by [Postgres]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Compile-time interface check.
var _ Store = (*Postgres)(nil)

// Postgres is a [Store] backed by a PostgreSQL database. Structured
// sub-fields (participants, quotes, source transcript lists) are serialised
// as JSONB.
type Postgres struct {
	db DB
}

// NewPostgres creates a Postgres store on an existing connection or pool.
// The caller is responsible for calling [Postgres.Migrate] before issuing
// queries.
func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

// Connect opens a pgx pool against dsn, pings it, and runs Migrate.
func Connect(ctx context.Context, dsn string) (*Postgres, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("store: ping: %w", err)
	}

	s := NewPostgres(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool, nil
}

// Migrate executes the [Schema] DDL. Idempotent; a no-op when the tables
// already exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// SaveTranscript implements [Store].
func (s *Postgres) SaveTranscript(ctx context.Context, t content.Transcript) error {
	participants, err := json.Marshal(emptySlice(t.Participants))
	if err != nil {
		return fmt.Errorf("store: marshal participants: %w", err)
	}

	const query = `
		INSERT INTO transcripts (id, meeting_id, title, timestamp, participants, content, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    participants = EXCLUDED.participants,
		    content = CASE WHEN EXCLUDED.content <> '' THEN EXCLUDED.content ELSE transcripts.content END`

	if _, err := s.db.Exec(ctx, query,
		t.ID, t.MeetingID, t.Title, t.Timestamp, participants, t.Content, string(t.Source),
	); err != nil {
		return fmt.Errorf("store: save transcript %q: %w", t.ID, err)
	}
	return nil
}

// RecentTranscripts implements [Store]. Content is not selected; use
// [Postgres.LoadTranscriptContent] to fetch it lazily.
func (s *Postgres) RecentTranscripts(ctx context.Context, since time.Time) ([]content.Transcript, error) {
	const query = `
		SELECT id, meeting_id, title, timestamp, participants, source
		FROM transcripts
		WHERE timestamp >= $1
		ORDER BY timestamp DESC`

	rows, err := s.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("store: recent transcripts: %w", err)
	}
	defer rows.Close()

	var out []content.Transcript
	for rows.Next() {
		var t content.Transcript
		var participants []byte
		var source string
		if err := rows.Scan(&t.ID, &t.MeetingID, &t.Title, &t.Timestamp, &participants, &source); err != nil {
			return nil, fmt.Errorf("store: scan transcript: %w", err)
		}
		if err := json.Unmarshal(participants, &t.Participants); err != nil {
			return nil, fmt.Errorf("store: unmarshal participants: %w", err)
		}
		t.Source = content.Source(source)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent transcripts: %w", err)
	}
	return out, nil
}

// AllTranscriptIDs implements [Store].
func (s *Postgres) AllTranscriptIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM transcripts`)
	if err != nil {
		return nil, fmt.Errorf("store: all transcript ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan transcript id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: all transcript ids: %w", err)
	}
	return ids, nil
}

// LoadTranscriptContent implements [Store].
func (s *Postgres) LoadTranscriptContent(ctx context.Context, id string) (string, error) {
	var text string
	err := s.db.QueryRow(ctx, `SELECT content FROM transcripts WHERE id = $1`, id).Scan(&text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("store: load transcript content %q: %w", id, err)
	}
	return text, nil
}

// SaveIdea implements [Store].
func (s *Postgres) SaveIdea(ctx context.Context, idea content.ContentIdea) error {
	quotes, err := json.Marshal(emptySlice(idea.Quotes))
	if err != nil {
		return fmt.Errorf("store: marshal quotes: %w", err)
	}
	sources, err := json.Marshal(emptySlice(idea.SourceTranscriptIDs))
	if err != nil {
		return fmt.Errorf("store: marshal source transcripts: %w", err)
	}

	const query = `
		INSERT INTO content_records (id, kind, theme, hook, quotes, source_transcripts, format, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	if _, err := s.db.Exec(ctx, query,
		idea.ID, kindIdea, idea.Theme, idea.Hook, quotes, sources,
		string(idea.SuggestedFormat), string(idea.Status), idea.CreatedAt,
	); err != nil {
		return fmt.Errorf("store: save idea %q: %w", idea.ID, err)
	}
	return nil
}

// UpdateIdeaStatus implements [Store].
func (s *Postgres) UpdateIdeaStatus(ctx context.Context, id string, status content.IdeaStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE content_records SET status = $1 WHERE id = $2 AND kind = $3`,
		string(status), id, kindIdea,
	)
	if err != nil {
		return fmt.Errorf("store: update idea status %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIdeas implements [Store].
func (s *Postgres) ListIdeas(ctx context.Context) ([]content.ContentIdea, error) {
	const query = `
		SELECT id, theme, hook, quotes, source_transcripts, format, status, created_at
		FROM content_records
		WHERE kind = $1
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, kindIdea)
	if err != nil {
		return nil, fmt.Errorf("store: list ideas: %w", err)
	}
	defer rows.Close()

	var out []content.ContentIdea
	for rows.Next() {
		var idea content.ContentIdea
		var quotes, sources []byte
		var format, status string
		if err := rows.Scan(&idea.ID, &idea.Theme, &idea.Hook, &quotes, &sources, &format, &status, &idea.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan idea: %w", err)
		}
		if err := json.Unmarshal(quotes, &idea.Quotes); err != nil {
			return nil, fmt.Errorf("store: unmarshal quotes: %w", err)
		}
		if err := json.Unmarshal(sources, &idea.SourceTranscriptIDs); err != nil {
			return nil, fmt.Errorf("store: unmarshal source transcripts: %w", err)
		}
		idea.SuggestedFormat = content.Format(format)
		idea.Status = content.IdeaStatus(status)
		out = append(out, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list ideas: %w", err)
	}
	return out, nil
}

// SaveDraft implements [Store].
func (s *Postgres) SaveDraft(ctx context.Context, draft content.ContentDraft) error {
	const query = `
		INSERT INTO content_records (id, kind, idea_id, format, status, title, body, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	if _, err := s.db.Exec(ctx, query,
		draft.ID, kindDraft, draft.IdeaID, string(draft.Format),
		string(draft.Status), draft.Title, draft.Body, draft.Version, draft.CreatedAt,
	); err != nil {
		return fmt.Errorf("store: save draft %q: %w", draft.ID, err)
	}
	return nil
}

// UpdateDraftStatus implements [Store].
func (s *Postgres) UpdateDraftStatus(ctx context.Context, id string, status content.DraftStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE content_records SET status = $1 WHERE id = $2 AND kind = $3`,
		string(status), id, kindDraft,
	)
	if err != nil {
		return fmt.Errorf("store: update draft status %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// emptySlice substitutes an empty slice for nil so JSONB columns store []
// rather than null.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
