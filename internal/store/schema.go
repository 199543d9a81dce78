package store

// Schema is the SQL DDL for the draftloop tables. It is idempotent
// (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT EXISTS) and safe to run
// on every application start via [Postgres.Migrate].
//
// Content records for ideas and drafts share one table discriminated by the
// kind column; idea-only and draft-only columns default to empty.
const Schema = `
CREATE TABLE IF NOT EXISTS transcripts (
    id           TEXT         PRIMARY KEY,
    meeting_id   TEXT         NOT NULL DEFAULT '',
    title        TEXT         NOT NULL DEFAULT '',
    timestamp    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    participants JSONB        NOT NULL DEFAULT '[]',
    content      TEXT         NOT NULL DEFAULT '',
    source       TEXT         NOT NULL DEFAULT 'manual'
);

CREATE INDEX IF NOT EXISTS idx_transcripts_timestamp
    ON transcripts (timestamp);

CREATE TABLE IF NOT EXISTS content_records (
    id                 TEXT         PRIMARY KEY,
    kind               TEXT         NOT NULL,
    idea_id            TEXT         NOT NULL DEFAULT '',
    theme              TEXT         NOT NULL DEFAULT '',
    hook               TEXT         NOT NULL DEFAULT '',
    quotes             JSONB        NOT NULL DEFAULT '[]',
    source_transcripts JSONB        NOT NULL DEFAULT '[]',
    format             TEXT         NOT NULL DEFAULT '',
    status             TEXT         NOT NULL DEFAULT '',
    title              TEXT         NOT NULL DEFAULT '',
    body               TEXT         NOT NULL DEFAULT '',
    version            INT          NOT NULL DEFAULT 0,
    created_at         TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_content_records_kind
    ON content_records (kind);

CREATE INDEX IF NOT EXISTS idx_content_records_status
    ON content_records (status);

CREATE INDEX IF NOT EXISTS idx_content_records_created_at
    ON content_records (created_at);
`

// Record kinds stored in content_records.kind.
const (
	kindIdea  = "idea"
	kindDraft = "draft"
)
