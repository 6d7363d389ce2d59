package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS storyassist_sessions (
	id                    UUID PRIMARY KEY,
	current_stage         TEXT NOT NULL,
	refined_story         TEXT NOT NULL DEFAULT '',
	refinement_feedback   TEXT NOT NULL DEFAULT '',
	corner_cases          TEXT[] NOT NULL DEFAULT '{}',
	corner_cases_feedback TEXT NOT NULL DEFAULT '',
	testing_strategies    TEXT[] NOT NULL DEFAULT '{}',
	testing_feedback      TEXT NOT NULL DEFAULT '',
	finalized_story       TEXT NOT NULL DEFAULT '',
	finalization_feedback TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS storyassist_interactions (
	id            UUID PRIMARY KEY,
	session_id    UUID NOT NULL REFERENCES storyassist_sessions(id),
	seq           INT NOT NULL,
	human_message TEXT NOT NULL,
	ai_message    TEXT NOT NULL,
	stage         TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (session_id, seq)
);`

// CreateSchema creates the storyassist tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops all storyassist tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		DROP TABLE IF EXISTS storyassist_interactions CASCADE;
		DROP TABLE IF EXISTS storyassist_sessions CASCADE;
	`)
	return err
}
