package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/storyassist"
)

// CreateSession inserts a new session starting at the refinement stage.
func (s *PGStore) CreateSession(ctx context.Context) (*storyassist.Session, error) {
	sess := &storyassist.Session{
		ID:           uuid.New().String(),
		CurrentStage: storyassist.StageRefinement,
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO storyassist_sessions (id, current_stage)
		 VALUES ($1, $2)
		 RETURNING created_at, updated_at`,
		sess.ID, sess.CurrentStage,
	).Scan(&sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("storyassist: create session: %w", err)
	}

	return sess, nil
}

// GetSession retrieves a session by id. Lookup is strict.
func (s *PGStore) GetSession(ctx context.Context, sessionID string) (*storyassist.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, storyassist.ErrInvalidSessionID
	}

	sess := &storyassist.Session{ID: sessionID}

	err := s.db.QueryRow(ctx,
		`SELECT current_stage, refined_story, refinement_feedback,
		        corner_cases, corner_cases_feedback,
		        testing_strategies, testing_feedback,
		        finalized_story, finalization_feedback,
		        created_at, updated_at
		 FROM storyassist_sessions WHERE id = $1`,
		sessionID,
	).Scan(
		&sess.CurrentStage, &sess.RefinedStory, &sess.RefinementFeedback,
		&sess.CornerCases, &sess.CornerCasesFeedback,
		&sess.TestingStrategies, &sess.TestingFeedback,
		&sess.FinalizedStory, &sess.FinalizationFeedback,
		&sess.CreatedAt, &sess.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storyassist.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storyassist: get session: %w", err)
	}

	return sess, nil
}

// UpdateSession writes the session's stage artifacts back to the row.
func (s *PGStore) UpdateSession(ctx context.Context, session *storyassist.Session) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE storyassist_sessions SET
			current_stage = $1,
			refined_story = $2, refinement_feedback = $3,
			corner_cases = $4, corner_cases_feedback = $5,
			testing_strategies = $6, testing_feedback = $7,
			finalized_story = $8, finalization_feedback = $9,
			updated_at = NOW()
		 WHERE id = $10`,
		session.CurrentStage,
		session.RefinedStory, session.RefinementFeedback,
		session.CornerCases, session.CornerCasesFeedback,
		session.TestingStrategies, session.TestingFeedback,
		session.FinalizedStory, session.FinalizationFeedback,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("storyassist: update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storyassist.ErrSessionNotFound
	}

	return nil
}
