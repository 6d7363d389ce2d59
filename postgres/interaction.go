package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meikuraledutech/storyassist"
)

// AddInteraction appends a turn to a session's log with auto-incremented seq.
func (s *PGStore) AddInteraction(ctx context.Context, sessionID string, humanMessage, aiMessage string, stage storyassist.Stage) (*storyassist.Interaction, error) {
	it := &storyassist.Interaction{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		HumanMessage: humanMessage,
		AIMessage:    aiMessage,
		Stage:        stage,
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO storyassist_interactions (id, session_id, seq, human_message, ai_message, stage)
		 VALUES ($1, $2, COALESCE((SELECT MAX(seq) FROM storyassist_interactions WHERE session_id = $2), 0) + 1, $3, $4, $5)
		 RETURNING seq, created_at`,
		it.ID, sessionID, humanMessage, aiMessage, stage,
	).Scan(&it.Seq, &it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("storyassist: add interaction: %w", err)
	}

	return it, nil
}

// ListInteractions returns all turns for a session ordered by seq.
func (s *PGStore) ListInteractions(ctx context.Context, sessionID string) ([]storyassist.Interaction, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, storyassist.ErrInvalidSessionID
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, seq, human_message, ai_message, stage, created_at
		 FROM storyassist_interactions WHERE session_id = $1 ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("storyassist: list interactions: %w", err)
	}
	defer rows.Close()

	var interactions []storyassist.Interaction
	for rows.Next() {
		var it storyassist.Interaction
		if err := rows.Scan(&it.ID, &it.SessionID, &it.Seq, &it.HumanMessage, &it.AIMessage, &it.Stage, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("storyassist: scan interaction: %w", err)
		}
		interactions = append(interactions, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storyassist: list interactions: %w", err)
	}

	return interactions, nil
}
