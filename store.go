package storyassist

import "context"

// Store defines the contract for persisting sessions and their interaction
// logs. Implementations must treat session lookup as strict: a well-formed but
// unknown id yields ErrSessionNotFound, a malformed id ErrInvalidSessionID.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error

	// Sessions
	CreateSession(ctx context.Context) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error

	// Interactions
	AddInteraction(ctx context.Context, sessionID string, humanMessage, aiMessage string, stage Stage) (*Interaction, error)
	ListInteractions(ctx context.Context, sessionID string) ([]Interaction, error)
}
