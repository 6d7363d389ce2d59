// Package memory provides the in-process Store used when no database is
// configured. Sessions live for the process lifetime; nothing is ever
// deleted.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meikuraledutech/storyassist"
)

// Store is an in-memory implementation of storyassist.Store.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]*storyassist.Session
	interactions map[string][]storyassist.Interaction
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		sessions:     make(map[string]*storyassist.Session),
		interactions: make(map[string][]storyassist.Interaction),
	}
}

// CreateSchema is a no-op for the in-memory store.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// CreateSession mints a new session starting at the refinement stage.
func (s *Store) CreateSession(ctx context.Context) (*storyassist.Session, error) {
	now := time.Now()
	sess := &storyassist.Session{
		ID:           uuid.New().String(),
		CurrentStage: storyassist.StageRefinement,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return copySession(sess), nil
}

// GetSession retrieves a session by id. Lookup is strict.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*storyassist.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, storyassist.ErrInvalidSessionID
	}

	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, storyassist.ErrSessionNotFound
	}

	return copySession(sess), nil
}

// UpdateSession replaces the stored record for the session's id.
func (s *Store) UpdateSession(ctx context.Context, session *storyassist.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[session.ID]
	if !ok {
		return storyassist.ErrSessionNotFound
	}

	updated := copySession(session)
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now()
	s.sessions[session.ID] = updated

	return nil
}

// AddInteraction appends one turn to the session's log.
func (s *Store) AddInteraction(ctx context.Context, sessionID string, humanMessage, aiMessage string, stage storyassist.Stage) (*storyassist.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, storyassist.ErrSessionNotFound
	}

	it := storyassist.Interaction{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		Seq:          len(s.interactions[sessionID]) + 1,
		HumanMessage: humanMessage,
		AIMessage:    aiMessage,
		Stage:        stage,
		CreatedAt:    time.Now(),
	}
	s.interactions[sessionID] = append(s.interactions[sessionID], it)

	return &it, nil
}

// ListInteractions returns the session's log in append order.
func (s *Store) ListInteractions(ctx context.Context, sessionID string) ([]storyassist.Interaction, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, storyassist.ErrInvalidSessionID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, storyassist.ErrSessionNotFound
	}

	out := make([]storyassist.Interaction, len(s.interactions[sessionID]))
	copy(out, s.interactions[sessionID])
	return out, nil
}

// copySession returns a deep copy so callers never share slices with the map.
func copySession(sess *storyassist.Session) *storyassist.Session {
	out := *sess
	out.CornerCases = append([]string(nil), sess.CornerCases...)
	out.TestingStrategies = append([]string(nil), sess.TestingStrategies...)
	return &out
}

// Ensure Store implements storyassist.Store at compile time.
var _ storyassist.Store = (*Store)(nil)
