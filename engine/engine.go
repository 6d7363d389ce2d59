// Package engine implements the multi-stage orchestration core: it binds
// stage inputs into a prompt template, calls the completion backend, extracts
// the marker-delimited sections of the answer and writes the typed result
// back onto the session.
package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/meikuraledutech/storyassist"
)

// Turn is one human/assistant message pair kept in the engine's replay
// memory.
type Turn struct {
	Human string
	AI    string
}

// Engine drives sessions through the four stages. Store and Provider are
// injected; the engine owns no global state.
type Engine struct {
	store    storyassist.Store
	provider storyassist.Provider
	log      *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	histMu  sync.Mutex
	history map[string][]Turn
}

// New creates an Engine on the given store and completion provider.
func New(store storyassist.Store, provider storyassist.Provider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:    store,
		provider: provider,
		log:      logger,
		locks:    make(map[string]*sync.Mutex),
		history:  make(map[string][]Turn),
	}
}

// CreateSession mints a new session.
func (e *Engine) CreateSession(ctx context.Context) (*storyassist.Session, error) {
	return e.store.CreateSession(ctx)
}

// Session returns the current record for a session id.
func (e *Engine) Session(ctx context.Context, sessionID string) (*storyassist.Session, error) {
	return e.store.GetSession(ctx, sessionID)
}

// Interactions returns the session's append-only log.
func (e *Engine) Interactions(ctx context.Context, sessionID string) ([]storyassist.Interaction, error) {
	return e.store.ListInteractions(ctx, sessionID)
}

// History returns the replay memory for a session: the turns accumulated
// since the engine started (or since Close).
func (e *Engine) History(sessionID string) []Turn {
	e.histMu.Lock()
	defer e.histMu.Unlock()

	out := make([]Turn, len(e.history[sessionID]))
	copy(out, e.history[sessionID])
	return out
}

// Close clears the ephemeral replay memory. Session records stay in the
// store so they remain inspectable after shutdown.
func (e *Engine) Close() {
	e.histMu.Lock()
	e.history = make(map[string][]Turn)
	e.histMu.Unlock()
}

// sessionLock returns the advisory mutex for a session id so at most one
// stage operation per session is in flight. Locks are never dropped; sessions
// are never deleted.
func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[sessionID] = l
	}
	return l
}

func (e *Engine) remember(sessionID, human, ai string) {
	e.histMu.Lock()
	e.history[sessionID] = append(e.history[sessionID], Turn{Human: human, AI: ai})
	e.histMu.Unlock()
}
