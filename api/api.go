// Package api exposes the stage operations over HTTP. It validates request
// shapes, mints sessions when a request omits its id, and translates domain
// failures into status codes: not found → 404, validation → 422, anything
// else → 500.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/meikuraledutech/storyassist"
	"github.com/meikuraledutech/storyassist/engine"
	"github.com/meikuraledutech/storyassist/jira"
)

// Server holds the handlers' collaborators. The jira client is optional.
type Server struct {
	engine *engine.Engine
	jira   *jira.Client
	log    *zap.Logger
}

// New creates a Server. jiraClient may be nil when no Jira instance is
// configured.
func New(e *engine.Engine, jiraClient *jira.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: e, jira: jiraClient, log: logger}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("POST /api/v1/refine_story", s.handleRefineStory)
	mux.HandleFunc("POST /api/v1/identify_corner_cases", s.handleIdentifyCornerCases)
	mux.HandleFunc("POST /api/v1/propose_testing_strategy", s.handleProposeTestingStrategy)
	mux.HandleFunc("POST /api/v1/finalize_story", s.handleFinalizeStory)
	mux.HandleFunc("GET /api/v1/jira/story/{id}", s.handleJiraStory)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Bienvenido al Asistente de Refinamiento de Historias de Usuario",
	})
}

// resolveSession returns the request's session id, creating a session when
// none is given.
func (s *Server) resolveSession(r *http.Request, sessionID string) (string, error) {
	if sessionID != "" {
		return sessionID, nil
	}
	sess, err := s.engine.CreateSession(r.Context())
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody mirrors FastAPI's {"detail": ...} error shape the original
// clients expect.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeDomainError maps core failures onto transport status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, op string, err error) {
	s.log.Error("request failed", zap.String("op", op), zap.Error(err))

	switch {
	case errors.Is(err, storyassist.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storyassist.ErrInvalidSessionID):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
