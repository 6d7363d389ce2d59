package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/meikuraledutech/storyassist/engine"
	"github.com/meikuraledutech/storyassist/jira"
)

type refineStoryRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Story     string `json:"story"`
	Feedback  string `json:"feedback,omitempty"`
}

type refineStoryResponse struct {
	SessionID          string `json:"session_id"`
	RefinedStory       string `json:"refined_story"`
	RefinementFeedback string `json:"refinement_feedback"`
}

func (s *Server) handleRefineStory(w http.ResponseWriter, r *http.Request) {
	var req refineStoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(req.Story) == "" {
		writeError(w, http.StatusUnprocessableEntity, "story is required")
		return
	}

	sessionID, err := s.resolveSession(r, req.SessionID)
	if err != nil {
		s.writeDomainError(w, "refine_story", err)
		return
	}

	result, err := s.engine.RefineStory(r.Context(), sessionID, req.Story, req.Feedback)
	if err != nil {
		s.writeDomainError(w, "refine_story", err)
		return
	}

	writeJSON(w, http.StatusOK, refineStoryResponse{
		SessionID:          sessionID,
		RefinedStory:       result.RefinedStory,
		RefinementFeedback: result.RefinementFeedback,
	})
}

type identifyCornerCasesRequest struct {
	SessionID           string   `json:"session_id,omitempty"`
	Story               string   `json:"story"`
	Feedback            string   `json:"feedback,omitempty"`
	ExistingCornerCases []string `json:"existing_corner_cases,omitempty"`
}

type identifyCornerCasesResponse struct {
	SessionID           string   `json:"session_id"`
	CornerCases         []string `json:"corner_cases"`
	CornerCasesFeedback string   `json:"corner_cases_feedback"`
}

func (s *Server) handleIdentifyCornerCases(w http.ResponseWriter, r *http.Request) {
	var req identifyCornerCasesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(req.Story) == "" {
		writeError(w, http.StatusUnprocessableEntity, "story is required")
		return
	}

	sessionID, err := s.resolveSession(r, req.SessionID)
	if err != nil {
		s.writeDomainError(w, "identify_corner_cases", err)
		return
	}

	result, err := s.engine.IdentifyCornerCases(r.Context(), sessionID, req.Story, req.Feedback, req.ExistingCornerCases)
	if err != nil {
		s.writeDomainError(w, "identify_corner_cases", err)
		return
	}

	writeJSON(w, http.StatusOK, identifyCornerCasesResponse{
		SessionID:           sessionID,
		CornerCases:         result.CornerCases,
		CornerCasesFeedback: result.CornerCasesFeedback,
	})
}

type proposeTestingStrategyRequest struct {
	SessionID                 string   `json:"session_id,omitempty"`
	Story                     string   `json:"story"`
	CornerCases               []string `json:"corner_cases,omitempty"`
	Feedback                  string   `json:"feedback,omitempty"`
	ExistingTestingStrategies []string `json:"existing_testing_strategies,omitempty"`
}

type proposeTestingStrategyResponse struct {
	SessionID         string   `json:"session_id"`
	TestingStrategies []string `json:"testing_strategies"`
	TestingFeedback   string   `json:"testing_feedback"`
}

func (s *Server) handleProposeTestingStrategy(w http.ResponseWriter, r *http.Request) {
	var req proposeTestingStrategyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(req.Story) == "" {
		writeError(w, http.StatusUnprocessableEntity, "story is required")
		return
	}

	sessionID, err := s.resolveSession(r, req.SessionID)
	if err != nil {
		s.writeDomainError(w, "propose_testing_strategy", err)
		return
	}

	result, err := s.engine.ProposeTestingStrategy(r.Context(), sessionID, req.Story, req.CornerCases, req.Feedback, req.ExistingTestingStrategies)
	if err != nil {
		s.writeDomainError(w, "propose_testing_strategy", err)
		return
	}

	writeJSON(w, http.StatusOK, proposeTestingStrategyResponse{
		SessionID:         sessionID,
		TestingStrategies: result.TestingStrategies,
		TestingFeedback:   result.TestingFeedback,
	})
}

type finalizeStoryRequest struct {
	SessionID string `json:"session_id,omitempty"`

	// First shape: refined story + corner cases + testing strategy.
	RefinedStory    string   `json:"refined_story,omitempty"`
	CornerCases     []string `json:"corner_cases,omitempty"`
	TestingStrategy []string `json:"testing_strategy,omitempty"`

	// Second shape: an already finalized story to iterate on.
	FinalizedStory string `json:"finalized_story,omitempty"`

	Feedback          string            `json:"feedback,omitempty"`
	FormatPreferences map[string]string `json:"format_preferences,omitempty"`
}

type finalizeStoryResponse struct {
	SessionID      string `json:"session_id"`
	FinalizedStory string `json:"finalized_story"`
	Feedback       string `json:"feedback"`
}

// validate enforces the two mutually-exclusive input shapes.
func (req *finalizeStoryRequest) validate() error {
	hasComponents := req.RefinedStory != "" || len(req.CornerCases) > 0 || len(req.TestingStrategy) > 0

	if req.FinalizedStory != "" {
		if hasComponents {
			return errors.New("provide either a finalized story or the individual components, not both")
		}
		return nil
	}

	if req.RefinedStory == "" {
		return errors.New("a refined story is required when no finalized story is given")
	}
	if len(req.CornerCases) == 0 {
		return errors.New("corner cases are required when no finalized story is given")
	}
	if len(req.TestingStrategy) == 0 {
		return errors.New("a testing strategy is required when no finalized story is given")
	}
	return nil
}

func (s *Server) handleFinalizeStory(w http.ResponseWriter, r *http.Request) {
	var req finalizeStoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sessionID, err := s.resolveSession(r, req.SessionID)
	if err != nil {
		s.writeDomainError(w, "finalize_story", err)
		return
	}

	storyInput := req.RefinedStory
	if req.FinalizedStory != "" {
		storyInput = req.FinalizedStory
	}

	result, err := s.engine.FinalizeStory(r.Context(), sessionID, engine.FinalizeInput{
		StoryInput:        storyInput,
		CornerCases:       req.CornerCases,
		TestingStrategy:   req.TestingStrategy,
		Feedback:          req.Feedback,
		FormatPreferences: formatPreferencesText(req.FormatPreferences),
	})
	if err != nil {
		s.writeDomainError(w, "finalize_story", err)
		return
	}

	writeJSON(w, http.StatusOK, finalizeStoryResponse{
		SessionID:      sessionID,
		FinalizedStory: result.FinalizedStory,
		Feedback:       result.Feedback,
	})
}

func (s *Server) handleJiraStory(w http.ResponseWriter, r *http.Request) {
	if s.jira == nil {
		writeError(w, http.StatusInternalServerError, "jira integration is not configured")
		return
	}

	story, err := s.jira.GetStory(r.Context(), r.PathValue("id"))
	if err != nil {
		s.log.Error("jira fetch failed", zap.Error(err))
		switch {
		case errors.Is(err, jira.ErrInvalidStoryID), errors.Is(err, jira.ErrStoryNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, story)
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// formatPreferencesText flattens the preferences object into the free-form
// description the finalization prompt expects, in stable key order.
func formatPreferencesText(prefs map[string]string) string {
	if len(prefs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+prefs[k])
	}
	return strings.Join(parts, "\n")
}
