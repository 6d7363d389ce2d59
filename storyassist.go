// Package storyassist is a session-scoped assistant for drafting, refining and
// finalizing software user stories through a text-completion backend. The root
// package holds the shared types and the Provider/Store contracts; the
// subpackages implement them.
package storyassist

import "time"

// Stage identifies one of the four processing steps a session moves through.
type Stage string

const (
	StageRefinement      Stage = "refinement"
	StageCornerCases     Stage = "corner_cases"
	StageTestingStrategy Stage = "testing_strategy"
	StageFinalization    Stage = "finalization"
)

// Interaction is one completed turn of a stage: the formatted human message,
// the assistant's answer and the stage that produced them.
type Interaction struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Seq          int       `json:"seq"`
	HumanMessage string    `json:"human_message"`
	AIMessage    string    `json:"ai_message"`
	Stage        Stage     `json:"stage"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session holds the latest artifact of each stage for one ongoing
// story-refinement conversation. Stage fields are only written by their own
// stage; the interaction log is append-only.
type Session struct {
	ID                   string    `json:"id"`
	CurrentStage         Stage     `json:"current_stage"`
	RefinedStory         string    `json:"refined_story,omitempty"`
	RefinementFeedback   string    `json:"refinement_feedback,omitempty"`
	CornerCases          []string  `json:"corner_cases,omitempty"`
	CornerCasesFeedback  string    `json:"corner_cases_feedback,omitempty"`
	TestingStrategies    []string  `json:"testing_strategies,omitempty"`
	TestingFeedback      string    `json:"testing_feedback,omitempty"`
	FinalizedStory       string    `json:"finalized_story,omitempty"`
	FinalizationFeedback string    `json:"finalization_feedback,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// RefinementResult is the output of the refinement stage.
type RefinementResult struct {
	RefinedStory       string `json:"refined_story"`
	RefinementFeedback string `json:"refinement_feedback"`
}

// CornerCaseResult is the output of the corner-case stage.
type CornerCaseResult struct {
	CornerCases         []string `json:"corner_cases"`
	CornerCasesFeedback string   `json:"corner_cases_feedback"`
}

// TestingStrategyResult is the output of the testing-strategy stage.
type TestingStrategyResult struct {
	TestingStrategies []string `json:"testing_strategies"`
	TestingFeedback   string   `json:"testing_feedback"`
}

// FinalizationResult is the output of the finalization stage.
type FinalizationResult struct {
	FinalizedStory string `json:"finalized_story"`
	Feedback       string `json:"feedback"`
}
