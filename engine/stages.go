package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/meikuraledutech/storyassist"
	"github.com/meikuraledutech/storyassist/extract"
	"github.com/meikuraledutech/storyassist/prompts"
)

// stepResult is the stage-agnostic shape of a processed completion: a text
// artifact or a list artifact, plus the model's change analysis.
type stepResult struct {
	text     string
	items    []string
	feedback string
}

// stageTemplate maps each stage kind to its prompt template. Stages are a
// closed set; an unknown stage is a programming error.
func stageTemplate(stage storyassist.Stage) *prompts.Template {
	switch stage {
	case storyassist.StageRefinement:
		return prompts.Refinement
	case storyassist.StageCornerCases:
		return prompts.CornerCases
	case storyassist.StageTestingStrategy:
		return prompts.TestingStrategy
	case storyassist.StageFinalization:
		return prompts.Finalization
	}
	panic(fmt.Sprintf("engine: unknown stage %q", stage))
}

// RefineStory refines a user story for clarity and completeness. An empty
// feedback means none was given.
func (e *Engine) RefineStory(ctx context.Context, sessionID, userStory, feedback string) (*storyassist.RefinementResult, error) {
	vars := map[string]string{
		"user_story": userStory,
		"feedback":   orDefault(feedback, prompts.NoFeedback),
	}

	res, err := e.runStage(ctx, sessionID, storyassist.StageRefinement, vars)
	if err != nil {
		return nil, err
	}
	return &storyassist.RefinementResult{
		RefinedStory:       res.text,
		RefinementFeedback: res.feedback,
	}, nil
}

// IdentifyCornerCases updates the corner-case list for a refined story.
// Existing cases, when given, go into the prompt so the model revises rather
// than replaces them.
func (e *Engine) IdentifyCornerCases(ctx context.Context, sessionID, refinedStory, feedback string, existingCornerCases []string) (*storyassist.CornerCaseResult, error) {
	vars := map[string]string{
		"refined_user_story":    refinedStory,
		"existing_corner_cases": prompts.JoinLines(existingCornerCases, prompts.NoCornerCases),
		"feedback":              orDefault(feedback, prompts.NoFeedback),
	}

	res, err := e.runStage(ctx, sessionID, storyassist.StageCornerCases, vars)
	if err != nil {
		return nil, err
	}
	return &storyassist.CornerCaseResult{
		CornerCases:         res.items,
		CornerCasesFeedback: res.feedback,
	}, nil
}

// ProposeTestingStrategy updates the testing-strategy list for a refined
// story and its corner cases.
func (e *Engine) ProposeTestingStrategy(ctx context.Context, sessionID, refinedStory string, cornerCases []string, feedback string, existingStrategies []string) (*storyassist.TestingStrategyResult, error) {
	vars := map[string]string{
		"refined_user_story":          refinedStory,
		"corner_cases":                prompts.JoinLines(cornerCases, prompts.NotApplicable),
		"existing_testing_strategies": prompts.JoinLines(existingStrategies, prompts.NoStrategies),
		"feedback":                    orDefault(feedback, prompts.NoFeedback),
	}

	res, err := e.runStage(ctx, sessionID, storyassist.StageTestingStrategy, vars)
	if err != nil {
		return nil, err
	}
	return &storyassist.TestingStrategyResult{
		TestingStrategies: res.items,
		TestingFeedback:   res.feedback,
	}, nil
}

// FinalizeInput carries the two accepted shapes for finalization: fresh
// components (story + corner cases + testing strategy), or an already
// finalized story plus feedback to iterate on. Shape validation lives at the
// transport boundary; StoryInput carries whichever story text applies.
type FinalizeInput struct {
	StoryInput        string
	CornerCases       []string
	TestingStrategy   []string
	Feedback          string
	FormatPreferences string
}

// FinalizeStory integrates story, corner cases and testing strategy into the
// finalized document, or iterates on a previous finalized story.
func (e *Engine) FinalizeStory(ctx context.Context, sessionID string, in FinalizeInput) (*storyassist.FinalizationResult, error) {
	vars := map[string]string{
		"story_input":        in.StoryInput,
		"corner_cases":       prompts.JoinLines(in.CornerCases, prompts.NotApplicable),
		"testing_strategy":   prompts.JoinLines(in.TestingStrategy, prompts.NotApplicable),
		"feedback":           orDefault(in.Feedback, prompts.NoFeedback),
		"format_preferences": orDefault(in.FormatPreferences, prompts.DefaultFormat),
	}

	res, err := e.runStage(ctx, sessionID, storyassist.StageFinalization, vars)
	if err != nil {
		return nil, err
	}
	return &storyassist.FinalizationResult{
		FinalizedStory: res.text,
		Feedback:       res.feedback,
	}, nil
}

// runStage is the shared step executor: resolve session, render, complete,
// extract, post-process, update session, log the interaction. The provider
// call is the single blocking point; on any failure the session keeps its
// pre-call state.
func (e *Engine) runStage(ctx context.Context, sessionID string, stage storyassist.Stage, vars map[string]string) (stepResult, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return stepResult{}, err
	}
	sess.CurrentStage = stage

	tmpl := stageTemplate(stage)
	prompt, err := tmpl.Render(vars)
	if err != nil {
		return stepResult{}, err
	}
	e.log.Debug("rendered prompt", zap.String("stage", string(stage)), zap.Int("length", len(prompt)))

	completion, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		e.log.Error("completion backend failed", zap.String("stage", string(stage)), zap.String("session", sessionID), zap.Error(err))
		return stepResult{}, fmt.Errorf("storyassist: %s: complete: %w", stage, err)
	}

	sections := extract.Sections(completion, tmpl.Markers())
	res := postProcess(stage, sections)

	applyResult(sess, stage, res)
	if err := e.store.UpdateSession(ctx, sess); err != nil {
		return stepResult{}, err
	}

	human, ai := formatInteraction(stage, vars, res)
	if _, err := e.store.AddInteraction(ctx, sessionID, human, ai, stage); err != nil {
		return stepResult{}, err
	}
	e.remember(sessionID, human, ai)

	e.log.Info("stage completed", zap.String("stage", string(stage)), zap.String("session", sessionID))
	return res, nil
}

// postProcess shapes the extracted sections into the stage's typed values.
// List stages split their primary section into lines, dropping blanks;
// repeated lines are kept verbatim.
func postProcess(stage storyassist.Stage, sections map[string]string) stepResult {
	switch stage {
	case storyassist.StageRefinement:
		return stepResult{
			text:     sections[prompts.MarkerRefinedStory],
			feedback: sections[prompts.MarkerRefinementChanges],
		}
	case storyassist.StageCornerCases:
		return stepResult{
			items:    splitLines(sections[prompts.MarkerCornerCases]),
			feedback: sections[prompts.MarkerChangeAnalysis],
		}
	case storyassist.StageTestingStrategy:
		return stepResult{
			items:    splitLines(sections[prompts.MarkerTestingStrategies]),
			feedback: sections[prompts.MarkerChangeAnalysis],
		}
	case storyassist.StageFinalization:
		return stepResult{
			text:     sections[prompts.MarkerFinalizedStory],
			feedback: sections[prompts.MarkerChangeAnalysis],
		}
	}
	panic(fmt.Sprintf("engine: unknown stage %q", stage))
}

// applyResult writes the processed result onto the session. Each stage only
// ever touches its own fields.
func applyResult(sess *storyassist.Session, stage storyassist.Stage, res stepResult) {
	switch stage {
	case storyassist.StageRefinement:
		sess.RefinedStory = res.text
		sess.RefinementFeedback = res.feedback
	case storyassist.StageCornerCases:
		sess.CornerCases = res.items
		sess.CornerCasesFeedback = res.feedback
	case storyassist.StageTestingStrategy:
		sess.TestingStrategies = res.items
		sess.TestingFeedback = res.feedback
	case storyassist.StageFinalization:
		sess.FinalizedStory = res.text
		sess.FinalizationFeedback = res.feedback
	}
}

// formatInteraction builds the human/assistant message pair summarizing the
// turn for the interaction log and replay memory.
func formatInteraction(stage storyassist.Stage, vars map[string]string, res stepResult) (string, string) {
	switch stage {
	case storyassist.StageRefinement:
		human := fmt.Sprintf("Historia Original:\n%s\n\nFeedback:\n%s",
			vars["user_story"], vars["feedback"])
		ai := fmt.Sprintf("Historia Refinada:\n%s\n\nCambios Realizados:\n%s",
			res.text, res.feedback)
		return human, ai

	case storyassist.StageCornerCases:
		human := fmt.Sprintf("Historia refinada:\n%s\n\nCasos Esquina Anteriores:\n%s\n\nFeedback:\n%s",
			vars["refined_user_story"], vars["existing_corner_cases"], vars["feedback"])
		ai := fmt.Sprintf("Casos Esquina Actualizados:\n%s\n\nAnálisis de Cambios:\n%s",
			strings.Join(res.items, "\n"), res.feedback)
		return human, ai

	case storyassist.StageTestingStrategy:
		human := fmt.Sprintf("Historia refinada:\n%s\n\nCasos Esquina:\n%s\n\nEstrategias de Testing Anteriores:\n%s\n\nFeedback:\n%s",
			vars["refined_user_story"], vars["corner_cases"], vars["existing_testing_strategies"], vars["feedback"])
		ai := fmt.Sprintf("Estrategias de Testing Actualizadas:\n%s\n\nAnálisis de Cambios:\n%s",
			strings.Join(res.items, "\n"), res.feedback)
		return human, ai

	case storyassist.StageFinalization:
		human := fmt.Sprintf("Historia Input:\n%s\n\nCasos Esquina:\n%s\n\nEstrategia de Testing:\n%s\n\nPreferencias de Formato:\n%s\n\nFeedback:\n%s",
			vars["story_input"], vars["corner_cases"], vars["testing_strategy"], vars["format_preferences"], vars["feedback"])
		ai := fmt.Sprintf("Historia Finalizada:\n%s\n\nAnálisis de Cambios:\n%s",
			res.text, res.feedback)
		return human, ai
	}
	panic(fmt.Sprintf("engine: unknown stage %q", stage))
}

// splitLines splits a section into its non-blank trimmed lines. Duplicates
// survive; no cardinality limit is enforced here.
func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
