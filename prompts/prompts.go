// Package prompts holds the four stage templates the engine feeds to the
// completion backend, plus the section markers each template instructs the
// model to emit. Template text is embedded at build time.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed refinement.md.tmpl
var refinementText string

//go:embed corner_cases.md.tmpl
var cornerCasesText string

//go:embed testing_strategy.md.tmpl
var testingStrategyText string

//go:embed finalization.md.tmpl
var finalizationText string

// Section markers the templates instruct the model to emit. The extract
// package slices the completion on these exact strings.
const (
	MarkerRefinedStory      = "**Historia Refinada:**"
	MarkerRefinementChanges = "**Cambios Realizados:**"
	MarkerCornerCases       = "**Casos Esquina Actualizados:**"
	MarkerTestingStrategies = "**Estrategias de Testing Actualizadas:**"
	MarkerFinalizedStory    = "**Historia Finalizada:**"
	MarkerChangeAnalysis    = "**Análisis de Cambios:**"
)

// Human-readable defaults substituted for absent optional variables. Empty
// strings make the model ignore the field, so every placeholder renders to
// explicit text.
const (
	NoFeedback    = "Sin feedback adicional."
	NoCornerCases = "No hay casos esquina previos."
	NoStrategies  = "No hay estrategias de testing previas."
	NotApplicable = "N/A"
	DefaultFormat = "Formato por defecto"
)

// Template is one parameterized stage prompt: the text, the variables it
// requires, the defaults for its optional variables, and the markers its
// output will carry.
type Template struct {
	name     string
	tmpl     *template.Template
	required []string
	defaults map[string]string
	markers  []string
}

var (
	Refinement = mustParse("refinement", refinementText,
		[]string{"user_story"},
		map[string]string{"feedback": NoFeedback},
		[]string{MarkerRefinedStory, MarkerRefinementChanges},
	)

	CornerCases = mustParse("corner_cases", cornerCasesText,
		[]string{"refined_user_story"},
		map[string]string{
			"existing_corner_cases": NoCornerCases,
			"feedback":              NoFeedback,
		},
		[]string{MarkerCornerCases, MarkerChangeAnalysis},
	)

	TestingStrategy = mustParse("testing_strategy", testingStrategyText,
		[]string{"refined_user_story", "corner_cases"},
		map[string]string{
			"existing_testing_strategies": NoStrategies,
			"feedback":                    NoFeedback,
		},
		[]string{MarkerTestingStrategies, MarkerChangeAnalysis},
	)

	Finalization = mustParse("finalization", finalizationText,
		[]string{"story_input"},
		map[string]string{
			"corner_cases":       NotApplicable,
			"testing_strategy":   NotApplicable,
			"feedback":           NoFeedback,
			"format_preferences": DefaultFormat,
		},
		[]string{MarkerFinalizedStory, MarkerChangeAnalysis},
	)
)

func mustParse(name, text string, required []string, defaults map[string]string, markers []string) *Template {
	return &Template{
		name:     name,
		tmpl:     template.Must(template.New(name).Option("missingkey=zero").Parse(text)),
		required: required,
		defaults: defaults,
		markers:  markers,
	}
}

// Name returns the template's stage name.
func (t *Template) Name() string { return t.name }

// Markers returns the section markers this template's output carries, in the
// order they appear in the response.
func (t *Template) Markers() []string {
	out := make([]string, len(t.markers))
	copy(out, t.markers)
	return out
}

// Render binds vars into the template. Optional variables that are absent or
// empty are substituted with their defaults first; a missing required
// variable is an error.
func (t *Template) Render(vars map[string]string) (string, error) {
	bound := make(map[string]string, len(vars)+len(t.defaults))
	for k, v := range vars {
		bound[k] = v
	}
	for k, def := range t.defaults {
		if strings.TrimSpace(bound[k]) == "" {
			bound[k] = def
		}
	}
	for _, k := range t.required {
		if strings.TrimSpace(bound[k]) == "" {
			return "", fmt.Errorf("storyassist: render %s prompt: missing variable %q", t.name, k)
		}
	}

	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, bound); err != nil {
		return "", fmt.Errorf("storyassist: render %s prompt: %w", t.name, err)
	}
	return sb.String(), nil
}

// JoinLines renders a list variable as newline-joined text, or the given
// placeholder when the list is empty.
func JoinLines(items []string, placeholder string) string {
	if len(items) == 0 {
		return placeholder
	}
	return strings.Join(items, "\n")
}
