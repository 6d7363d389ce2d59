package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meikuraledutech/storyassist"
	"github.com/meikuraledutech/storyassist/memory"
)

// stubProvider returns a canned completion and records the prompts it saw.
type stubProvider struct {
	mu       sync.Mutex
	response string
	err      error
	delay    time.Duration
	prompts  []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (p *stubProvider) Complete(ctx context.Context, prompt string) (string, error) {
	cur := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		max := p.maxSeen.Load()
		if cur <= max || p.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()

	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func newTestEngine(t *testing.T, provider storyassist.Provider) (*Engine, *storyassist.Session) {
	t.Helper()
	e := New(memory.New(), provider, zap.NewNop())
	sess, err := e.CreateSession(context.Background())
	require.NoError(t, err)
	return e, sess
}

func TestRefineStory(t *testing.T) {
	provider := &stubProvider{response: "**Historia Refinada:**\n" +
		"Como usuario registrado, quiero X para lograr Y.\n\n" +
		"**Cambios Realizados:**\n- Se especificó el rol del usuario."}
	e, sess := newTestEngine(t, provider)
	ctx := context.Background()

	result, err := e.RefineStory(ctx, sess.ID, "Como usuario quiero X", "")
	require.NoError(t, err)
	assert.Equal(t, "Como usuario registrado, quiero X para lograr Y.", result.RefinedStory)
	assert.Equal(t, "- Se especificó el rol del usuario.", result.RefinementFeedback)

	// Session record mirrors the result.
	got, err := e.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, result.RefinedStory, got.RefinedStory)
	assert.Equal(t, storyassist.StageRefinement, got.CurrentStage)

	// Absent feedback renders as the explicit default.
	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "Sin feedback adicional.")
	assert.Contains(t, provider.prompts[0], "Como usuario quiero X")

	// One interaction per successful invocation.
	log, err := e.Interactions(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, storyassist.StageRefinement, log[0].Stage)
	assert.Contains(t, log[0].HumanMessage, "Como usuario quiero X")
	assert.Contains(t, log[0].AIMessage, result.RefinedStory)
}

func TestIdentifyCornerCases(t *testing.T) {
	provider := &stubProvider{response: "**Casos Esquina Actualizados:**\n" +
		"1. Bloqueo de cuenta tras intentos fallidos.\n\n" +
		"2. Acceso simultáneo desde varios dispositivos.\n" +
		"**Análisis de Cambios:**\n- Se añadió el caso de bloqueo según el feedback."}
	e, sess := newTestEngine(t, provider)
	ctx := context.Background()

	result, err := e.IdentifyCornerCases(ctx, sess.ID,
		"Como usuario registrado quiero iniciar sesión.",
		"considerar bloqueo de cuenta", nil)
	require.NoError(t, err)

	// Blank lines are dropped, order preserved.
	require.Equal(t, []string{
		"1. Bloqueo de cuenta tras intentos fallidos.",
		"2. Acceso simultáneo desde varios dispositivos.",
	}, result.CornerCases)
	assert.NotEmpty(t, result.CornerCasesFeedback)

	got, err := e.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, result.CornerCases, got.CornerCases)
	assert.Equal(t, storyassist.StageCornerCases, got.CurrentStage)

	assert.Contains(t, provider.prompts[0], "considerar bloqueo de cuenta")
	assert.Contains(t, provider.prompts[0], "No hay casos esquina previos.")
}

func TestIdentifyCornerCasesKeepsDuplicates(t *testing.T) {
	provider := &stubProvider{response: "**Casos Esquina Actualizados:**\n" +
		"caso repetido\ncaso repetido\n" +
		"**Análisis de Cambios:**\nninguno"}
	e, sess := newTestEngine(t, provider)

	result, err := e.IdentifyCornerCases(context.Background(), sess.ID, "historia", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"caso repetido", "caso repetido"}, result.CornerCases)
}

func TestProposeTestingStrategy(t *testing.T) {
	provider := &stubProvider{response: "**Estrategias de Testing Actualizadas:**\n" +
		"1. Pruebas unitarias de validación.\n" +
		"2. Pruebas de rendimiento bajo carga.\n" +
		"**Análisis de Cambios:**\n- Se añadieron pruebas de rendimiento."}
	e, sess := newTestEngine(t, provider)
	ctx := context.Background()

	result, err := e.ProposeTestingStrategy(ctx, sess.ID,
		"Historia refinada.",
		[]string{"caso 1", "caso 2"},
		"priorizar rendimiento",
		[]string{"estrategia previa"})
	require.NoError(t, err)
	require.Len(t, result.TestingStrategies, 2)
	assert.NotEmpty(t, result.TestingFeedback)

	assert.Contains(t, provider.prompts[0], "caso 1\ncaso 2")
	assert.Contains(t, provider.prompts[0], "estrategia previa")
	assert.Contains(t, provider.prompts[0], "priorizar rendimiento")

	got, err := e.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, result.TestingStrategies, got.TestingStrategies)
}

func TestFinalizeStory(t *testing.T) {
	provider := &stubProvider{response: "**Historia Finalizada:**\n" +
		"Historia Principal: como usuario quiero X.\n" +
		"**Análisis de Cambios:**\nSe integraron los componentes."}
	e, sess := newTestEngine(t, provider)
	ctx := context.Background()

	result, err := e.FinalizeStory(ctx, sess.ID, FinalizeInput{
		StoryInput:      "Como usuario quiero X.",
		CornerCases:     []string{"caso A"},
		TestingStrategy: []string{"estrategia A"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Historia Principal: como usuario quiero X.", result.FinalizedStory)
	assert.Equal(t, "Se integraron los componentes.", result.Feedback)

	got, err := e.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, result.FinalizedStory, got.FinalizedStory)
	assert.Equal(t, storyassist.StageFinalization, got.CurrentStage)

	assert.Contains(t, provider.prompts[0], "Formato por defecto")
}

func TestUnknownSessionFails(t *testing.T) {
	provider := &stubProvider{response: "irrelevante"}
	e := New(memory.New(), provider, zap.NewNop())

	_, err := e.RefineStory(context.Background(), "123e4567-e89b-12d3-a456-426614174000", "historia", "")
	assert.ErrorIs(t, err, storyassist.ErrSessionNotFound)
	assert.Empty(t, provider.prompts, "no completion call for unknown session")
}

func TestInvalidSessionIDFails(t *testing.T) {
	e := New(memory.New(), &stubProvider{}, zap.NewNop())

	_, err := e.RefineStory(context.Background(), "garbage", "historia", "")
	assert.ErrorIs(t, err, storyassist.ErrInvalidSessionID)
}

func TestProviderFailureLeavesSessionUntouched(t *testing.T) {
	backendErr := errors.New("connection refused")
	provider := &stubProvider{err: backendErr}
	e, sess := newTestEngine(t, provider)
	ctx := context.Background()

	_, err := e.RefineStory(ctx, sess.ID, "historia", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, backendErr)

	got, err := e.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.RefinedStory)
	assert.Equal(t, storyassist.StageRefinement, got.CurrentStage)

	log, err := e.Interactions(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, log)
	assert.Empty(t, e.History(sess.ID))
}

func TestMissingMarkersYieldEmptyFields(t *testing.T) {
	provider := &stubProvider{response: "respuesta sin marcadores"}
	e, sess := newTestEngine(t, provider)

	result, err := e.RefineStory(context.Background(), sess.ID, "historia", "")
	require.NoError(t, err)
	assert.Empty(t, result.RefinedStory)
	assert.Empty(t, result.RefinementFeedback)
}

func TestCloseClearsHistoryNotSessions(t *testing.T) {
	provider := &stubProvider{response: "**Historia Refinada:**\nx\n**Cambios Realizados:**\ny"}
	e, sess := newTestEngine(t, provider)
	ctx := context.Background()

	_, err := e.RefineStory(ctx, sess.ID, "historia", "")
	require.NoError(t, err)
	require.Len(t, e.History(sess.ID), 1)

	e.Close()

	assert.Empty(t, e.History(sess.ID))
	got, err := e.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.RefinedStory)
}

func TestConcurrentStageCallsSerializePerSession(t *testing.T) {
	provider := &stubProvider{
		response: "**Casos Esquina Actualizados:**\ncaso\n**Análisis de Cambios:**\nok",
		delay:    5 * time.Millisecond,
	}
	e, sess := newTestEngine(t, provider)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := e.IdentifyCornerCases(ctx, sess.ID, fmt.Sprintf("historia %d", i), "", nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), provider.maxSeen.Load(), "at most one in-flight completion per session")

	log, err := e.Interactions(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, log, n)
}
