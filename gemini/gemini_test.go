package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/storyassist"
)

func testClient(srvURL string) *Client {
	c := New("test-key", "gemini-test", 1024)
	c.baseURL = srvURL
	return c
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req, "contents")
		assert.Contains(t, req, "generationConfig")

		json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []geminiCandidate{{
				Content: geminiContent{Parts: []geminiPart{{Text: "**Historia Refinada:**\nok"}}},
			}},
		})
	}))
	defer srv.Close()

	out, err := testClient(srv.URL).Complete(context.Background(), "refina")
	require.NoError(t, err)
	assert.Equal(t, "**Historia Refinada:**\nok", out)
}

func TestCompleteEmptyPrompt(t *testing.T) {
	_, err := New("k", "m", 0).Complete(context.Background(), "")
	assert.ErrorIs(t, err, storyassist.ErrEmptyPrompt)
}

func TestCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), "hola")
	require.Error(t, err)
	assert.ErrorIs(t, err, storyassist.ErrProviderFailed)
	assert.Contains(t, err.Error(), "429")
}

func TestCompleteNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geminiResponse{})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), "hola")
	assert.ErrorIs(t, err, storyassist.ErrProviderFailed)
}
