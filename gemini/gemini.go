// Package gemini implements the completion provider over the Gemini
// generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/meikuraledutech/storyassist"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Client calls the Gemini REST API for plain-text completions.
type Client struct {
	apiKey    string
	modelID   string
	baseURL   string
	maxTokens int
	client    *http.Client
}

// New creates a Client for the given API key and model.
func New(apiKey, modelID string, maxTokens int) *Client {
	return &Client{
		apiKey:    apiKey,
		modelID:   modelID,
		baseURL:   defaultBaseURL,
		maxTokens: maxTokens,
		client:    &http.Client{},
	}
}

// Complete sends the prompt to generateContent and returns the text of the
// first candidate.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", storyassist.ErrEmptyPrompt
	}

	reqBody := c.buildRequest(prompt)

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("storyassist: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.modelID, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("storyassist: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("storyassist: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("storyassist: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", storyassist.ErrProviderFailed, resp.StatusCode, string(body))
	}

	return c.parseResponse(body)
}

func (c *Client) buildRequest(prompt string) map[string]any {
	req := map[string]any{
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]any{{"text": prompt}},
			},
		},
	}

	if c.maxTokens > 0 {
		req["generationConfig"] = map[string]any{
			"maxOutputTokens": c.maxTokens,
		}
	}

	return req
}

func (c *Client) parseResponse(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("storyassist: parse response: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response from Gemini", storyassist.ErrProviderFailed)
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// Gemini API response types.
type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// Ensure Client implements storyassist.Provider at compile time.
var _ storyassist.Provider = (*Client)(nil)
