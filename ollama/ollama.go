// Package ollama implements the completion provider over the Ollama REST
// API (/api/generate, non-streaming).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/meikuraledutech/storyassist"
)

// Client calls a local or remote Ollama server.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	maxLength   int
	client      *http.Client
}

// New creates a Client for the given server, model and sampling options.
func New(baseURL, model string, temperature float64, maxLength int) *Client {
	return &Client{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		maxLength:   maxLength,
		client:      &http.Client{},
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete sends the prompt to /api/generate and returns the completion
// text. No retry is applied; failures surface to the caller.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", storyassist.ErrEmptyPrompt
	}

	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.temperature,
			NumPredict:  c.maxLength,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("storyassist: marshal request: %w", err)
	}

	url := c.baseURL + "/api/generate"

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

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("storyassist: parse response: %w", err)
	}
	if parsed.Response == "" {
		return "", fmt.Errorf("%w: empty response from Ollama", storyassist.ErrProviderFailed)
	}

	return parsed.Response, nil
}

// Ensure Client implements storyassist.Provider at compile time.
var _ storyassist.Provider = (*Client)(nil)
