// Package jira fetches user stories from a Jira instance so callers can pull
// a story straight into a refinement session.
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
)

var (
	// ErrInvalidStoryID means the issue key does not match the PROJECT-123 shape.
	ErrInvalidStoryID = errors.New("storyassist: jira: invalid story id")

	// ErrStoryNotFound means Jira has no issue under the given key.
	ErrStoryNotFound = errors.New("storyassist: jira: story not found")
)

var storyIDPattern = regexp.MustCompile(`^[A-Z]+-\d+$`)

// Story is the title and description of a Jira issue.
type Story struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Client calls the Jira REST API with bearer-token auth.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New creates a Client for the given Jira base URL and API token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{},
	}
}

type issueResponse struct {
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
	} `json:"fields"`
}

// GetStory fetches a story by issue key (e.g. "STORYASIS-1").
func (c *Client) GetStory(ctx context.Context, storyID string) (*Story, error) {
	if !storyIDPattern.MatchString(storyID) {
		return nil, ErrInvalidStoryID
	}

	url := fmt.Sprintf("%s/rest/api/2/issue/%s", c.baseURL, storyID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("storyassist: jira: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storyassist: jira: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("storyassist: jira: read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrStoryNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storyassist: jira: status %d: %s", resp.StatusCode, string(body))
	}

	var issue issueResponse
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("storyassist: jira: parse response: %w", err)
	}
	if issue.Fields.Summary == "" {
		return nil, fmt.Errorf("storyassist: jira: issue %s has no title", storyID)
	}

	return &Story{
		Title:       issue.Fields.Summary,
		Description: issue.Fields.Description,
	}, nil
}
